package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vietddude/vaultflow/internal/core/domain"
	"github.com/vietddude/vaultflow/internal/scheduler"
)

// Reconciler is a periodic safety net: if an active vault is overdue with no
// pending callback (a callback can be lost to a queue outage), it enqueues
// one batch callback for the active set. Harmless when nothing was lost,
// since ExecuteOne absorbs duplicate triggers.
type Reconciler struct {
	engine *Engine
	every  time.Duration
	cron   *cron.Cron
	log    *slog.Logger
}

// NewReconciler creates a reconciler sweeping at the given interval.
func NewReconciler(e *Engine, every time.Duration) *Reconciler {
	if every == 0 {
		every = 5 * time.Minute
	}
	return &Reconciler{
		engine: e,
		every:  every,
		cron:   cron.New(),
		log:    slog.Default().With("component", "reconciler"),
	}
}

// Start schedules the sweep.
func (r *Reconciler) Start() error {
	spec := fmt.Sprintf("@every %s", r.every)
	if _, err := r.cron.AddFunc(spec, r.sweep); err != nil {
		return fmt.Errorf("failed to schedule reconciler: %w", err)
	}
	r.cron.Start()
	r.log.Info("Reconciler started", "interval", r.every)
	return nil
}

// Stop halts the sweep and waits for a running one to finish.
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Reconciler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	active, err := r.engine.store.ListActive(ctx)
	if err != nil {
		r.log.Error("Sweep failed to read active set", "error", err)
		return
	}
	if len(active) == 0 {
		return
	}

	now := r.engine.now()
	overdue := 0
	for _, id := range active {
		record, err := r.engine.store.Get(ctx, id)
		if err != nil {
			r.log.Error("Sweep failed to read vault", "vault", id, "error", err)
			continue
		}
		if record.Status == domain.StatusActive && record.Due(now) {
			overdue++
		}
	}
	if overdue == 0 {
		return
	}

	// A queued batch will process the overdue vaults when it fires; arming
	// another one here would only duplicate its work.
	pending, err := r.engine.sched.HasPendingCallback(ctx, scheduler.OpExecuteBatch)
	if err != nil {
		r.log.Warn("Sweep could not check for a pending batch, arming anyway", "error", err)
	} else if pending {
		r.log.Debug("Sweep found overdue vaults but a batch is already pending", "overdue", overdue)
		return
	}

	r.log.Info("Sweep found overdue vaults, arming batch", "overdue", overdue, "active", len(active))
	r.engine.arrange(ctx, 0, scheduler.OpExecuteBatch, strings.Join(active, ","))
}
