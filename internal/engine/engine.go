package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/vaultflow/internal/core/domain"
	"github.com/vietddude/vaultflow/internal/engine/metrics"
	"github.com/vietddude/vaultflow/internal/infra/storage"
	"github.com/vietddude/vaultflow/internal/infra/venue"
	"github.com/vietddude/vaultflow/internal/notify"
	"github.com/vietddude/vaultflow/internal/scheduler"
)

// Config holds engine configuration.
type Config struct {
	BatchRearmDelay time.Duration // Delay before a follow-up batch callback (default: 5s)
}

// DefaultConfig returns default engine configuration.
func DefaultConfig() Config {
	return Config{
		BatchRearmDelay: 5 * time.Second,
	}
}

// Engine owns the vault lifecycle: creation, due-check, execution, state
// transition and cancellation. All cross-invocation state lives in the store;
// the engine itself holds nothing between calls, so concurrent invocations
// for different vaults interleave freely.
type Engine struct {
	cfg      Config
	store    storage.VaultStore
	venue    venue.Venue
	sched    scheduler.Scheduler
	notifier notify.Notifier
	log      *slog.Logger

	// now is second-granular so persisted schedule times survive the wire
	// codec unchanged.
	now func() time.Time
}

// New creates a new lifecycle engine.
func New(cfg Config, store storage.VaultStore, v venue.Venue, sched scheduler.Scheduler, notifier notify.Notifier) *Engine {
	return &Engine{
		cfg:      cfg,
		store:    store,
		venue:    v,
		sched:    sched,
		notifier: notifier,
		log:      slog.Default().With("component", "engine"),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// Create registers a vault, indexes it, and arranges its first execution.
func (e *Engine) Create(ctx context.Context, cfg domain.VaultConfig) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", fmt.Errorf("invalid vault config: %w", err)
	}

	id := newVaultID(cfg.Owner)
	now := e.now()
	record := &domain.VaultRecord{
		Config:        cfg,
		NextExecution: now.Add(cfg.Interval),
		Status:        domain.StatusActive,
		CreatedAt:     now,
	}

	if err := e.store.Put(ctx, id, record); err != nil {
		return "", fmt.Errorf("failed to persist vault: %w", err)
	}
	if err := e.store.AddOwnerVault(ctx, cfg.Owner, id); err != nil {
		return "", fmt.Errorf("failed to index vault: %w", err)
	}
	if err := e.store.AddActive(ctx, id); err != nil {
		return "", fmt.Errorf("failed to activate vault: %w", err)
	}

	e.arrange(ctx, cfg.Interval, scheduler.OpExecuteVault, id)

	metrics.VaultsCreated.Inc()
	e.notifier.Notify(ctx, notify.EventVaultCreated, "vault", id, "owner", cfg.Owner)
	return id, nil
}

// ExecuteOne runs one execution cycle for a vault. Absent, inactive and
// not-yet-due vaults are absorbed silently: a redundant or late trigger must
// never error, which is what makes duplicate callbacks safe.
func (e *Engine) ExecuteOne(ctx context.Context, id string) error {
	record, err := e.store.Get(ctx, id)
	if errors.Is(err, storage.ErrVaultNotFound) {
		e.log.Debug("Trigger for unknown vault absorbed", "vault", id)
		metrics.ExecutionsTotal.WithLabelValues(metrics.ResultSkipped).Inc()
		return nil
	}
	if err != nil {
		return err
	}

	if record.Status != domain.StatusActive {
		e.log.Debug("Trigger for inactive vault absorbed", "vault", id, "status", record.Status)
		metrics.ExecutionsTotal.WithLabelValues(metrics.ResultSkipped).Inc()
		return nil
	}

	now := e.now()
	if !record.Due(now) {
		e.log.Debug("Early trigger absorbed", "vault", id, "due", record.NextExecution)
		metrics.ExecutionsTotal.WithLabelValues(metrics.ResultSkipped).Inc()
		return nil
	}

	result, err := e.venue.Swap(ctx, record.Config.Amount, record.Config.BaseAsset, record.Config.TargetAsset, record.Config.Owner)
	if err != nil || !result.Success || result.AmountOut == 0 {
		return e.recordFailure(ctx, id, record, err)
	}

	if record.Config.AutoCompound {
		// Best effort: the swap is already final, a failed compound never
		// rolls it back or blocks the schedule.
		ok, err := e.venue.Stake(ctx, result.AmountOut, record.Config.Owner)
		if err != nil || !ok {
			e.log.Warn("Auto-compound failed", "vault", id, "amount", result.AmountOut, "error", err)
			metrics.CompoundFailures.Inc()
			e.notifier.Notify(ctx, notify.EventCompoundFailed, "vault", id, "amount", result.AmountOut)
		}
	}

	record.TotalExecutions++
	// Anchored at the actual execution instant: a delayed execution schedules
	// exactly one interval ahead, it does not catch up missed slots.
	record.NextExecution = now.Add(record.Config.Interval)

	if err := e.store.Put(ctx, id, record); err != nil {
		return fmt.Errorf("failed to persist execution: %w", err)
	}

	e.arrange(ctx, record.Config.Interval, scheduler.OpExecuteVault, id)

	metrics.ExecutionsTotal.WithLabelValues(metrics.ResultExecuted).Inc()
	e.notifier.Notify(ctx, notify.EventDCAExecuted,
		"vault", id, "amount_in", result.AmountIn, "amount_out", result.AmountOut,
		"executions", record.TotalExecutions)
	return nil
}

// recordFailure parks the vault: status INSUFFICIENT_BALANCE, out of the
// active set, no future callback. Dormant until an external actor intervenes.
func (e *Engine) recordFailure(ctx context.Context, id string, record *domain.VaultRecord, cause error) error {
	record.Status = domain.StatusInsufficientBalance
	if err := e.store.Put(ctx, id, record); err != nil {
		return fmt.Errorf("failed to persist failure state: %w", err)
	}
	if err := e.store.RemoveActive(ctx, id); err != nil {
		return fmt.Errorf("failed to deactivate vault: %w", err)
	}

	metrics.ExecutionsTotal.WithLabelValues(metrics.ResultFailed).Inc()
	e.notifier.Notify(ctx, notify.EventDCAFailed, "vault", id, "error", cause)
	return nil
}

// Cancel pauses a vault. Only the owner may cancel; the ownership check runs
// before anything else, and a non-owner learns nothing beyond the boolean.
func (e *Engine) Cancel(ctx context.Context, id, requester string) (bool, error) {
	record, err := e.store.Get(ctx, id)
	if errors.Is(err, storage.ErrVaultNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if record.Config.Owner != requester {
		return false, nil
	}

	record.Status = domain.StatusPaused
	if err := e.store.Put(ctx, id, record); err != nil {
		return false, fmt.Errorf("failed to persist cancellation: %w", err)
	}
	if err := e.store.RemoveActive(ctx, id); err != nil {
		return false, fmt.Errorf("failed to deactivate vault: %w", err)
	}

	e.notifier.Notify(ctx, notify.EventVaultCancelled, "vault", id)
	return true, nil
}

// GetInfo returns a vault record, or storage.ErrVaultNotFound.
func (e *Engine) GetInfo(ctx context.Context, id string) (*domain.VaultRecord, error) {
	return e.store.Get(ctx, id)
}

// UserVaults returns the ids of all vaults created by an owner, oldest first.
func (e *Engine) UserVaults(ctx context.Context, owner string) ([]string, error) {
	return e.store.ListOwnerVaults(ctx, owner)
}

// arrange enqueues the next self-trigger. A lost callback is not fatal to the
// persisted state; the reconciler sweep recovers overdue vaults.
func (e *Engine) arrange(ctx context.Context, after time.Duration, op, arg string) {
	if err := e.sched.ArrangeCallback(ctx, after, op, arg); err != nil {
		e.log.Warn("Failed to arrange callback", "op", op, "arg", arg, "error", err)
	}
}

// newVaultID derives a globally unique vault id. The owner suffix keeps ids
// traceable; the random component rules out collisions between identical
// configs submitted in the same instant.
func newVaultID(owner string) string {
	suffix := owner
	if len(suffix) > 8 {
		suffix = suffix[len(suffix)-8:]
	}
	return fmt.Sprintf("vault_%s_%s", suffix, uuid.NewString())
}
