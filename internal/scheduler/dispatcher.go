package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vietddude/vaultflow/internal/engine/metrics"
	redisclient "github.com/vietddude/vaultflow/internal/infra/redis"
)

// Handler executes one claimed callback under the invocation's work budget.
type Handler func(ctx context.Context, arg string, budget *Budget) error

// DispatcherConfig holds configuration for the callback dispatcher.
type DispatcherConfig struct {
	PollInterval time.Duration // Delay between queue polls (default: 1s)
	ClaimLimit   int64         // Max callbacks claimed per poll (default: 16)
}

// DefaultDispatcherConfig returns default dispatcher configuration.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		PollInterval: time.Second,
		ClaimLimit:   16,
	}
}

type registration struct {
	budget  int
	handler Handler
}

// Dispatcher drains due callbacks from the durable queue and invokes the
// registered handler for each, giving every invocation its own fixed work
// budget. A failed invocation is logged and dropped, never retried: the
// engine's own guards absorb duplicate or late triggers, and fatal conditions
// (budget overrun, corrupt records) must surface instead of looping.
type Dispatcher struct {
	cfg      DispatcherConfig
	queue    *redisclient.Client
	handlers map[string]registration
	log      *slog.Logger
	now      func() time.Time
}

// NewDispatcher creates a new callback dispatcher.
func NewDispatcher(cfg DispatcherConfig, queue *redisclient.Client) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		queue:    queue,
		handlers: make(map[string]registration),
		log:      slog.Default().With("component", "dispatcher"),
		now:      time.Now,
	}
}

// Register binds an operation name to a handler and the work budget each of
// its invocations receives.
func (d *Dispatcher) Register(op string, budget int, handler Handler) {
	d.handlers[op] = registration{budget: budget, handler: handler}
}

// Run starts the dispatch loop.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Info("Starting callback dispatcher", "poll_interval", d.cfg.PollInterval)

	for {
		select {
		case <-ctx.Done():
			d.log.Info("Callback dispatcher stopped")
			return nil
		default:
		}

		callbacks, err := d.queue.PopDue(ctx, d.now(), d.cfg.ClaimLimit)
		if err != nil {
			d.log.Error("Failed to pop due callbacks", "error", err)
			time.Sleep(d.cfg.PollInterval)
			continue
		}

		for _, cb := range callbacks {
			d.dispatch(ctx, cb)
		}

		if len(callbacks) == 0 {
			time.Sleep(d.cfg.PollInterval)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, cb redisclient.Callback) {
	reg, ok := d.handlers[cb.Op]
	if !ok {
		d.log.Error("No handler registered for callback", "op", cb.Op)
		metrics.CallbacksDispatched.WithLabelValues(cb.Op, "unhandled").Inc()
		return
	}

	if lag := d.now().Sub(cb.Due); lag > 0 {
		metrics.CallbackLag.Observe(lag.Seconds())
	}

	err := reg.handler(ctx, cb.Arg, NewBudget(reg.budget))
	switch {
	case errors.Is(err, ErrBudgetExceeded):
		// Undersized budget is a sizing defect, fatal for this invocation.
		d.log.Error("Callback exceeded its work budget", "op", cb.Op, "budget", reg.budget)
		metrics.CallbacksDispatched.WithLabelValues(cb.Op, "budget_exceeded").Inc()
	case err != nil:
		d.log.Error("Callback failed", "op", cb.Op, "arg", cb.Arg, "error", err)
		metrics.CallbacksDispatched.WithLabelValues(cb.Op, "error").Inc()
	default:
		metrics.CallbacksDispatched.WithLabelValues(cb.Op, "ok").Inc()
	}
}
