package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/vietddude/vaultflow/internal/core/domain"
	"github.com/vietddude/vaultflow/internal/engine/metrics"
	"github.com/vietddude/vaultflow/internal/scheduler"
)

// MaxBatchSize bounds the vaults processed per invocation. It limits
// per-invocation work, not throughput: covering N active vaults takes
// ceil(N/8) chained invocations.
const MaxBatchSize = 8

// ExecuteBatch processes at most MaxBatchSize ids from the given sequence in
// order. One failing or no-op vault never aborts the rest of the batch.
// Afterwards the current active set is re-read and, if any member is still
// due, one follow-up callback is armed for the entire remaining set. A vault
// merely waiting on its own schedule is covered by its per-vault callback,
// so a chain with no due work left ends instead of idling forever.
func (e *Engine) ExecuteBatch(ctx context.Context, ids []string, budget *scheduler.Budget) error {
	n := len(ids)
	if n > MaxBatchSize {
		n = MaxBatchSize
	}

	for _, id := range ids[:n] {
		if err := budget.Spend(1); err != nil {
			return fmt.Errorf("batch aborted at vault %s: %w", id, err)
		}
		if err := e.ExecuteOne(ctx, id); err != nil {
			// Fault isolation: an errored vault does not take down its batch.
			e.log.Error("Vault execution failed within batch", "vault", id, "error", err)
		}
	}

	remaining, err := e.store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to read active set: %w", err)
	}
	metrics.ActiveVaults.Set(float64(len(remaining)))

	if e.anyDue(ctx, remaining) {
		e.arrange(ctx, e.cfg.BatchRearmDelay, scheduler.OpExecuteBatch, strings.Join(remaining, ","))
	}
	return nil
}

// anyDue reports whether at least one of the given vaults is active and has
// reached its next execution time.
func (e *Engine) anyDue(ctx context.Context, ids []string) bool {
	now := e.now()
	for _, id := range ids {
		record, err := e.store.Get(ctx, id)
		if err != nil {
			continue
		}
		if record.Status == domain.StatusActive && record.Due(now) {
			return true
		}
	}
	return false
}

// SplitBatchArg parses the wire form of a vault-id list: a comma-joined,
// order-preserving string. Empty segments are dropped.
func SplitBatchArg(arg string) []string {
	var ids []string
	for _, id := range strings.Split(arg, ",") {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// RegisterHandlers binds the engine's operations to the dispatcher, sizing
// each callback's work budget for its path: one execution for the
// single-vault op, one full batch for the batch op.
func (e *Engine) RegisterHandlers(d *scheduler.Dispatcher) {
	d.Register(scheduler.OpExecuteVault, 1, func(ctx context.Context, arg string, budget *scheduler.Budget) error {
		if err := budget.Spend(1); err != nil {
			return err
		}
		return e.ExecuteOne(ctx, arg)
	})
	d.Register(scheduler.OpExecuteBatch, MaxBatchSize, func(ctx context.Context, arg string, budget *scheduler.Budget) error {
		return e.ExecuteBatch(ctx, SplitBatchArg(arg), budget)
	})
}
