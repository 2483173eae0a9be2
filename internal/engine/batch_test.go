package engine

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/vaultflow/internal/core/domain"
	"github.com/vietddude/vaultflow/internal/scheduler"
)

func (h *harness) createVaults(t *testing.T, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, h.createVault(t, 24*time.Second, 100))
	}
	return ids
}

func TestBatchProcessesAtMostMax(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ids := h.createVaults(t, 10)
	h.advance(24 * time.Second)

	budget := scheduler.NewBudget(MaxBatchSize)
	if err := h.engine.ExecuteBatch(ctx, ids, budget); err != nil {
		t.Fatalf("batch errored: %v", err)
	}

	if h.venue.swapCalls != MaxBatchSize {
		t.Errorf("expected %d swaps, got %d", MaxBatchSize, h.venue.swapCalls)
	}
	for i, id := range ids {
		rec := h.record(t, id)
		want := uint64(1)
		if i >= MaxBatchSize {
			want = 0
		}
		if rec.TotalExecutions != want {
			t.Errorf("vault %d: %d executions, want %d", i, rec.TotalExecutions, want)
		}
	}

	// The tail of the batch stays in the active set for the next invocation.
	remaining, _ := h.store.ListActive(ctx)
	if len(remaining) != 10 {
		t.Errorf("expected 10 vaults still active, got %d", len(remaining))
	}
}

func TestBatchRearmsWhileDueWorkRemains(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Two more vaults than one batch can cover, all due.
	ids := h.createVaults(t, MaxBatchSize+2)
	h.advance(24 * time.Second)
	h.sched.calls = nil // drop the per-vault callbacks from creation

	if err := h.engine.ExecuteBatch(ctx, ids, scheduler.NewBudget(MaxBatchSize)); err != nil {
		t.Fatalf("batch errored: %v", err)
	}

	last := h.sched.calls[len(h.sched.calls)-1]
	if last.op != scheduler.OpExecuteBatch {
		t.Fatalf("expected batch re-arm, got op %q", last.op)
	}
	if last.after != h.engine.cfg.BatchRearmDelay {
		t.Errorf("re-arm delay %v, want %v", last.after, h.engine.cfg.BatchRearmDelay)
	}
	if got := SplitBatchArg(last.arg); !reflect.DeepEqual(got, ids) {
		t.Errorf("re-arm carries %v, want %v", got, ids)
	}
}

func TestBatchChainEndsWhenNothingDue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ids := h.createVaults(t, 3)
	h.advance(24 * time.Second)
	h.sched.calls = nil

	// All three fit in one batch; afterwards every vault waits on its own
	// per-vault callback, so the chain must end rather than spin no-ops.
	if err := h.engine.ExecuteBatch(ctx, ids, scheduler.NewBudget(MaxBatchSize)); err != nil {
		t.Fatalf("batch errored: %v", err)
	}

	for _, call := range h.sched.calls {
		if call.op == scheduler.OpExecuteBatch {
			t.Errorf("batch re-armed with no due work left: %+v", call)
		}
	}

	remaining, _ := h.store.ListActive(ctx)
	if len(remaining) != 3 {
		t.Errorf("expected 3 vaults still active, got %d", len(remaining))
	}
}

func TestBatchDoesNotRearmWhenActiveSetDrains(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ids := h.createVaults(t, 2)
	h.advance(24 * time.Second)
	h.venue.swapFn = func(amountIn uint64) (domain.SwapResult, error) {
		return domain.SwapResult{Success: false, AmountIn: amountIn}, nil
	}
	h.sched.calls = nil

	if err := h.engine.ExecuteBatch(ctx, ids, scheduler.NewBudget(MaxBatchSize)); err != nil {
		t.Fatalf("batch errored: %v", err)
	}

	for _, call := range h.sched.calls {
		if call.op == scheduler.OpExecuteBatch {
			t.Errorf("empty active set still re-armed: %+v", call)
		}
	}
}

func TestBatchIsolatesFailingVault(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ids := h.createVaults(t, 3)
	h.advance(24 * time.Second)
	h.venue.swapFn = func(amountIn uint64) (domain.SwapResult, error) {
		// The second vault in the batch hits an empty pool.
		if h.venue.swapCalls == 2 {
			return domain.SwapResult{Success: false, AmountIn: amountIn}, nil
		}
		return domain.SwapResult{Success: true, AmountIn: amountIn, AmountOut: amountIn - 1}, nil
	}

	if err := h.engine.ExecuteBatch(ctx, ids, scheduler.NewBudget(MaxBatchSize)); err != nil {
		t.Fatalf("batch errored: %v", err)
	}

	if h.record(t, ids[1]).Status != domain.StatusInsufficientBalance {
		t.Error("failing vault not parked")
	}
	if h.record(t, ids[2]).TotalExecutions != 1 {
		t.Error("vault after the failure was not processed")
	}
	remaining, _ := h.store.ListActive(ctx)
	if len(remaining) != 2 {
		t.Errorf("expected 2 active vaults after one failure, got %d", len(remaining))
	}
}

func TestBatchAbortsOnExhaustedBudget(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ids := h.createVaults(t, 3)
	h.advance(24 * time.Second)

	err := h.engine.ExecuteBatch(ctx, ids, scheduler.NewBudget(1))
	if !errors.Is(err, scheduler.ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
	if h.venue.swapCalls != 1 {
		t.Errorf("expected 1 swap before the abort, got %d", h.venue.swapCalls)
	}
	// The abort is fatal for the invocation; state written so far stands.
	if h.record(t, ids[0]).TotalExecutions != 1 {
		t.Error("work before the abort was lost")
	}
	if h.record(t, ids[1]).TotalExecutions != 0 {
		t.Error("work continued past the exhausted budget")
	}
}

func TestSplitBatchArg(t *testing.T) {
	cases := []struct {
		arg  string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{"a", []string{"a"}},
		{"", nil},
		{",,a,,b,", []string{"a", "b"}},
	}
	for _, tc := range cases {
		if got := SplitBatchArg(tc.arg); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("SplitBatchArg(%q) = %v, want %v", tc.arg, got, tc.want)
		}
	}
}

func TestSplitBatchArgRoundTrip(t *testing.T) {
	ids := []string{"vault_a_1", "vault_b_2", "vault_c_3"}
	if got := SplitBatchArg(strings.Join(ids, ",")); !reflect.DeepEqual(got, ids) {
		t.Errorf("round trip mangled ids: %v", got)
	}
}
