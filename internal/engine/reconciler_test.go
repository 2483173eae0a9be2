package engine

import (
	"testing"
	"time"

	"github.com/vietddude/vaultflow/internal/scheduler"
)

func batchCalls(s *fakeScheduler) []arrangedCall {
	var calls []arrangedCall
	for _, c := range s.calls {
		if c.op == scheduler.OpExecuteBatch {
			calls = append(calls, c)
		}
	}
	return calls
}

func TestSweepArmsBatchForOverdueVault(t *testing.T) {
	h := newHarness(t)

	id := h.createVault(t, 24*time.Second, 100)
	h.advance(48 * time.Second) // overdue, as if its callback was lost
	h.sched.calls = nil

	r := NewReconciler(h.engine, time.Minute)
	r.sweep()

	calls := batchCalls(h.sched)
	if len(calls) != 1 {
		t.Fatalf("expected 1 batch callback, got %d", len(calls))
	}
	if calls[0].after != 0 {
		t.Errorf("recovery batch should fire immediately, got delay %v", calls[0].after)
	}
	if got := SplitBatchArg(calls[0].arg); len(got) != 1 || got[0] != id {
		t.Errorf("batch carries %v, want [%s]", got, id)
	}
}

func TestSweepQuietWhenNothingOverdue(t *testing.T) {
	h := newHarness(t)

	h.createVault(t, 24*time.Second, 100)
	h.sched.calls = nil // vault exists but is not yet due

	r := NewReconciler(h.engine, time.Minute)
	r.sweep()

	if calls := batchCalls(h.sched); len(calls) != 0 {
		t.Errorf("sweep armed a batch with nothing overdue: %+v", calls)
	}
}

func TestSweepDoesNotStackBatchChains(t *testing.T) {
	h := newHarness(t)

	h.createVault(t, 24*time.Second, 100)
	h.advance(48 * time.Second)
	h.sched.calls = nil

	// Repeated sweeps over the same overdue vault must reuse the pending
	// batch callback, not pile a new chain onto the queue each time.
	r := NewReconciler(h.engine, time.Minute)
	r.sweep()
	r.sweep()
	r.sweep()

	if calls := batchCalls(h.sched); len(calls) != 1 {
		t.Errorf("expected 1 batch callback after repeated sweeps, got %d", len(calls))
	}
}

func TestSweepIgnoresEmptyActiveSet(t *testing.T) {
	h := newHarness(t)

	r := NewReconciler(h.engine, time.Minute)
	r.sweep()

	if len(h.sched.calls) != 0 {
		t.Errorf("sweep on empty active set arranged callbacks: %+v", h.sched.calls)
	}
}
