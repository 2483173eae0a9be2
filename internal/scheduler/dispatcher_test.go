package scheduler

import (
	"context"
	"testing"
	"time"

	redisclient "github.com/vietddude/vaultflow/internal/infra/redis"
)

func TestBudgetSpend(t *testing.T) {
	b := NewBudget(8)

	for i := 0; i < 8; i++ {
		if err := b.Spend(1); err != nil {
			t.Fatalf("spend %d failed: %v", i, err)
		}
	}
	if b.Remaining() != 0 {
		t.Errorf("expected 0 remaining, got %d", b.Remaining())
	}
	if err := b.Spend(1); err != ErrBudgetExceeded {
		t.Errorf("expected ErrBudgetExceeded, got %v", err)
	}
}

func TestBudgetOverspendLeavesRemainder(t *testing.T) {
	b := NewBudget(2)
	if err := b.Spend(3); err != ErrBudgetExceeded {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
	// A rejected spend must not consume anything.
	if b.Remaining() != 2 {
		t.Errorf("expected 2 remaining, got %d", b.Remaining())
	}
}

func TestDispatchRoutesToRegisteredHandler(t *testing.T) {
	d := NewDispatcher(DefaultDispatcherConfig(), nil)

	var gotArg string
	var gotBudget int
	d.Register(OpExecuteVault, 1, func(ctx context.Context, arg string, budget *Budget) error {
		gotArg = arg
		gotBudget = budget.Remaining()
		return nil
	})

	d.dispatch(context.Background(), redisclient.Callback{
		Op:  OpExecuteVault,
		Arg: "vault_abc",
		Due: time.Now(),
	})

	if gotArg != "vault_abc" {
		t.Errorf("expected handler to receive vault_abc, got %q", gotArg)
	}
	if gotBudget != 1 {
		t.Errorf("expected a fresh budget of 1, got %d", gotBudget)
	}
}

func TestDispatchIgnoresUnknownOp(t *testing.T) {
	d := NewDispatcher(DefaultDispatcherConfig(), nil)

	// Must not panic; an unhandled op is logged and dropped.
	d.dispatch(context.Background(), redisclient.Callback{Op: "bogus", Due: time.Now()})
}
