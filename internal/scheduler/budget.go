package scheduler

import "errors"

// ErrBudgetExceeded means a scheduled invocation tried to perform more work
// than its fixed resource budget allows. This is fatal for the invocation and
// is never retried; budgets must be sized for one execution (single-vault
// path) or one full batch (batch path).
var ErrBudgetExceeded = errors.New("invocation work budget exceeded")

// Budget is the fixed upper bound on the work one scheduled callback may
// perform. Not safe for concurrent use; each invocation owns its own budget.
type Budget struct {
	limit int
	spent int
}

// NewBudget creates a budget allowing limit units of work.
func NewBudget(limit int) *Budget {
	return &Budget{limit: limit}
}

// Spend consumes n units, failing with ErrBudgetExceeded once the limit
// would be passed.
func (b *Budget) Spend(n int) error {
	if b.spent+n > b.limit {
		return ErrBudgetExceeded
	}
	b.spent += n
	return nil
}

// Remaining returns the unspent units.
func (b *Budget) Remaining() int {
	return b.limit - b.spent
}
