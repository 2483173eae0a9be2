package venue

import (
	"context"

	"github.com/vietddude/vaultflow/internal/core/domain"
)

// Venue is the boundary to the external swap and yield services. Stateless
// from the engine's perspective.
//
// Swap reports venue-level failure (insufficient liquidity, routing failure)
// through SwapResult.Success=false so the engine can record a business-level
// failure state. The error return covers attempts that could not be carried
// out at all; the engine treats both the same way, since no retry policy
// exists at that layer.
//
// Stake is best effort: its failure never rolls back the swap that produced
// the staked funds.
type Venue interface {
	Swap(ctx context.Context, amountIn uint64, assetIn, assetOut, recipient string) (domain.SwapResult, error)
	Stake(ctx context.Context, amount uint64, beneficiary string) (bool, error)
}
