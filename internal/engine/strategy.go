package engine

import (
	"time"

	"multistrat/types"

	"github.com/shopspring/decimal"
)

// Strategy is the capability contract every trading strategy implements.
// Handlers return nil when the strategy has no trade to make.
type Strategy interface {
	Name() string

	// RequiredSymbols lists every symbol the strategy needs bars for,
	// including signal-only symbols it never trades.
	RequiredSymbols() []string

	// RequiresIntradayData opts the strategy into the per-minute replay.
	RequiresIntradayData() bool

	// CanRebalance reports whether the strategy wants its allocation
	// reconsidered on the given date. Strategies holding positions are
	// locked by the allocator regardless of what this returns.
	CanRebalance(date time.Time) bool

	// OnBar handles the daily bars for the strategy's required symbols.
	// Symbols with no bar on that date are absent from the map.
	OnBar(date time.Time, bars map[string]types.Bar) *types.Signal

	// OnMinuteBar handles one step of the merged per-minute timeline.
	// Only called when RequiresIntradayData returns true.
	OnMinuteBar(ts time.Time, bars map[string]types.Bar) *types.Signal

	// SetAllocatedCapital pushes the strategy's current allocation so it
	// can size orders. Called at run start and after every rebalance.
	SetAllocatedCapital(capital decimal.Decimal)
}
