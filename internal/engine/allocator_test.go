package engine

import (
	"log/slog"
	"testing"
	"time"

	"multistrat/types"

	"github.com/shopspring/decimal"
)

func TestRebalanceLockInvariant(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	a := newCapitalAllocator(MethodRiskAdjusted, NewPerformanceScorer(90), log)

	states := map[string]*StrategyState{
		"locked": newStrategyState("locked", decimal.RequireFromString("400")),
		"flatA":  newStrategyState("flatA", decimal.RequireFromString("300")),
		"flatB":  newStrategyState("flatB", decimal.RequireFromString("300")),
	}
	states["locked"].enterPosition("X", decimal.RequireFromString("4"), decimal.RequireFromString("100"), testDate)

	order := []string{"locked", "flatA", "flatB"}
	cash := decimal.RequireFromString("600")

	snap := a.Rebalance(testDate, order, states, cash, nil)
	if snap == nil {
		t.Fatal("Rebalance() returned nil with unlocked strategies present")
	}

	if !states["locked"].AllocatedCapital().Equal(decimal.RequireFromString("400")) {
		t.Errorf("locked allocation changed: %s", states["locked"].AllocatedCapital())
	}
	if !snap.Strategies["locked"].Locked {
		t.Errorf("snapshot does not mark locked strategy")
	}

	// Total capital = cash + locked allocation.
	if !snap.TotalCapital.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("total capital = %s, want 1000", snap.TotalCapital)
	}

	// No trades: both unlocked strategies score neutral, so they split the
	// available cash equally and the allocations sum back to total.
	sum := decimal.Zero
	for _, name := range order {
		sum = sum.Add(states[name].AllocatedCapital())
	}
	if !sum.Equal(snap.TotalCapital) {
		t.Errorf("allocations sum to %s, want %s", sum, snap.TotalCapital)
	}
	if !states["flatA"].AllocatedCapital().Equal(states["flatB"].AllocatedCapital()) {
		t.Errorf("neutral scores split unevenly: %s vs %s",
			states["flatA"].AllocatedCapital(), states["flatB"].AllocatedCapital())
	}
}

func TestRebalanceAllLocked(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	a := newCapitalAllocator(MethodEqualWeight, NewPerformanceScorer(90), log)

	states := map[string]*StrategyState{
		"only": newStrategyState("only", decimal.RequireFromString("1000")),
	}
	states["only"].enterPosition("X", decimal.RequireFromString("10"), decimal.RequireFromString("100"), testDate)

	if snap := a.Rebalance(testDate, []string{"only"}, states, decimal.Zero, nil); snap != nil {
		t.Fatalf("Rebalance() = %+v, want nil when every strategy is locked", snap)
	}
}

func TestRebalanceRiskAdjustedFavorsWinner(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	a := newCapitalAllocator(MethodRiskAdjusted, NewPerformanceScorer(90), log)

	states := map[string]*StrategyState{
		"winner": newStrategyState("winner", decimal.Zero),
		"loser":  newStrategyState("loser", decimal.Zero),
	}

	trades := []types.Trade{
		tradeFor("winner", types.ActionBuy, "100", testDate.AddDate(0, 0, -10)),
		tradeFor("winner", types.ActionSell, "150", testDate.AddDate(0, 0, -5)),
		tradeFor("loser", types.ActionBuy, "100", testDate.AddDate(0, 0, -10)),
		tradeFor("loser", types.ActionSell, "40", testDate.AddDate(0, 0, -5)),
	}

	a.Rebalance(testDate, []string{"winner", "loser"}, states, decimal.RequireFromString("1000"), trades)

	if !states["winner"].AllocatedCapital().GreaterThan(states["loser"].AllocatedCapital()) {
		t.Errorf("winner allocated %s, loser %s; expected winner to get more",
			states["winner"].AllocatedCapital(), states["loser"].AllocatedCapital())
	}
}

func tradeFor(strategy string, action types.Action, value string, date time.Time) types.Trade {
	return types.Trade{
		Date:     date,
		Symbol:   "X",
		Action:   action,
		Strategy: strategy,
		Value:    decimal.RequireFromString(value),
	}
}
