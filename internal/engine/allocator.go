package engine

import (
	"log/slog"
	"time"

	"multistrat/types"

	"github.com/shopspring/decimal"
)

type AllocationMethod string

const (
	MethodEqualWeight  AllocationMethod = "equal_weight"
	MethodRiskAdjusted AllocationMethod = "risk_adjusted"
)

// CapitalAllocator distributes capital across strategies. Strategies holding
// an open position are locked: their allocation is never touched, and only
// the remaining cash is divided among the flat ones.
type CapitalAllocator struct {
	method AllocationMethod
	scorer *PerformanceScorer
	log    *slog.Logger
}

func newCapitalAllocator(method AllocationMethod, scorer *PerformanceScorer, log *slog.Logger) *CapitalAllocator {
	return &CapitalAllocator{method: method, scorer: scorer, log: log}
}

// Rebalance computes a new distribution and applies it to the unlocked
// strategies. Returns nil when no strategy is eligible. The order slice
// fixes visitation order so repeated runs allocate identically.
func (a *CapitalAllocator) Rebalance(date time.Time, order []string, states map[string]*StrategyState, cash decimal.Decimal, trades []types.Trade) *types.AllocationSnapshot {
	var unlocked []string
	locked := decimal.Zero
	for _, name := range order {
		if states[name].locked() {
			locked = locked.Add(states[name].allocatedCapital)
		} else {
			unlocked = append(unlocked, name)
		}
	}
	if len(unlocked) == 0 {
		return nil
	}

	total := cash.Add(locked)
	available := cash

	weights := a.weights(unlocked, trades, date)

	snapshot := &types.AllocationSnapshot{
		Timestamp:    date,
		TotalCapital: total,
		Strategies:   make(map[string]types.AllocationEntry, len(order)),
	}

	for _, name := range order {
		state := states[name]
		if state.locked() {
			snapshot.Strategies[name] = types.AllocationEntry{
				Allocated: state.allocatedCapital,
				Locked:    true,
			}
			continue
		}
		w := weights[name]
		allocated := available.Mul(decimal.NewFromFloat(w))
		state.reallocate(allocated, w, date)
		snapshot.Strategies[name] = types.AllocationEntry{
			Allocated: allocated,
			Score:     w,
		}
		a.log.Debug("allocated capital",
			"strategy", name, "allocated", allocated, "weight", w)
	}

	return snapshot
}

// weights maps each unlocked strategy to its share of available capital.
func (a *CapitalAllocator) weights(unlocked []string, trades []types.Trade, date time.Time) map[string]float64 {
	weights := make(map[string]float64, len(unlocked))

	if a.method == MethodEqualWeight {
		for _, name := range unlocked {
			weights[name] = 1.0 / float64(len(unlocked))
		}
		return weights
	}

	scores := make(map[string]float64, len(unlocked))
	totalScore := 0.0
	for _, name := range unlocked {
		score := a.scorer.Score(trades, name, date)
		scores[name] = score
		totalScore += score
	}

	for _, name := range unlocked {
		if totalScore > 0 {
			weights[name] = scores[name] / totalScore
		} else {
			weights[name] = 1.0 / float64(len(unlocked))
		}
	}
	return weights
}
