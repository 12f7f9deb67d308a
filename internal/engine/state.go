package engine

import (
	"time"

	"multistrat/types"

	"github.com/shopspring/decimal"
)

// StrategyState is the engine-owned bookkeeping for one registered strategy.
// It is only mutated through the named transitions below.
type StrategyState struct {
	name             string
	allocatedCapital decimal.Decimal
	currentWeight    float64

	inPosition   bool
	symbol       string
	positionSize decimal.Decimal
	entryPrice   decimal.Decimal
	entryDate    time.Time

	equityHistory []types.EquityPoint
	lastRebalance time.Time
}

func newStrategyState(name string, allocated decimal.Decimal) *StrategyState {
	return &StrategyState{
		name:             name,
		allocatedCapital: allocated,
	}
}

// locked reports whether the strategy is excluded from reallocation.
func (s *StrategyState) locked() bool {
	return s.inPosition
}

// enterPosition records a fill that opens or scales into a position.
func (s *StrategyState) enterPosition(symbol string, quantity, price decimal.Decimal, date time.Time) {
	if !s.inPosition {
		s.entryPrice = price
		s.entryDate = date
		s.symbol = symbol
	}
	s.inPosition = true
	s.positionSize = s.positionSize.Add(quantity)
}

// exitPosition records a fill that reduces or closes a position.
func (s *StrategyState) exitPosition(quantity decimal.Decimal) {
	s.positionSize = s.positionSize.Sub(quantity)
	if s.positionSize.LessThanOrEqual(decimal.Zero) {
		s.inPosition = false
		s.positionSize = decimal.Zero
		s.entryPrice = decimal.Zero
		s.entryDate = time.Time{}
		s.symbol = ""
	}
}

// reallocate applies a new allocation decided by the CapitalAllocator.
func (s *StrategyState) reallocate(capital decimal.Decimal, weight float64, date time.Time) {
	s.allocatedCapital = capital
	s.currentWeight = weight
	s.lastRebalance = date
}

// recordEquity appends one point to the strategy's own equity history.
func (s *StrategyState) recordEquity(ts time.Time, value decimal.Decimal) {
	s.equityHistory = append(s.equityHistory, types.EquityPoint{Timestamp: ts, Equity: value})
}

func (s *StrategyState) AllocatedCapital() decimal.Decimal { return s.allocatedCapital }
func (s *StrategyState) Weight() float64 { return s.currentWeight }
func (s *StrategyState) InPosition() bool { return s.inPosition }
func (s *StrategyState) EquityHistory() []types.EquityPoint {
	return s.equityHistory
}
