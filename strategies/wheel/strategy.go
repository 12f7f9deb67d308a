// Package wheel sells out-of-the-money puts against the allocated capital,
// buys them back at a take-profit threshold, and otherwise rides them to
// assignment or expiration. Premiums are estimated from the underlying price;
// there is no analytical option pricing here.
package wheel

import (
	"fmt"
	"time"

	"multistrat/types"

	"github.com/shopspring/decimal"
)

const (
	strikeDiscount  = 0.95 // strike 5% below spot
	premiumEstimate = 0.02 // premium heuristic: 2% of spot
	contractShares  = 100
	holdingDays     = 21 // roughly one month of trading days
)

type Strategy struct {
	symbol        string
	takeProfitPct float64

	allocated decimal.Decimal

	optionOpen bool
	strike     decimal.Decimal
	premium    decimal.Decimal
	contracts  decimal.Decimal
	daysHeld   int
}

func New(symbol string, takeProfitPct float64) *Strategy {
	if takeProfitPct <= 0 {
		takeProfitPct = 0.30
	}
	return &Strategy{symbol: symbol, takeProfitPct: takeProfitPct}
}

func (s *Strategy) Name() string { return "Wheel" }
func (s *Strategy) RequiredSymbols() []string { return []string{s.symbol} }
func (s *Strategy) RequiresIntradayData() bool { return false }

func (s *Strategy) CanRebalance(date time.Time) bool {
	return date.Weekday() == time.Friday
}

func (s *Strategy) SetAllocatedCapital(capital decimal.Decimal) {
	s.allocated = capital
}

func (s *Strategy) OnMinuteBar(time.Time, map[string]types.Bar) *types.Signal {
	return nil
}

func (s *Strategy) OnBar(date time.Time, bars map[string]types.Bar) *types.Signal {
	b, ok := bars[s.symbol]
	if !ok {
		return nil
	}
	spot := b.Close

	if !s.optionOpen {
		return s.sellPut(spot)
	}

	s.daysHeld++

	if s.daysHeld >= holdingDays {
		intrinsic := s.strike.Sub(spot)
		if intrinsic.IsPositive() {
			return s.close(types.ActionAssignedPut, intrinsic,
				fmt.Sprintf("assigned, spot %s below strike %s", spot.StringFixed(2), s.strike.StringFixed(2)))
		}
		return s.close(types.ActionExpired, s.premium, "expired worthless")
	}

	// Take profit when the put has decayed enough to buy back cheaply.
	current := s.estimatePremium(spot)
	target := s.premium.Mul(decimal.NewFromFloat(1 - s.takeProfitPct))
	if current.LessThanOrEqual(target) {
		return s.close(types.ActionBuyOption, current, "take profit buyback")
	}
	return nil
}

func (s *Strategy) sellPut(spot decimal.Decimal) *types.Signal {
	strike := spot.Mul(decimal.NewFromFloat(strikeDiscount)).Round(0)
	if !strike.IsPositive() {
		return nil
	}
	contracts := s.allocated.Div(strike.Mul(decimal.NewFromInt(contractShares))).Floor()
	if !contracts.IsPositive() {
		return nil
	}
	premium := spot.Mul(decimal.NewFromFloat(premiumEstimate))

	s.optionOpen = true
	s.strike = strike
	s.premium = premium
	s.contracts = contracts
	s.daysHeld = 0

	return types.NewSignal(types.ActionSellOption, s.symbol, contracts, premium,
		fmt.Sprintf("sell put, strike %s", strike.StringFixed(2)))
}

func (s *Strategy) close(action types.Action, price decimal.Decimal, reason string) *types.Signal {
	contracts := s.contracts
	s.optionOpen = false
	s.strike = decimal.Zero
	s.premium = decimal.Zero
	s.contracts = decimal.Zero
	s.daysHeld = 0
	return types.NewSignal(action, s.symbol, contracts, price, reason)
}

// estimatePremium decays the collected premium toward intrinsic value as the
// position ages.
func (s *Strategy) estimatePremium(spot decimal.Decimal) decimal.Decimal {
	remaining := float64(holdingDays-s.daysHeld) / float64(holdingDays)
	if remaining < 0 {
		remaining = 0
	}
	timeValue := s.premium.Mul(decimal.NewFromFloat(remaining))
	intrinsic := s.strike.Sub(spot)
	if intrinsic.IsNegative() {
		intrinsic = decimal.Zero
	}
	return intrinsic.Add(timeValue)
}
