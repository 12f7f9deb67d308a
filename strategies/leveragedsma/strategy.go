// Package leveragedsma trades a leveraged ETF gated by a long moving average
// on its underlying index: enter near month end when the signal symbol closes
// above its SMA, exit when it closes below, with a hard intra-month stop.
package leveragedsma

import (
	"fmt"
	"time"

	"multistrat/types"

	talib "github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"
)

type Strategy struct {
	signalSymbol string
	tradeSymbol  string
	smaPeriod    int
	stopLossPct  float64

	allocated  decimal.Decimal
	closes     []float64
	inPosition bool
	quantity   decimal.Decimal
	entryPrice decimal.Decimal
}

func New(signalSymbol, tradeSymbol string, smaPeriod int, stopLossPct float64) *Strategy {
	if smaPeriod <= 0 {
		smaPeriod = 252
	}
	if stopLossPct <= 0 {
		stopLossPct = 0.05
	}
	return &Strategy{
		signalSymbol: signalSymbol,
		tradeSymbol:  tradeSymbol,
		smaPeriod:    smaPeriod,
		stopLossPct:  stopLossPct,
	}
}

func (s *Strategy) Name() string { return "LeveragedSMA" }

func (s *Strategy) RequiredSymbols() []string {
	return []string{s.signalSymbol, s.tradeSymbol}
}

func (s *Strategy) RequiresIntradayData() bool { return false }

// CanRebalance is true early in the month, when the strategy makes its
// entry/exit decisions anyway.
func (s *Strategy) CanRebalance(date time.Time) bool {
	return date.Day() <= 3
}

func (s *Strategy) SetAllocatedCapital(capital decimal.Decimal) {
	s.allocated = capital
}

func (s *Strategy) OnMinuteBar(time.Time, map[string]types.Bar) *types.Signal {
	return nil
}

func (s *Strategy) OnBar(date time.Time, bars map[string]types.Bar) *types.Signal {
	signalBar, ok := bars[s.signalSymbol]
	if !ok {
		return nil
	}
	s.closes = append(s.closes, signalBar.Close.InexactFloat64())
	if len(s.closes) < s.smaPeriod {
		return nil
	}

	sma := talib.Sma(s.closes, s.smaPeriod)
	curSMA := sma[len(sma)-1]
	aboveSMA := signalBar.Close.InexactFloat64() > curSMA

	tradeBar, ok := bars[s.tradeSymbol]
	if !ok {
		return nil
	}
	price := tradeBar.Close

	if s.inPosition {
		stop := s.entryPrice.Mul(decimal.NewFromFloat(1 - s.stopLossPct))
		switch {
		case price.LessThan(stop):
			return s.exit(price, fmt.Sprintf("stop loss below %s", stop.StringFixed(2)))
		case !aboveSMA && isMonthEnd(date):
			return s.exit(price, fmt.Sprintf("%s closed below SMA(%d)", s.signalSymbol, s.smaPeriod))
		}
		return nil
	}

	if aboveSMA && isMonthEnd(date) {
		qty := s.allocated.Div(price).Floor()
		if !qty.IsPositive() {
			return nil
		}
		s.inPosition = true
		s.quantity = qty
		s.entryPrice = price
		return types.NewSignal(types.ActionBuy, s.tradeSymbol, qty, price,
			fmt.Sprintf("%s above SMA(%d) at month end", s.signalSymbol, s.smaPeriod))
	}
	return nil
}

func (s *Strategy) exit(price decimal.Decimal, reason string) *types.Signal {
	qty := s.quantity
	s.inPosition = false
	s.quantity = decimal.Zero
	s.entryPrice = decimal.Zero
	return types.NewSignal(types.ActionSell, s.tradeSymbol, qty, price, reason)
}

// isMonthEnd approximates the last trading days of a calendar month.
func isMonthEnd(date time.Time) bool {
	return date.AddDate(0, 0, 3).Month() != date.Month()
}
