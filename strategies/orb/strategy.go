// Package orb implements an opening-range breakout on minute bars: the first
// half hour defines a range, a close above it enters long with the range low
// as stop, and everything is flat again before the session ends.
package orb

import (
	"fmt"
	"time"

	"multistrat/types"

	"github.com/shopspring/decimal"
)

const sessionCloseMinutes = 15*60 + 45 // 15:45, exchange-local

type Strategy struct {
	symbol         string
	openingMinutes int

	allocated decimal.Decimal

	curDay      string
	minutesSeen int
	rangeHigh   decimal.Decimal
	rangeLow    decimal.Decimal
	inPosition  bool
	quantity    decimal.Decimal
	tradedToday bool
}

func New(symbol string, openingMinutes int) *Strategy {
	if openingMinutes <= 0 {
		openingMinutes = 30
	}
	return &Strategy{symbol: symbol, openingMinutes: openingMinutes}
}

func (s *Strategy) Name() string { return "ORB" }
func (s *Strategy) RequiredSymbols() []string { return []string{s.symbol} }
func (s *Strategy) RequiresIntradayData() bool { return true }

func (s *Strategy) CanRebalance(date time.Time) bool {
	return date.Weekday() == time.Monday
}

func (s *Strategy) SetAllocatedCapital(capital decimal.Decimal) {
	s.allocated = capital
}

func (s *Strategy) OnBar(time.Time, map[string]types.Bar) *types.Signal {
	return nil
}

func (s *Strategy) OnMinuteBar(ts time.Time, bars map[string]types.Bar) *types.Signal {
	b, ok := bars[s.symbol]
	if !ok {
		return nil
	}

	day := ts.Format("2006-01-02")
	if day != s.curDay {
		s.curDay = day
		s.minutesSeen = 0
		s.rangeHigh = decimal.Zero
		s.rangeLow = decimal.Zero
		s.tradedToday = false
	}

	s.minutesSeen++
	if s.minutesSeen <= s.openingMinutes {
		if s.rangeHigh.IsZero() || b.High.GreaterThan(s.rangeHigh) {
			s.rangeHigh = b.High
		}
		if s.rangeLow.IsZero() || b.Low.LessThan(s.rangeLow) {
			s.rangeLow = b.Low
		}
		return nil
	}

	if s.inPosition {
		sessionEnd := ts.Hour()*60+ts.Minute() >= sessionCloseMinutes
		if b.Close.LessThan(s.rangeLow) || sessionEnd {
			reason := "stopped below opening range"
			if sessionEnd {
				reason = "session close"
			}
			qty := s.quantity
			s.inPosition = false
			s.quantity = decimal.Zero
			return types.NewSignal(types.ActionSell, s.symbol, qty, b.Close, reason)
		}
		return nil
	}

	if !s.tradedToday && b.Close.GreaterThan(s.rangeHigh) {
		qty := s.allocated.Div(b.Close).Floor()
		if !qty.IsPositive() {
			return nil
		}
		s.inPosition = true
		s.tradedToday = true
		s.quantity = qty
		return types.NewSignal(types.ActionBuy, s.symbol, qty, b.Close,
			fmt.Sprintf("break above %dm opening range %s", s.openingMinutes, s.rangeHigh.StringFixed(2)))
	}
	return nil
}
