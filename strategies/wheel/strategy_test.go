package wheel

import (
	"testing"
	"time"

	"multistrat/types"

	"github.com/shopspring/decimal"
)

func spotBar(close string) map[string]types.Bar {
	return map[string]types.Bar{
		"SPY": {Symbol: "SPY", Close: decimal.RequireFromString(close)},
	}
}

func tradingDay(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func newTestStrategy(allocated string) *Strategy {
	s := New("SPY", 0.30)
	s.SetAllocatedCapital(decimal.RequireFromString(allocated))
	return s
}

// sellEntry opens the standard test position: spot 100, strike 95, premium 2,
// 5 contracts against 50k of capital.
func sellEntry(t *testing.T, s *Strategy) {
	t.Helper()
	sig := s.OnBar(tradingDay(0), spotBar("100"))
	if sig == nil || sig.Action != types.ActionSellOption {
		t.Fatalf("setup entry failed, signal = %+v", sig)
	}
}

func TestSellPut(t *testing.T) {
	s := newTestStrategy("50000")

	sig := s.OnBar(tradingDay(0), spotBar("100"))
	if sig == nil {
		t.Fatal("no signal with idle capital")
	}
	if sig.Action != types.ActionSellOption {
		t.Errorf("action = %s, want SELL_OPTION", sig.Action)
	}
	if !sig.Quantity.Equal(decimal.RequireFromString("5")) {
		t.Errorf("contracts = %s, want 5 (50000 / (95 * 100) floored)", sig.Quantity)
	}
	if !sig.Price.Equal(decimal.RequireFromString("2")) {
		t.Errorf("premium = %s, want 2", sig.Price)
	}
}

func TestNoSaleWithoutContractSizedCapital(t *testing.T) {
	s := newTestStrategy("5000")
	if sig := s.OnBar(tradingDay(0), spotBar("100")); sig != nil {
		t.Errorf("signal = %+v, want nil when capital covers no contract", sig)
	}
}

func TestTakeProfitBuyback(t *testing.T) {
	s := newTestStrategy("50000")
	sellEntry(t, s)

	// Flat spot: the premium is pure time value decaying toward zero. With a
	// 30% take-profit it crosses the target on day 7.
	for d := 1; d <= 6; d++ {
		if sig := s.OnBar(tradingDay(d), spotBar("100")); sig != nil {
			t.Fatalf("day %d: signal = %+v, want nil before the target", d, sig)
		}
	}
	sig := s.OnBar(tradingDay(7), spotBar("100"))
	if sig == nil || sig.Action != types.ActionBuyOption {
		t.Fatalf("signal = %+v, want BUY_OPTION take-profit", sig)
	}
	if sig.Price.GreaterThan(decimal.RequireFromString("1.4")) {
		t.Errorf("buyback price = %s, want at most 70%% of collected premium", sig.Price)
	}
}

func TestAssignmentWhenInTheMoney(t *testing.T) {
	s := newTestStrategy("50000")
	sellEntry(t, s)

	var sig *types.Signal
	for d := 1; d <= holdingDays; d++ {
		if sig = s.OnBar(tradingDay(d), spotBar("90")); sig != nil {
			break
		}
	}
	if sig == nil || sig.Action != types.ActionAssignedPut {
		t.Fatalf("signal = %+v, want ASSIGNED_PUT at expiry in the money", sig)
	}
	if !sig.Price.Equal(decimal.RequireFromString("5")) {
		t.Errorf("settlement price = %s, want intrinsic 5 (strike 95 - spot 90)", sig.Price)
	}
	if !sig.Quantity.Equal(decimal.RequireFromString("5")) {
		t.Errorf("contracts = %s, want 5", sig.Quantity)
	}
}

func TestExpiresWorthlessOutOfTheMoney(t *testing.T) {
	s := newTestStrategy("50000")
	sellEntry(t, s)

	// Deep enough in the money mid-hold that no take-profit triggers, then a
	// recovery past the strike right at expiry.
	for d := 1; d < holdingDays; d++ {
		if sig := s.OnBar(tradingDay(d), spotBar("90")); sig != nil {
			t.Fatalf("day %d: signal = %+v, want nil mid-hold", d, sig)
		}
	}
	sig := s.OnBar(tradingDay(holdingDays), spotBar("100"))
	if sig == nil || sig.Action != types.ActionExpired {
		t.Fatalf("signal = %+v, want EXPIRED out of the money", sig)
	}
	if !sig.Price.Equal(decimal.RequireFromString("2")) {
		t.Errorf("expiry price = %s, want full collected premium 2", sig.Price)
	}
}

func TestSellsAgainAfterClose(t *testing.T) {
	s := newTestStrategy("50000")
	sellEntry(t, s)

	for d := 1; d <= 7; d++ {
		s.OnBar(tradingDay(d), spotBar("100"))
	}
	sig := s.OnBar(tradingDay(8), spotBar("100"))
	if sig == nil || sig.Action != types.ActionSellOption {
		t.Fatalf("signal = %+v, want a fresh SELL_OPTION after buyback", sig)
	}
}
