package orb

import (
	"testing"
	"time"

	"multistrat/types"

	"github.com/shopspring/decimal"
)

func minuteBar(high, low, close string) map[string]types.Bar {
	return map[string]types.Bar{
		"QQQ": {
			Symbol: "QQQ",
			High:   decimal.RequireFromString(high),
			Low:    decimal.RequireFromString(low),
			Close:  decimal.RequireFromString(close),
		},
	}
}

func minute(day, h, m int) time.Time {
	return time.Date(2024, 1, day, h, m, 0, 0, time.UTC)
}

func newTestStrategy() *Strategy {
	s := New("QQQ", 2)
	s.SetAllocatedCapital(decimal.RequireFromString("10000"))
	return s
}

// buildRange feeds the two opening-range minutes: range 99..101.
func buildRange(t *testing.T, s *Strategy, day int) {
	t.Helper()
	if sig := s.OnMinuteBar(minute(day, 9, 30), minuteBar("100", "99", "99.5")); sig != nil {
		t.Fatalf("signal inside opening range = %+v, want nil", sig)
	}
	if sig := s.OnMinuteBar(minute(day, 9, 31), minuteBar("101", "99.5", "100.5")); sig != nil {
		t.Fatalf("signal inside opening range = %+v, want nil", sig)
	}
}

func TestBreakoutEntry(t *testing.T) {
	s := newTestStrategy()
	buildRange(t, s, 2)

	// Still inside the range: no trade.
	if sig := s.OnMinuteBar(minute(2, 9, 32), minuteBar("101", "100", "100.8")); sig != nil {
		t.Fatalf("signal inside range = %+v, want nil", sig)
	}

	sig := s.OnMinuteBar(minute(2, 9, 33), minuteBar("102", "101", "101.5"))
	if sig == nil || sig.Action != types.ActionBuy {
		t.Fatalf("signal = %+v, want BUY on break above range high", sig)
	}
	if !sig.Quantity.Equal(decimal.RequireFromString("98")) {
		t.Errorf("quantity = %s, want 98 (10000 / 101.5 floored)", sig.Quantity)
	}
}

func TestStopOnRangeLowBreach(t *testing.T) {
	s := newTestStrategy()
	buildRange(t, s, 2)
	if sig := s.OnMinuteBar(minute(2, 9, 33), minuteBar("102", "101", "101.5")); sig == nil {
		t.Fatal("setup entry failed")
	}

	sig := s.OnMinuteBar(minute(2, 10, 0), minuteBar("99", "98", "98.5"))
	if sig == nil || sig.Action != types.ActionSell {
		t.Fatalf("signal = %+v, want SELL below range low", sig)
	}
	if !sig.Quantity.Equal(decimal.RequireFromString("98")) {
		t.Errorf("exit quantity = %s, want full position", sig.Quantity)
	}

	// Stopped out: no second entry the same day.
	if sig := s.OnMinuteBar(minute(2, 10, 1), minuteBar("103", "102", "102.5")); sig != nil {
		t.Errorf("re-entry after stop = %+v, want nil", sig)
	}
}

func TestFlatAtSessionClose(t *testing.T) {
	s := newTestStrategy()
	buildRange(t, s, 2)
	if sig := s.OnMinuteBar(minute(2, 9, 33), minuteBar("102", "101", "101.5")); sig == nil {
		t.Fatal("setup entry failed")
	}

	sig := s.OnMinuteBar(minute(2, 15, 45), minuteBar("102", "101", "101.8"))
	if sig == nil || sig.Action != types.ActionSell {
		t.Fatalf("signal = %+v, want SELL at session close", sig)
	}
	if sig.Reason != "session close" {
		t.Errorf("reason = %q, want %q", sig.Reason, "session close")
	}
}

func TestRangeResetsNextDay(t *testing.T) {
	s := newTestStrategy()
	buildRange(t, s, 2)
	if sig := s.OnMinuteBar(minute(2, 9, 33), minuteBar("102", "101", "101.5")); sig == nil {
		t.Fatal("setup entry failed")
	}
	if sig := s.OnMinuteBar(minute(2, 15, 45), minuteBar("102", "101", "101.8")); sig == nil {
		t.Fatal("setup session-close exit failed")
	}

	// A new day builds a fresh range; yesterday's levels are gone.
	buildRange(t, s, 3)
	sig := s.OnMinuteBar(minute(3, 9, 33), minuteBar("102", "101", "101.5"))
	if sig == nil || sig.Action != types.ActionBuy {
		t.Fatalf("signal = %+v, want fresh BUY the next day", sig)
	}
}
