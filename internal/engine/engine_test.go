package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"multistrat/types"

	"github.com/shopspring/decimal"
)

type mockStore struct {
	daily   map[string][]types.Bar
	minutes map[string][]types.Bar
}

func (m *mockStore) GetAssetByTicker(ticker string, _ context.Context) (*types.Asset, error) {
	return &types.Asset{Id: 1, Ticker: ticker}, nil
}

func (m *mockStore) GetBars(_ int, ticker string, interval types.Interval, _, _ time.Time, _ context.Context) ([]types.Bar, error) {
	src := m.daily
	if interval == types.OneMinute {
		src = m.minutes
	}
	bars, ok := src[ticker]
	if !ok || len(bars) == 0 {
		return nil, errors.New("no bars in mock")
	}
	return bars, nil
}

// buyHoldSell buys everything on its first bar and sells on its third.
type buyHoldSell struct {
	symbol    string
	seen      int
	quantity  decimal.Decimal
	allocated decimal.Decimal
}

func (s *buyHoldSell) Name() string { return "hold" }
func (s *buyHoldSell) RequiredSymbols() []string { return []string{s.symbol} }
func (s *buyHoldSell) RequiresIntradayData() bool { return false }
func (s *buyHoldSell) CanRebalance(time.Time) bool { return false }
func (s *buyHoldSell) SetAllocatedCapital(c decimal.Decimal) { s.allocated = c }

func (s *buyHoldSell) OnMinuteBar(time.Time, map[string]types.Bar) *types.Signal {
	return nil
}

func (s *buyHoldSell) OnBar(_ time.Time, bars map[string]types.Bar) *types.Signal {
	b, ok := bars[s.symbol]
	if !ok {
		return nil
	}
	s.seen++
	switch s.seen {
	case 1:
		s.quantity = s.allocated.Div(b.Close).Floor()
		return types.NewSignal(types.ActionBuy, s.symbol, s.quantity, b.Close, "open")
	case 3:
		return types.NewSignal(types.ActionSell, s.symbol, s.quantity, b.Close, "close")
	}
	return nil
}

func dailyBars(symbol string, closes ...string) []types.Bar {
	bars := make([]types.Bar, 0, len(closes))
	for i, c := range closes {
		price := decimal.RequireFromString(c)
		bars = append(bars, types.Bar{
			Symbol:    symbol,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Interval:  types.Day,
			Timestamp: time.Date(2024, 1, 2+i, 0, 0, 0, 0, time.UTC),
		})
	}
	return bars
}

func runOnce(t *testing.T) *Result {
	t.Helper()
	db := &mockStore{daily: map[string][]types.Bar{"X": dailyBars("X", "100", "110", "90")}}
	cfg := NewConfig(decimal.RequireFromString("1000"), MethodEqualWeight, "X", 90)

	eng, err := NewEngine(cfg, db, slog.New(slog.DiscardHandler), &buyHoldSell{symbol: "X"})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	res, err := eng.Run(context.Background(),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return res
}

func TestRunEndToEnd(t *testing.T) {
	res := runOnce(t)

	if len(res.Trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(res.Trades))
	}
	buy, sell := res.Trades[0], res.Trades[1]
	if !buy.Quantity.Equal(decimal.RequireFromString("10")) {
		t.Errorf("buy quantity = %s, want 10", buy.Quantity)
	}
	if sell.PnL == nil || !sell.PnL.Equal(decimal.RequireFromString("-100")) {
		t.Errorf("sell pnl = %v, want -100", sell.PnL)
	}
	if sell.PnLPercent == nil || !sell.PnLPercent.Equal(decimal.RequireFromString("-10")) {
		t.Errorf("sell pnl percent = %v, want -10", sell.PnLPercent)
	}

	wantEquity := []string{"1000", "1100", "900"}
	if len(res.Equity) != len(wantEquity) {
		t.Fatalf("equity points = %d, want %d", len(res.Equity), len(wantEquity))
	}
	for i, want := range wantEquity {
		if !res.Equity[i].Equity.Equal(decimal.RequireFromString(want)) {
			t.Errorf("equity[%d] = %s, want %s", i, res.Equity[i].Equity, want)
		}
	}

	if !res.Summary.FinalEquity.Equal(decimal.RequireFromString("900")) {
		t.Errorf("final equity = %s, want 900", res.Summary.FinalEquity)
	}
	if math.Abs(res.Summary.MaxDrawdownPct-18.1818) > 0.01 {
		t.Errorf("max drawdown = %v, want ~18.18", res.Summary.MaxDrawdownPct)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	first := runOnce(t)
	second := runOnce(t)

	a, _ := json.Marshal(first.Trades)
	b, _ := json.Marshal(second.Trades)
	if string(a) != string(b) {
		t.Errorf("trade logs differ across identical runs")
	}

	a, _ = json.Marshal(first.Equity)
	b, _ = json.Marshal(second.Equity)
	if string(a) != string(b) {
		t.Errorf("equity points differ across identical runs")
	}
}

// panicky blows up on every bar; the run must carry on without it.
type panicky struct{}

func (panicky) Name() string { return "panicky" }
func (panicky) RequiredSymbols() []string { return []string{"X"} }
func (panicky) RequiresIntradayData() bool { return false }
func (panicky) CanRebalance(time.Time) bool { return false }
func (panicky) SetAllocatedCapital(decimal.Decimal) {}
func (panicky) OnMinuteBar(time.Time, map[string]types.Bar) *types.Signal {
	return nil
}
func (panicky) OnBar(time.Time, map[string]types.Bar) *types.Signal {
	panic("boom")
}

func TestStrategyPanicIsIsolated(t *testing.T) {
	db := &mockStore{daily: map[string][]types.Bar{"X": dailyBars("X", "100", "110", "90")}}
	cfg := NewConfig(decimal.RequireFromString("1000"), MethodEqualWeight, "X", 90)

	eng, err := NewEngine(cfg, db, slog.New(slog.DiscardHandler), panicky{}, &buyHoldSell{symbol: "X"})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	res, err := eng.Run(context.Background(),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var holdTrades int
	for _, tr := range res.Trades {
		if tr.Strategy == "hold" {
			holdTrades++
		}
	}
	if holdTrades == 0 {
		t.Errorf("healthy strategy produced no trades next to a panicking one")
	}
}

func TestNewEngineConfigErrors(t *testing.T) {
	db := &mockStore{}
	log := slog.New(slog.DiscardHandler)
	cash := decimal.RequireFromString("1000")

	tests := []struct {
		name       string
		cfg        *Config
		strategies []Strategy
		wantErr    error
	}{
		{
			name:    "no strategies",
			cfg:     NewConfig(cash, MethodEqualWeight, "X", 90),
			wantErr: ErrNoStrategies,
		},
		{
			name:       "unknown allocation method",
			cfg:        NewConfig(cash, "martingale", "X", 90),
			strategies: []Strategy{&buyHoldSell{symbol: "X"}},
			wantErr:    ErrUnknownAllocationMethod,
		},
		{
			name:       "non-positive initial cash",
			cfg:        NewConfig(decimal.Zero, MethodEqualWeight, "X", 90),
			strategies: []Strategy{&buyHoldSell{symbol: "X"}},
			wantErr:    ErrInvalidInitialCash,
		},
		{
			name:       "duplicate strategy names",
			cfg:        NewConfig(cash, MethodEqualWeight, "X", 90),
			strategies: []Strategy{&buyHoldSell{symbol: "X"}, &buyHoldSell{symbol: "X"}},
			wantErr:    ErrDuplicateStrategy,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewEngine(tt.cfg, db, log, tt.strategies...); !errors.Is(err, tt.wantErr) {
				t.Errorf("NewEngine() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
