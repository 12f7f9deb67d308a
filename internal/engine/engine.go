package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"multistrat/internal/metrics"
	"multistrat/types"
)

type dataStore interface {
	GetAssetByTicker(ticker string, ctx context.Context) (*types.Asset, error)
	GetBars(assetId int, ticker string, interval types.Interval, start, end time.Time, ctx context.Context) ([]types.Bar, error)
}

// Engine wires the data store, strategies, allocator and clock together for
// one backtest run.
type Engine struct {
	cfg        *Config
	db         dataStore
	strategies []Strategy
	allocator  *CapitalAllocator
	log        *slog.Logger
}

// Result is the flat output of one run: the computed summary plus the raw
// append-only logs it was computed from.
type Result struct {
	Summary     metrics.Summary
	Trades      []types.Trade
	Equity      []types.EquityPoint
	Allocations []types.AllocationSnapshot
}

func NewEngine(cfg *Config, db dataStore, log *slog.Logger, strategies ...Strategy) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(strategies) == 0 {
		return nil, ErrNoStrategies
	}
	seen := make(map[string]bool)
	for _, s := range strategies {
		if seen[s.Name()] {
			return nil, fmt.Errorf("%q: %w", s.Name(), ErrDuplicateStrategy)
		}
		seen[s.Name()] = true
	}
	if log == nil {
		log = slog.Default()
	}

	scorer := NewPerformanceScorer(cfg.lookbackDays)
	return &Engine{
		cfg:        cfg,
		db:         db,
		strategies: strategies,
		allocator:  newCapitalAllocator(cfg.allocationMethod, scorer, log),
		log:        log,
	}, nil
}

// Run replays the date range and returns the computed result. The calendar
// is derived from the reference symbol's daily bars; symbols whose data is
// missing only silence the strategies that need them.
func (e *Engine) Run(ctx context.Context, start, end time.Time) (*Result, error) {
	daily, calendar, err := e.loadDaily(ctx, start, end)
	if err != nil {
		return nil, err
	}
	minutes, err := e.loadMinutes(ctx, start, end)
	if err != nil {
		return nil, err
	}

	clock := newSimulationClock(e.cfg, e.strategies, e.allocator, calendar, daily, minutes, e.log)
	if err := clock.run(); err != nil {
		return nil, err
	}

	weights := make(map[string]float64, len(clock.order))
	for _, name := range clock.order {
		weights[name] = clock.states[name].currentWeight
	}

	trades := clock.executor.Trades()
	return &Result{
		Summary:     metrics.Compute(e.cfg.initialCash, clock.equity, trades, weights),
		Trades:      trades,
		Equity:      clock.equity,
		Allocations: clock.allocations,
	}, nil
}

func (e *Engine) loadDaily(ctx context.Context, start, end time.Time) (map[string]map[string]types.Bar, []time.Time, error) {
	daily := make(map[string]map[string]types.Bar)
	var calendar []time.Time

	for _, sym := range e.requiredSymbols() {
		bars, err := e.loadBars(ctx, sym, types.Day, start, end)
		if err != nil {
			if sym == e.cfg.referenceSymbol {
				return nil, nil, fmt.Errorf("reference symbol %s: %w", sym, err)
			}
			e.log.Warn("no daily bars for symbol", "symbol", sym, "err", err)
			continue
		}

		byDate := make(map[string]types.Bar, len(bars))
		for _, b := range bars {
			byDate[b.Timestamp.Format(dateKey)] = b
		}
		daily[sym] = byDate

		if sym == e.cfg.referenceSymbol {
			for _, b := range bars {
				d := b.Timestamp
				calendar = append(calendar, time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location()))
			}
		}
	}

	if len(calendar) == 0 {
		return nil, nil, fmt.Errorf("reference symbol %s has no daily bars: %w", e.cfg.referenceSymbol, ErrDataUnavailable)
	}
	return daily, calendar, nil
}

func (e *Engine) loadMinutes(ctx context.Context, start, end time.Time) (map[string][]types.Bar, error) {
	symbolSet := make(map[string]bool)
	for _, s := range e.strategies {
		if !s.RequiresIntradayData() {
			continue
		}
		for _, sym := range s.RequiredSymbols() {
			symbolSet[sym] = true
		}
	}

	minutes := make(map[string][]types.Bar, len(symbolSet))
	for _, sym := range sortedKeys(symbolSet) {
		bars, err := e.loadBars(ctx, sym, types.OneMinute, start, end)
		if err != nil {
			e.log.Warn("no minute bars for symbol", "symbol", sym, "err", err)
			continue
		}
		minutes[sym] = bars
	}
	return minutes, nil
}

func (e *Engine) loadBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Bar, error) {
	asset, err := e.db.GetAssetByTicker(symbol, ctx)
	if err != nil {
		return nil, err
	}
	return e.db.GetBars(asset.Id, symbol, interval, start, end, ctx)
}

func (e *Engine) requiredSymbols() []string {
	symbolSet := map[string]bool{e.cfg.referenceSymbol: true}
	for _, s := range e.strategies {
		for _, sym := range s.RequiredSymbols() {
			symbolSet[sym] = true
		}
	}
	return sortedKeys(symbolSet)
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
