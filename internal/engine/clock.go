package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"multistrat/types"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
)

const dateKey = "2006-01-02"

// simulationClock replays the trading calendar, giving every registered
// strategy exactly one decision opportunity per bar in a fixed causal order.
// Daily handlers always run before intraday handlers on the same date.
type simulationClock struct {
	cfg        *Config
	strategies []Strategy
	order      []string
	states     map[string]*StrategyState

	portfolio *portfolio
	executor  *TradeExecutor
	allocator *CapitalAllocator

	calendar []time.Time
	symbols  []string
	daily    map[string]map[string]types.Bar // symbol -> date key -> bar
	minutes  map[string][]types.Bar          // symbol -> minute bars, ascending

	intraday  []Strategy
	minuteIdx map[string]int

	lastClose   map[string]decimal.Decimal
	equity      []types.EquityPoint
	allocations []types.AllocationSnapshot

	log *slog.Logger
}

func newSimulationClock(
	cfg *Config,
	strategies []Strategy,
	allocator *CapitalAllocator,
	calendar []time.Time,
	daily map[string]map[string]types.Bar,
	minutes map[string][]types.Bar,
	log *slog.Logger,
) *simulationClock {
	p := newPortfolio(cfg.initialCash)

	order := make([]string, 0, len(strategies))
	states := make(map[string]*StrategyState, len(strategies))
	var intraday []Strategy
	symbolSet := make(map[string]bool)
	for _, s := range strategies {
		order = append(order, s.Name())
		states[s.Name()] = newStrategyState(s.Name(), decimal.Zero)
		if s.RequiresIntradayData() {
			intraday = append(intraday, s)
		}
		for _, sym := range s.RequiredSymbols() {
			symbolSet[sym] = true
		}
	}
	symbolSet[cfg.referenceSymbol] = true

	symbols := make([]string, 0, len(symbolSet))
	for sym := range symbolSet {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	minuteIdx := make(map[string]int, len(minutes))
	for sym := range minutes {
		minuteIdx[sym] = 0
	}

	return &simulationClock{
		cfg:        cfg,
		strategies: strategies,
		order:      order,
		states:     states,
		portfolio:  p,
		executor:   newTradeExecutor(p, log),
		allocator:  allocator,
		calendar:   calendar,
		symbols:    symbols,
		daily:      daily,
		minutes:    minutes,
		intraday:   intraday,
		minuteIdx:  minuteIdx,
		lastClose:  make(map[string]decimal.Decimal),
		log:        log,
	}
}

func (c *simulationClock) run() error {
	c.initAllocations()

	bar := initProgressBar(len(c.calendar))
	last := len(c.calendar) - 1
	for i, date := range c.calendar {
		c.maybeRebalance(date)

		dayBars := c.collectDaily(date)
		for _, strat := range c.strategies {
			c.dispatchDaily(strat, date, dayBars)
		}
		c.dispatchIntraday(date)

		if i == last {
			c.forceClose(date)
		}
		c.recordEquity(date)
		_ = bar.Add(1)
	}
	return nil
}

// initAllocations splits initial cash equally, regardless of the configured
// method; risk-adjusted weights need trade history that does not exist yet.
func (c *simulationClock) initAllocations() {
	n := decimal.NewFromInt(int64(len(c.strategies)))
	share := c.cfg.initialCash.Div(n)
	weight := 1.0 / float64(len(c.strategies))
	start := time.Time{}
	if len(c.calendar) > 0 {
		start = c.calendar[0]
	}
	for _, strat := range c.strategies {
		c.states[strat.Name()].reallocate(share, weight, start)
		strat.SetAllocatedCapital(share)
	}
}

func (c *simulationClock) maybeRebalance(date time.Time) {
	eligible := false
	for _, strat := range c.strategies {
		if !c.states[strat.Name()].locked() && strat.CanRebalance(date) {
			eligible = true
			break
		}
	}
	if !eligible {
		return
	}

	snap := c.allocator.Rebalance(date, c.order, c.states, c.portfolio.cash, c.executor.Trades())
	if snap == nil {
		return
	}
	c.allocations = append(c.allocations, *snap)
	for _, strat := range c.strategies {
		strat.SetAllocatedCapital(c.states[strat.Name()].allocatedCapital)
	}
}

// collectDaily gathers the day's bars for every tracked symbol and refreshes
// the last-known closes used for equity valuation.
func (c *simulationClock) collectDaily(date time.Time) map[string]types.Bar {
	key := date.Format(dateKey)
	dayBars := make(map[string]types.Bar)
	for _, sym := range c.symbols {
		if b, ok := c.daily[sym][key]; ok {
			dayBars[sym] = b
			c.lastClose[sym] = b.Close
		}
	}
	return dayBars
}

func (c *simulationClock) dispatchDaily(strat Strategy, date time.Time, dayBars map[string]types.Bar) {
	bars := make(map[string]types.Bar)
	for _, sym := range strat.RequiredSymbols() {
		if b, ok := dayBars[sym]; ok {
			bars[sym] = b
		}
	}
	if len(bars) == 0 {
		c.log.Debug("no bars for strategy, skipping", "strategy", strat.Name(), "date", date)
		return
	}

	if sig := c.safeOnBar(strat, date, bars); sig != nil {
		c.routeSignal(strat, sig, date)
	}
}

// dispatchIntraday merges the day's minute bars across every intraday
// strategy's symbols into one sorted timeline and replays it.
func (c *simulationClock) dispatchIntraday(date time.Time) {
	if len(c.intraday) == 0 {
		return
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	timeline := make(map[int64]map[string]types.Bar)
	for sym, bars := range c.minutes {
		i := c.minuteIdx[sym]
		for i < len(bars) && bars[i].Timestamp.Before(dayStart) {
			i++
		}
		for i < len(bars) && bars[i].Timestamp.Before(dayEnd) {
			unix := bars[i].Timestamp.Unix()
			if timeline[unix] == nil {
				timeline[unix] = make(map[string]types.Bar)
			}
			timeline[unix][sym] = bars[i]
			i++
		}
		c.minuteIdx[sym] = i
	}
	if len(timeline) == 0 {
		return
	}

	stamps := make([]int64, 0, len(timeline))
	for unix := range timeline {
		stamps = append(stamps, unix)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })

	for _, unix := range stamps {
		minuteBars := timeline[unix]
		ts := time.Unix(unix, 0).In(date.Location())
		for _, strat := range c.intraday {
			bars := make(map[string]types.Bar)
			for _, sym := range strat.RequiredSymbols() {
				if b, ok := minuteBars[sym]; ok {
					bars[sym] = b
				}
			}
			if len(bars) == 0 {
				continue
			}
			if sig := c.safeOnMinuteBar(strat, ts, bars); sig != nil {
				c.routeSignal(strat, sig, ts)
			}
		}
	}
}

// safeOnBar isolates strategy handler panics: one broken strategy must never
// abort the other strategies or the run.
func (c *simulationClock) safeOnBar(strat Strategy, date time.Time, bars map[string]types.Bar) (sig *types.Signal) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("strategy handler failed, treating as no signal",
				"strategy", strat.Name(), "date", date, "panic", fmt.Sprint(r))
			sig = nil
		}
	}()
	return strat.OnBar(date, bars)
}

func (c *simulationClock) safeOnMinuteBar(strat Strategy, ts time.Time, bars map[string]types.Bar) (sig *types.Signal) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("strategy handler failed, treating as no signal",
				"strategy", strat.Name(), "time", ts, "panic", fmt.Sprint(r))
			sig = nil
		}
	}()
	return strat.OnMinuteBar(ts, bars)
}

func (c *simulationClock) routeSignal(strat Strategy, sig *types.Signal, ts time.Time) {
	state := c.states[strat.Name()]
	var err error
	switch sig.Action {
	case types.ActionBuy:
		_, err = c.executor.ExecuteBuy(state, sig.Symbol, sig.Price, sig.Quantity, ts, sig.Reason)
	case types.ActionSell:
		_, err = c.executor.ExecuteSell(state, sig.Symbol, sig.Price, sig.Quantity, ts, sig.Reason)
	default:
		_, err = c.executor.ExecuteOption(state, sig.Action, sig.Symbol, sig.Price, sig.Quantity, ts, sig.Reason)
	}
	if err != nil {
		c.log.Warn("signal rejected", "strategy", strat.Name(), "action", sig.Action, "err", err)
	}
}

// forceClose liquidates every remaining position at the last known closes.
func (c *simulationClock) forceClose(date time.Time) {
	for _, name := range c.order {
		state := c.states[name]
		for _, sym := range c.portfolio.heldSymbols(name) {
			pos := c.portfolio.position(name, sym)
			price, ok := c.lastClose[sym]
			if !ok || !price.IsPositive() {
				c.log.Warn("no close price to liquidate position", "strategy", name, "symbol", sym)
				continue
			}
			if _, err := c.executor.ExecuteSell(state, sym, price, pos.Quantity, date, "end of simulation"); err != nil {
				c.log.Warn("forced close failed", "strategy", name, "symbol", sym, "err", err)
			}
		}
		// Open option positions have no share holdings; expire them.
		if state.inPosition && state.symbol != "" {
			if _, err := c.executor.ExecuteOption(state, types.ActionExpired, state.symbol,
				state.entryPrice, state.positionSize, date, "end of simulation"); err != nil {
				c.log.Warn("forced option close failed", "strategy", name, "err", err)
			}
		}
	}
}

// recordEquity appends one equity point valuing the portfolio at the last
// known closes, and one point per strategy.
func (c *simulationClock) recordEquity(date time.Time) {
	c.equity = append(c.equity, types.EquityPoint{
		Timestamp: date,
		Equity:    c.portfolio.equity(c.lastClose),
	})

	for _, name := range c.order {
		state := c.states[name]
		value := state.allocatedCapital
		if holdings := c.portfolio.holdings[name]; len(holdings) > 0 {
			value = decimal.Zero
			for sym, pos := range holdings {
				value = value.Add(pos.Quantity.Mul(c.lastClose[sym]))
			}
		}
		state.recordEquity(date, value)
	}
}

func initProgressBar(maxTicks int) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
