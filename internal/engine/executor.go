package engine

import (
	"fmt"
	"log/slog"
	"time"

	"multistrat/types"

	"github.com/shopspring/decimal"
)

var optionMultiplier = decimal.NewFromInt(100)

// TradeExecutor is the only component allowed to mutate the shared portfolio
// and per-strategy positions. It enforces solvency and the partial-fill
// policy, and owns the append-only trade log.
type TradeExecutor struct {
	portfolio *portfolio
	trades    []types.Trade
	matched   map[int]bool // trade log indices already matched by a closing leg
	log       *slog.Logger
}

func newTradeExecutor(p *portfolio, log *slog.Logger) *TradeExecutor {
	return &TradeExecutor{
		portfolio: p,
		matched:   make(map[int]bool),
		log:       log,
	}
}

func (e *TradeExecutor) Trades() []types.Trade {
	return e.trades
}

func (e *TradeExecutor) cash() decimal.Decimal {
	return e.portfolio.cash
}

// ExecuteBuy fills a buy against shared cash. A request worth more than the
// available cash degrades to floor(cash/price) shares; if not even one share
// is affordable the order is rejected and nothing is mutated.
func (e *TradeExecutor) ExecuteBuy(state *StrategyState, symbol string, price, requested decimal.Decimal, date time.Time, reason string) (*types.Trade, error) {
	if price.LessThanOrEqual(decimal.Zero) || requested.LessThanOrEqual(decimal.Zero) {
		return nil, nil
	}

	quantity := requested
	value := price.Mul(quantity)

	if value.GreaterThan(e.portfolio.cash) {
		if price.GreaterThan(e.portfolio.cash) {
			return nil, fmt.Errorf("%s %s x %s @ %s: %w",
				state.name, symbol, requested, price, ErrInsufficientFunds)
		}
		quantity = e.portfolio.cash.Div(price).Floor()
		value = price.Mul(quantity)
		e.log.Info("adjusted buy to available cash",
			"strategy", state.name, "symbol", symbol,
			"requested", requested, "filled", quantity)
	}

	e.portfolio.cash = e.portfolio.cash.Sub(value)
	e.portfolio.addShares(state.name, symbol, quantity, price)
	state.enterPosition(symbol, quantity, price, date)

	return e.append(types.Trade{
		Date:     date,
		Symbol:   symbol,
		Action:   types.ActionBuy,
		Quantity: quantity,
		Price:    price,
		Value:    value,
		Strategy: state.name,
		Reason:   reason,
	}), nil
}

// ExecuteSell closes up to the held quantity. Selling a symbol the strategy
// never bought is a logged no-op, never an error. Realized pnl is matched
// against the most recent unmatched buy for the same strategy and symbol.
func (e *TradeExecutor) ExecuteSell(state *StrategyState, symbol string, price, requested decimal.Decimal, date time.Time, reason string) (*types.Trade, error) {
	if price.LessThanOrEqual(decimal.Zero) || requested.LessThanOrEqual(decimal.Zero) {
		return nil, nil
	}

	pos := e.portfolio.position(state.name, symbol)
	if pos == nil || pos.Quantity.IsZero() {
		e.log.Warn("sell without position ignored", "strategy", state.name, "symbol", symbol)
		return nil, nil
	}

	quantity := decimal.Min(requested, pos.Quantity)
	proceeds := price.Mul(quantity)

	e.portfolio.cash = e.portfolio.cash.Add(proceeds)
	e.portfolio.removeShares(state.name, symbol, quantity)
	state.exitPosition(quantity)

	trade := types.Trade{
		Date:     date,
		Symbol:   symbol,
		Action:   types.ActionSell,
		Quantity: quantity,
		Price:    price,
		Value:    proceeds,
		Strategy: state.name,
		Reason:   reason,
	}

	if i, ok := e.findOpenTrade(state.name, symbol, types.ActionBuy); ok {
		e.matched[i] = true
		costBasis := e.trades[i].Price.Mul(quantity)
		pnl := proceeds.Sub(costBasis)
		trade.PnL = &pnl
		if costBasis.IsPositive() {
			pct := pnl.Div(costBasis).Mul(decimal.NewFromInt(100))
			trade.PnLPercent = &pct
		}
	}

	return e.append(trade), nil
}

// ExecuteOption applies an option leg. Contracts are valued at premium x
// contracts x 100 and never move the underlying share position; only cash
// and the strategy's own position state change.
func (e *TradeExecutor) ExecuteOption(state *StrategyState, action types.Action, symbol string, premium, contracts decimal.Decimal, date time.Time, reason string) (*types.Trade, error) {
	if contracts.LessThanOrEqual(decimal.Zero) || premium.IsNegative() {
		return nil, nil
	}

	value := premium.Mul(contracts).Mul(optionMultiplier)

	trade := types.Trade{
		Date:     date,
		Symbol:   symbol,
		Action:   action,
		Quantity: contracts,
		Price:    premium,
		Value:    value,
		Strategy: state.name,
		Reason:   reason,
	}

	switch action {
	case types.ActionSellOption:
		e.portfolio.cash = e.portfolio.cash.Add(value)
		state.enterPosition(symbol, contracts, premium, date)

	case types.ActionBuyOption:
		if value.GreaterThan(e.portfolio.cash) {
			perContract := premium.Mul(optionMultiplier)
			if perContract.GreaterThan(e.portfolio.cash) {
				return nil, fmt.Errorf("%s close %s x %s: %w",
					state.name, symbol, contracts, ErrInsufficientFunds)
			}
			contracts = e.portfolio.cash.Div(perContract).Floor()
			value = premium.Mul(contracts).Mul(optionMultiplier)
			trade.Quantity = contracts
			trade.Value = value
			e.log.Info("adjusted option close to available cash",
				"strategy", state.name, "symbol", symbol, "contracts", contracts)
		}
		e.portfolio.cash = e.portfolio.cash.Sub(value)
		e.settleOption(state, &trade, value, contracts)

	case types.ActionAssignedPut, types.ActionAssignedCall:
		// Settled in cash at the intrinsic premium; a settlement larger
		// than the remaining cash is clamped to keep the ledger solvent.
		debit := value
		if debit.GreaterThan(e.portfolio.cash) {
			debit = e.portfolio.cash
			e.log.Warn("assignment settlement clamped to available cash",
				"strategy", state.name, "symbol", symbol, "value", value)
		}
		e.portfolio.cash = e.portfolio.cash.Sub(debit)
		e.settleOption(state, &trade, debit, contracts)

	case types.ActionExpired:
		// Premium was collected when the option was sold; expiration
		// crystallizes it without any cash movement.
		e.settleOption(state, &trade, decimal.Zero, contracts)

	default:
		return nil, nil
	}

	return e.append(trade), nil
}

// settleOption matches a closing option leg against the most recent unmatched
// sell-to-open and fills in realized pnl.
func (e *TradeExecutor) settleOption(state *StrategyState, trade *types.Trade, cost, contracts decimal.Decimal) {
	if i, ok := e.findOpenTrade(state.name, trade.Symbol, types.ActionSellOption); ok {
		e.matched[i] = true
		collected := e.trades[i].Price.Mul(contracts).Mul(optionMultiplier)
		pnl := collected.Sub(cost)
		trade.PnL = &pnl
		if collected.IsPositive() {
			pct := pnl.Div(collected).Mul(decimal.NewFromInt(100))
			trade.PnLPercent = &pct
		}
	}
	state.exitPosition(contracts)
}

// findOpenTrade scans the trade log in reverse for the most recent unmatched
// trade of the given action for a strategy and symbol.
func (e *TradeExecutor) findOpenTrade(strategy, symbol string, action types.Action) (int, bool) {
	for i := len(e.trades) - 1; i >= 0; i-- {
		t := e.trades[i]
		if t.Strategy == strategy && t.Symbol == symbol && t.Action == action && !e.matched[i] {
			return i, true
		}
	}
	return -1, false
}

func (e *TradeExecutor) append(trade types.Trade) *types.Trade {
	e.trades = append(e.trades, trade)
	return &e.trades[len(e.trades)-1]
}
