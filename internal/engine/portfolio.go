package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Position is one strategy's lot in a symbol.
type Position struct {
	Quantity decimal.Decimal
	AvgPrice decimal.Decimal
}

// portfolio is the single shared ledger. Cash and positions are mutated by
// the TradeExecutor only; everything else gets read-only views.
//
// Invariant: for every symbol the sum of per-strategy quantities equals the
// shared quantity, and cash never goes negative.
type portfolio struct {
	cash      decimal.Decimal
	positions map[string]decimal.Decimal         // symbol -> shared quantity
	holdings  map[string]map[string]*Position    // strategy -> symbol -> lot
}

func newPortfolio(initialCash decimal.Decimal) *portfolio {
	return &portfolio{
		cash:      initialCash,
		positions: make(map[string]decimal.Decimal),
		holdings:  make(map[string]map[string]*Position),
	}
}

func (p *portfolio) position(strategy, symbol string) *Position {
	return p.holdings[strategy][symbol]
}

func (p *portfolio) addShares(strategy, symbol string, quantity, price decimal.Decimal) {
	p.positions[symbol] = p.positions[symbol].Add(quantity)

	if p.holdings[strategy] == nil {
		p.holdings[strategy] = make(map[string]*Position)
	}
	pos := p.holdings[strategy][symbol]
	if pos == nil {
		p.holdings[strategy][symbol] = &Position{Quantity: quantity, AvgPrice: price}
		return
	}
	pos.AvgPrice = weightedAvg(pos.AvgPrice, pos.Quantity, price, quantity)
	pos.Quantity = pos.Quantity.Add(quantity)
}

func (p *portfolio) removeShares(strategy, symbol string, quantity decimal.Decimal) {
	shared := p.positions[symbol].Sub(quantity)
	if shared.IsZero() {
		delete(p.positions, symbol)
	} else {
		p.positions[symbol] = shared
	}

	pos := p.holdings[strategy][symbol]
	pos.Quantity = pos.Quantity.Sub(quantity)
	if pos.Quantity.IsZero() {
		delete(p.holdings[strategy], symbol)
		if len(p.holdings[strategy]) == 0 {
			delete(p.holdings, strategy)
		}
	}
}

// heldSymbols returns the symbols a strategy holds, sorted for determinism.
func (p *portfolio) heldSymbols(strategy string) []string {
	symbols := make([]string, 0, len(p.holdings[strategy]))
	for sym := range p.holdings[strategy] {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// equity values the shared portfolio at the given closes.
func (p *portfolio) equity(closes map[string]decimal.Decimal) decimal.Decimal {
	value := p.cash
	for sym, qty := range p.positions {
		value = value.Add(qty.Mul(closes[sym]))
	}
	return value
}

func weightedAvg(existingAvgPrice, existingQty, newPrice, newQty decimal.Decimal) decimal.Decimal {
	if existingQty.IsZero() {
		return newPrice
	}
	return existingAvgPrice.Mul(existingQty).
		Add(newPrice.Mul(newQty)).
		Div(existingQty.Add(newQty))
}
