package types

import (
	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionBuy          Action = "BUY"
	ActionSell         Action = "SELL"
	ActionSellOption   Action = "SELL_OPTION"
	ActionBuyOption    Action = "BUY_OPTION"
	ActionAssignedPut  Action = "ASSIGNED_PUT"
	ActionAssignedCall Action = "ASSIGNED_CALL"
	ActionExpired      Action = "EXPIRED"
)

// IsOption reports whether the action moves option premium rather than shares.
func (a Action) IsOption() bool {
	switch a {
	case ActionSellOption, ActionBuyOption, ActionAssignedPut, ActionAssignedCall, ActionExpired:
		return true
	}
	return false
}

// IsClosing reports whether the action closes a position and can carry realized pnl.
func (a Action) IsClosing() bool {
	switch a {
	case ActionSell, ActionBuyOption, ActionAssignedPut, ActionAssignedCall, ActionExpired:
		return true
	}
	return false
}

// Signal is a strategy's trade request. For share actions Price is the fill
// price and Quantity the share count. For option actions Price is the premium
// per share and Quantity the contract count.
type Signal struct {
	Action   Action
	Symbol   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Reason   string
}

func NewSignal(action Action, symbol string, quantity, price decimal.Decimal, reason string) *Signal {
	return &Signal{
		Action:   action,
		Symbol:   symbol,
		Quantity: quantity,
		Price:    price,
		Reason:   reason,
	}
}
