package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one executed fill. Records are append-only: once emitted a trade
// is never rewritten, except for the one-time pnl fill-in on a closing leg.
type Trade struct {
	Date       time.Time        `json:"date"`
	Symbol     string           `json:"symbol"`
	Action     Action           `json:"action"`
	Quantity   decimal.Decimal  `json:"quantity"`
	Price      decimal.Decimal  `json:"price"`
	Value      decimal.Decimal  `json:"value"`
	Strategy   string           `json:"strategy"`
	Reason     string           `json:"reason,omitempty"`
	PnL        *decimal.Decimal `json:"pnl,omitempty"`
	PnLPercent *decimal.Decimal `json:"pnlPercent,omitempty"`
}
