package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one OHLCV sample for a symbol over a fixed interval.
type Bar struct {
	AssetId   int             `json:"id"`
	Symbol    string          `json:"symbol"`
	Open      decimal.Decimal `json:"open"`
	Close     decimal.Decimal `json:"close"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Volume    decimal.Decimal `json:"volume"`
	Interval  Interval        `json:"interval"`
	Timestamp time.Time       `json:"timestamp"`
}
