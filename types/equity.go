package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// EquityPoint marks total portfolio equity at end of one simulated day.
type EquityPoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Equity    decimal.Decimal `json:"equity"`
}

// AllocationSnapshot records the outcome of one rebalance event.
type AllocationSnapshot struct {
	Timestamp    time.Time                  `json:"timestamp"`
	TotalCapital decimal.Decimal            `json:"totalCapital"`
	Strategies   map[string]AllocationEntry `json:"strategies"`
}

type AllocationEntry struct {
	Allocated decimal.Decimal `json:"allocated"`
	Locked    bool            `json:"locked"`
	Score     float64         `json:"score"`
}
