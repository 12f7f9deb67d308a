package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Config struct {
	initialCash      decimal.Decimal
	allocationMethod AllocationMethod
	referenceSymbol  string
	lookbackDays     int
}

// NewConfig builds an engine configuration. The reference symbol's daily
// bars act as the trading calendar for the whole run.
func NewConfig(initialCash decimal.Decimal, method AllocationMethod, referenceSymbol string, lookbackDays int) *Config {
	return &Config{
		initialCash:      initialCash,
		allocationMethod: method,
		referenceSymbol:  referenceSymbol,
		lookbackDays:     lookbackDays,
	}
}

func (c *Config) validate() error {
	if !c.initialCash.IsPositive() {
		return fmt.Errorf("%s: %w", c.initialCash, ErrInvalidInitialCash)
	}
	switch c.allocationMethod {
	case MethodEqualWeight, MethodRiskAdjusted:
	default:
		return fmt.Errorf("%q: %w", c.allocationMethod, ErrUnknownAllocationMethod)
	}
	if c.referenceSymbol == "" {
		return fmt.Errorf("reference symbol: %w", ErrDataUnavailable)
	}
	return nil
}
