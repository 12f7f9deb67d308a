package engine

import "errors"

var (
	// ErrInsufficientFunds means a buy could not be filled even partially.
	// The clock logs it and moves on; it never aborts a run.
	ErrInsufficientFunds = errors.New("insufficient cash for buy")

	// ErrDataUnavailable means a required bar series could not be loaded.
	ErrDataUnavailable = errors.New("bar data unavailable")

	// Configuration errors, fatal at run start.
	ErrNoStrategies            = errors.New("no strategies registered")
	ErrDuplicateStrategy       = errors.New("duplicate strategy name")
	ErrUnknownAllocationMethod = errors.New("unknown allocation method")
	ErrInvalidInitialCash      = errors.New("initial cash must be positive")
)
