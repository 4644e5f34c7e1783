// Package config loads sweep configurations and expands them into strategy grids.
package config

import "time"

// Validator checks a sweep configuration before it is expanded
type Validator interface {
	Validate(cfg *SweepConfig) error
}

// Common configuration constants
const (
	DefaultStartMoney      = 100.0
	DefaultMinClosedTrades = 100
	DefaultWorkerTimeout   = 10 * time.Minute

	// MaxGridSize guards against sweeps that would never finish
	MaxGridSize = 1_000_000

	DefaultDataRoot = "data"
	DefaultExchange = "bybit"
	DefaultCategory = "linear"
	DefaultInterval = "1m"
	ResultsDir      = "results"
)
