package storage

import (
	"context"
	"time"

	"github.com/ducminhle1904/pattern-backtester/internal/backtest"
)

// Run describes one sweep and the series it ran over.
type Run struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Interval   string    `json:"interval"`
	Market     string    `json:"market_type"`
	Candles    int       `json:"candles"`
	From       int64     `json:"from"`
	To         int64     `json:"to"`
	Strategies int       `json:"strategies"`
	CreatedAt  time.Time `json:"created_at"`
}

// Validate checks the fields every store relies on.
func (r *Run) Validate() error {
	if r == nil || r.ID == "" {
		return ErrInvalidInput
	}
	return nil
}

// ResultStore persists sweep runs and their strategy results.
type ResultStore interface {
	// SaveRun stores a run with its results atomically. Returns ErrDuplicateKey if the run id exists.
	SaveRun(ctx context.Context, run *Run, results []backtest.StrategyResult) error

	// GetRun returns a run. Returns ErrNotFound if it does not exist.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// GetResults returns the results of a run ordered by final money, best first.
	// Returns ErrNotFound if the run does not exist.
	GetResults(ctx context.Context, runID string) ([]backtest.StrategyResult, error)

	// ListRuns returns all runs, newest first.
	ListRuns(ctx context.Context) ([]*Run, error)

	Close() error
}
