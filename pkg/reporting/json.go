package reporting

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ducminhle1904/pattern-backtester/internal/backtest"
)

// DefaultJSONReporter implements JSON output functionality
type DefaultJSONReporter struct{}

// NewDefaultJSONReporter creates a new JSON reporter
func NewDefaultJSONReporter() *DefaultJSONReporter {
	return &DefaultJSONReporter{}
}

// FormatResults renders results as indented JSON. Without curve the money evolution is dropped.
func (r *DefaultJSONReporter) FormatResults(results []backtest.StrategyResult, withCurve bool) ([]byte, error) {
	out := results
	if !withCurve {
		out = make([]backtest.StrategyResult, len(results))
		for i, res := range results {
			out[i] = res.WithoutCurve()
		}
	}
	if out == nil {
		out = []backtest.StrategyResult{}
	}
	return json.MarshalIndent(out, "", "  ")
}

// WriteResultsJSON writes results to path
func (r *DefaultJSONReporter) WriteResultsJSON(results []backtest.StrategyResult, path string, withCurve bool) error {
	data, err := r.FormatResults(results, withCurve)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// AffinedResults keeps the results with more than minClosed closed trades, so ratios
// rest on a meaningful sample.
func AffinedResults(results []backtest.StrategyResult, minClosed int) []backtest.StrategyResult {
	affined := make([]backtest.StrategyResult, 0)
	for _, res := range results {
		if res.TotalClosed > minClosed {
			affined = append(affined, res)
		}
	}
	return affined
}
