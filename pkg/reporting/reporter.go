package reporting

import (
	"fmt"
	"log"
	"time"

	"github.com/ducminhle1904/pattern-backtester/internal/backtest"
)

// DefaultReporter writes every configured report of a sweep
type DefaultReporter struct {
	config  ReportingConfig
	console *DefaultConsoleReporter
	json    *DefaultJSONReporter
	csv     *DefaultCSVReporter
	excel   *DefaultExcelReporter
}

// NewDefaultReporter creates a reporter for the given configuration
func NewDefaultReporter(config ReportingConfig) *DefaultReporter {
	return &DefaultReporter{
		config:  config,
		console: NewDefaultConsoleReporter(),
		json:    NewDefaultJSONReporter(),
		csv:     NewDefaultCSVReporter(),
		excel:   NewDefaultExcelReporter(),
	}
}

// WithConsole replaces the console reporter
func (r *DefaultReporter) WithConsole(console *DefaultConsoleReporter) *DefaultReporter {
	r.console = console
	return r
}

// PrintSweepInfo prints the sweep header when console output is enabled
func (r *DefaultReporter) PrintSweepInfo(info SweepInfo) {
	if r.config.EnableConsole {
		r.console.PrintSweepInfo(info)
	}
}

// Report prints the ranking and writes the result files, four JSON files plus the
// optional CSV summary and workbook. It returns the paths written.
func (r *DefaultReporter) Report(results []backtest.StrategyResult, now time.Time) (ResultPaths, error) {
	if r.config.EnableConsole {
		r.console.OutputResults(results, r.config.Top)
	}

	paths := NewResultPaths(r.config.OutputDirectory, now)
	affined := AffinedResults(results, r.config.MinClosedTrades)

	writes := []struct {
		results   []backtest.StrategyResult
		path      string
		withCurve bool
	}{
		{results, paths.Full, false},
		{results, paths.FullWithCurve, true},
		{affined, paths.Affined, false},
		{affined, paths.AffinedWithCurve, true},
	}
	for _, w := range writes {
		if err := r.json.WriteResultsJSON(w.results, w.path, w.withCurve); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", w.path, err)
		}
	}
	log.Printf("💾 Wrote %d results (%d affined) to %s", len(results), len(affined), paths.Full)

	if r.config.CSVEnabled {
		if err := r.csv.WriteSummaryCSV(results, paths.SummaryCSV); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", paths.SummaryCSV, err)
		}
		log.Printf("💾 Wrote CSV summary to %s", paths.SummaryCSV)
	} else {
		paths.SummaryCSV = ""
	}

	if r.config.ExcelEnabled {
		if err := r.excel.WriteResultsXLSX(results, paths.Workbook); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", paths.Workbook, err)
		}
		log.Printf("💾 Wrote workbook to %s", paths.Workbook)
	} else {
		paths.Workbook = ""
	}
	return paths, nil
}
