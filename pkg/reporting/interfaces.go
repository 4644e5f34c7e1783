// Package reporting renders sweep results to the console and to result files.
package reporting

import (
	"time"

	"github.com/ducminhle1904/pattern-backtester/internal/backtest"
)

// ConsoleReporter defines interface for console output
type ConsoleReporter interface {
	OutputResults(results []backtest.StrategyResult, top int)
	PrintSweepInfo(info SweepInfo)
}

// FileReporter defines interface for file output
type FileReporter interface {
	WriteResultsJSON(results []backtest.StrategyResult, path string, withCurve bool) error
	WriteSummaryCSV(results []backtest.StrategyResult, path string) error
	WriteResultsXLSX(results []backtest.StrategyResult, path string) error
}

// SweepInfo describes the sweep a result set belongs to
type SweepInfo struct {
	RunID      string
	Symbol     string
	Interval   string
	Market     string
	Candles    int
	Strategies int
	Workers    int
	From       time.Time
	To         time.Time
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle   int
	BaseStyle     int
	CurrencyStyle int
	PercentStyle  int
	RedStyle      int
	GreenStyle    int
}

// ReportingConfig holds configuration for reporting
type ReportingConfig struct {
	EnableConsole   bool
	OutputDirectory string
	MinClosedTrades int
	Top             int
	ExcelEnabled    bool
	CSVEnabled      bool
}
