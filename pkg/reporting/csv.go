package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/ducminhle1904/pattern-backtester/internal/backtest"
)

// DefaultCSVReporter implements CSV output functionality
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

var summaryHeader = []string{
	"name", "klines_repetitions", "leg_repetitions", "klines_range", "trend_size", "counter_trend_size",
	"tp_multiplier", "sl_multiplier", "risk", "market_type",
	"total_trades", "total_win", "total_lost", "total_unknown", "total_closed", "total_unclosed",
	"win_ratio", "lose_ratio", "unknown_ratio", "efficiency", "needed_win_percentage", "risk_reward_ratio",
	"start_money", "final_money", "total_return", "max_drawdown", "equity_depleted",
}

// WriteSummaryCSV writes one row per strategy result
func (r *DefaultCSVReporter) WriteSummaryCSV(results []backtest.StrategyResult, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(summaryHeader); err != nil {
		return err
	}
	for _, res := range results {
		if err := w.Write(summaryRow(res)); err != nil {
			return fmt.Errorf("failed to write %s: %w", res.Strategy.Label(), err)
		}
	}
	w.Flush()
	return w.Error()
}

func summaryRow(res backtest.StrategyResult) []string {
	ratio := func(get func(*backtest.Ratios) float64) string {
		if res.Ratios == nil {
			return ""
		}
		return formatFloat(get(res.Ratios))
	}
	p := res.Pattern
	return []string{
		res.Name,
		strconv.Itoa(p.Repetitions),
		strconv.Itoa(p.LegRepetitions),
		strconv.Itoa(p.Range),
		strconv.Itoa(p.TrendSize),
		strconv.Itoa(p.CounterTrendSize),
		formatFloat(res.Strategy.TakeProfit),
		formatFloat(res.Strategy.StopLoss),
		formatFloat(res.Strategy.Risk),
		string(res.Strategy.Market),
		strconv.Itoa(res.TotalTrades),
		strconv.Itoa(res.TotalWin),
		strconv.Itoa(res.TotalLost),
		strconv.Itoa(res.TotalUnknown),
		strconv.Itoa(res.TotalClosed),
		strconv.Itoa(res.TotalUnclosed),
		ratio(func(r *backtest.Ratios) float64 { return r.WinRatio }),
		ratio(func(r *backtest.Ratios) float64 { return r.LoseRatio }),
		ratio(func(r *backtest.Ratios) float64 { return r.UnknownRatio }),
		ratio(func(r *backtest.Ratios) float64 { return r.Efficiency }),
		formatFloat(res.NeededWinPercentage),
		formatFloat(res.RiskRewardRatio),
		formatFloat(res.StartMoney),
		formatFloat(res.FinalMoney),
		formatFloat(res.TotalReturn),
		formatFloat(res.MaxDrawdown),
		strconv.FormatBool(res.EquityDepleted),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
