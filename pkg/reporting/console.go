package reporting

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/pattern-backtester/internal/backtest"
)

// DefaultConsoleReporter renders sweep results as tables
type DefaultConsoleReporter struct {
	out io.Writer
}

// NewDefaultConsoleReporter creates a console reporter writing to stdout
func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return NewConsoleReporter(os.Stdout)
}

// NewConsoleReporter creates a console reporter writing to out
func NewConsoleReporter(out io.Writer) *DefaultConsoleReporter {
	return &DefaultConsoleReporter{out: out}
}

// PrintSweepInfo prints what a sweep is about to run on
func (r *DefaultConsoleReporter) PrintSweepInfo(info SweepInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("PATTERN SWEEP")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"📊 Symbol", info.Symbol},
		{"⏰ Interval", info.Interval},
		{"🏪 Market", info.Market},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"🕯️ Candles", info.Candles},
		{"📅 From", formatTime(info.From)},
		{"📅 To", formatTime(info.To)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"🧪 Strategies", info.Strategies},
		{"⚙️ Workers", info.Workers},
	})
	if info.RunID != "" {
		t.AppendRow(table.Row{"🆔 Run", info.RunID})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 15, WidthMax: 15, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 40, Align: text.AlignLeft},
	})
	t.Render()
	fmt.Fprintln(r.out)
}

// OutputResults prints the top results, best final money first. top <= 0 prints all.
func (r *DefaultConsoleReporter) OutputResults(results []backtest.StrategyResult, top int) {
	ranked := make([]backtest.StrategyResult, len(results))
	copy(ranked, results)
	backtest.RankResults(ranked)
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(fmt.Sprintf("TOP %d OF %d STRATEGIES", len(ranked), len(results)))
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Strategy", "Trades", "Won", "Lost", "Unknown", "Open",
		"Win %", "Needed %", "Efficiency", "Final $", "Return %", "Max DD %"})

	for i, res := range ranked {
		win, eff := "n/a", "n/a"
		if res.Ratios != nil {
			win = fmt.Sprintf("%.2f", res.Ratios.WinRatio)
			eff = fmt.Sprintf("%.2f", res.Ratios.Efficiency)
		}
		final := fmt.Sprintf("%.2f", res.FinalMoney)
		if res.EquityDepleted {
			final += " ⚠️"
		}
		t.AppendRow(table.Row{
			i + 1,
			res.Strategy.Label(),
			res.TotalTrades,
			res.TotalWin,
			res.TotalLost,
			res.TotalUnknown,
			res.TotalUnclosed,
			win,
			fmt.Sprintf("%.2f", res.NeededWinPercentage),
			eff,
			final,
			fmt.Sprintf("%.2f", res.TotalReturn),
			fmt.Sprintf("%.2f", res.MaxDrawdown),
		})
	}

	numeric := []int{3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}
	configs := make([]table.ColumnConfig, 0, len(numeric)+1)
	configs = append(configs, table.ColumnConfig{Number: 2, WidthMax: 60, Align: text.AlignLeft})
	for _, n := range numeric {
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	t.SetColumnConfigs(configs)

	t.Render()
	fmt.Fprintln(r.out)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04")
}
