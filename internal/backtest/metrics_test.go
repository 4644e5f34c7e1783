package backtest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/pattern-backtester/internal/patterns"
)

// TestBuildResult_SixtyForty tests ratios for 60 wins and 40 losses at tp 2 / sl 1
func TestBuildResult_SixtyForty(t *testing.T) {
	cfg := resolverConfig(2, 1, 0.01)
	ledger := NewLedger(100)
	ledger.Won = 60
	ledger.Lost = 40
	ledger.Equity = 150

	result := BuildResult(cfg, ledger, 100)

	require.NotNil(t, result.Ratios)
	assert.Equal(t, 60.0, result.Ratios.WinRatio)
	assert.Equal(t, 40.0, result.Ratios.LoseRatio)
	assert.Equal(t, 0.0, result.Ratios.UnknownRatio)
	assert.Equal(t, 33.33, result.NeededWinPercentage)
	assert.Equal(t, 180.0, result.Ratios.Efficiency)
	assert.Equal(t, 2.0, result.RiskRewardRatio)
	assert.Equal(t, 100, result.TotalClosed)
	assert.Equal(t, 100, result.TotalTrades)
	assert.Equal(t, 150.0, result.FinalMoney)
	assert.Equal(t, 50.0, result.TotalReturn)
	assert.Equal(t, patterns.KindW, result.Pattern.Kind)
	assert.Equal(t, 3, result.Pattern.Repetitions)
}

// TestBuildResult_BreakevenEfficiency tests that efficiency is 100 exactly at breakeven
func TestBuildResult_BreakevenEfficiency(t *testing.T) {
	tests := []struct {
		name      string
		tp, sl    float64
		won, lost int
	}{
		{"even odds", 1, 1, 50, 50},
		{"two to one", 2, 1, 1, 2},
		{"one to three", 1, 3, 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := NewLedger(100)
			ledger.Won = tt.won
			ledger.Lost = tt.lost

			result := BuildResult(resolverConfig(tt.tp, tt.sl, 0.01), ledger, tt.won+tt.lost)
			require.NotNil(t, result.Ratios)
			assert.Equal(t, result.NeededWinPercentage, result.Ratios.WinRatio)
			assert.Equal(t, 100.0, result.Ratios.Efficiency)
		})
	}
}

func TestBuildResult_NoClosedTrades(t *testing.T) {
	ledger := NewLedger(100)
	ledger.Unclosed = 3

	result := BuildResult(resolverConfig(2, 1, 0.01), ledger, 3)
	assert.Nil(t, result.Ratios)
	assert.Equal(t, 3, result.TotalUnclosed)
	assert.Equal(t, 100.0, result.FinalMoney)
	assert.Equal(t, 0.0, result.TotalReturn)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"ratios"`)
	assert.NotContains(t, string(data), `"money_evolution"`)
	assert.Contains(t, string(data), `"needed_win_percentage":33.33`)
}

func TestBuildResult_UnknownRatio(t *testing.T) {
	ledger := NewLedger(100)
	ledger.Won = 1
	ledger.Lost = 1
	ledger.Unknown = 1

	result := BuildResult(resolverConfig(1, 1, 0.01), ledger, 3)
	require.NotNil(t, result.Ratios)
	assert.Equal(t, 33.33, result.Ratios.WinRatio)
	assert.Equal(t, 33.33, result.Ratios.UnknownRatio)
	assert.Equal(t, 66.67, result.Ratios.Efficiency)
}

func TestMaxDrawdown(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown(100, nil))
	assert.InDelta(t, 25.0, MaxDrawdown(100, []float64{110, 99, 120, 90}), 1e-9)
	assert.InDelta(t, 10.0, MaxDrawdown(100, []float64{90, 95}), 1e-9)
}

func TestRankResultsAndWithoutCurve(t *testing.T) {
	results := []StrategyResult{
		{Name: "a", FinalMoney: 90},
		{Name: "b", FinalMoney: 120, MoneyEvolution: []float64{120}},
		{Name: "c", FinalMoney: 120},
	}
	RankResults(results)
	assert.Equal(t, "b", results[0].Name)
	assert.Equal(t, "c", results[1].Name)
	assert.Equal(t, "a", results[2].Name)

	stripped := results[0].WithoutCurve()
	assert.Nil(t, stripped.MoneyEvolution)
	assert.Equal(t, []float64{120}, results[0].MoneyEvolution)
}

func TestNeededWinPercentage(t *testing.T) {
	assert.InDelta(t, 50.0, NeededWinPercentage(1, 1), 1e-9)
	assert.InDelta(t, 100.0/3, NeededWinPercentage(2, 1), 1e-9)
	assert.InDelta(t, 75.0, NeededWinPercentage(1, 3), 1e-9)
}
