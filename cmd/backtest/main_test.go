package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/pattern-backtester/internal/backtest"
	"github.com/ducminhle1904/pattern-backtester/internal/notifications"
	"github.com/ducminhle1904/pattern-backtester/internal/patterns"
	"github.com/ducminhle1904/pattern-backtester/internal/strategy"
	"github.com/ducminhle1904/pattern-backtester/pkg/config"
	"github.com/ducminhle1904/pattern-backtester/pkg/data"
	"github.com/ducminhle1904/pattern-backtester/pkg/types"
)

// zigzagCandles alternates four falling and four rising one-minute candles
func zigzagCandles(n int) []types.Candle {
	candles := make([]types.Candle, n)
	price := 100.0
	for i := range candles {
		open := price
		if (i/4)%2 == 0 {
			price -= 1
		} else {
			price += 1
		}
		high, low := open, price
		if price > open {
			high, low = price, open
		}
		candles[i] = types.Candle{
			OpenTime:  int64(i) * 60_000,
			Open:      open,
			High:      high + 0.25,
			Low:       low - 0.25,
			Close:     price,
			Volume:    10,
			CloseTime: int64(i)*60_000 + 59_999,
		}
	}
	return candles
}

func writeSweepConfig(t *testing.T, dir string, cfg *config.SweepConfig) string {
	t.Helper()
	path := filepath.Join(dir, "sweep.json")
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0644))
	return path
}

func TestParseFlags_ConfigNameAndOverrides(t *testing.T) {
	opts, _, err := parseFlags([]string{"-config", "w_m_sweep", "-symbol", "ethusdt", "-workers", "3", "-excel"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "configs/w_m_sweep.json", opts.configFile)

	cfg := config.NewDefaultSweepConfig()
	cfg.Interval = "5m"
	opts.apply(cfg)

	assert.Equal(t, "ETHUSDT", cfg.Symbol)
	assert.Equal(t, 3, cfg.Workers)
	assert.True(t, cfg.Output.Excel)
	// flags left at their defaults do not override the file
	assert.Equal(t, "5m", cfg.Interval)
}

func TestOptions_Validate(t *testing.T) {
	opts, _, err := parseFlags([]string{"-period", "7d", "-from", "2024-01-01", "-store", "redis", "-worker-timeout", "soon"}, io.Discard)
	require.NoError(t, err)

	err = opts.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-period cannot be combined")
	assert.Contains(t, err.Error(), "store must be one of")
	assert.Contains(t, err.Error(), "worker-timeout")
}

func TestRun_ConsoleOnlyWithFileStore(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "candles.csv")
	require.NoError(t, data.WriteCandlesCSV(csvPath, zigzagCandles(400)))

	cfg := config.NewDefaultSweepConfig()
	cfg.TakeProfit = config.Single(1)
	cfg.StopLoss = config.Single(1)
	cfg.DoublePatterns.Repetitions = config.IntRange{Min: 2, Max: 3}
	cfg.Workers = 2
	cfgPath := writeSweepConfig(t, dir, cfg)

	storeDir := filepath.Join(dir, "runs")
	var stdout bytes.Buffer
	err := run(context.Background(), []string{
		"-env", filepath.Join(dir, "missing.env"),
		"-config", cfgPath,
		"-data", csvPath,
		"-silent",
		"-console-only",
		"-log-dir", filepath.Join(dir, "logs"),
		"-store", StoreFile,
		"-store-dir", storeDir,
	}, &stdout)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "OF 4 STRATEGIES")

	entries, err := os.ReadDir(storeDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".json", filepath.Ext(entries[0].Name()))

	assert.NoDirExists(t, filepath.Join(dir, config.ResultsDir))
}

func TestRun_WritesReports(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "candles.csv")
	require.NoError(t, data.WriteCandlesCSV(csvPath, zigzagCandles(200)))

	cfg := config.NewDefaultSweepConfig()
	cfg.TakeProfit = config.Single(2)
	cfg.StopLoss = config.Single(1)
	cfg.DoublePatterns.Patterns = []string{"W"}
	cfg.DoublePatterns.Repetitions = config.IntRange{Min: 2, Max: 2}
	cfg.Output.Dir = filepath.Join(dir, "results")
	cfg.Output.CSV = true
	cfgPath := writeSweepConfig(t, dir, cfg)

	err := run(context.Background(), []string{
		"-env", filepath.Join(dir, "missing.env"),
		"-config", cfgPath,
		"-data", csvPath,
		"-silent",
		"-log-dir", filepath.Join(dir, "logs"),
	}, io.Discard)
	require.NoError(t, err)

	full, err := filepath.Glob(filepath.Join(dir, "results", "full", "*.json"))
	require.NoError(t, err)
	assert.Len(t, full, 1)

	summaries, err := filepath.Glob(filepath.Join(dir, "results", "*.csv"))
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestRun_InvalidFlags(t *testing.T) {
	err := run(context.Background(), []string{"-workers", "-2"}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
}

func TestSweepSummary(t *testing.T) {
	cfg := &config.SweepConfig{Symbol: "BTCUSDT", Interval: "15"}
	mk := func(name string, final float64) backtest.StrategyResult {
		return backtest.StrategyResult{
			Name: name,
			Strategy: strategy.Config{
				Name:       name,
				Pattern:    patterns.WConfig{Repetitions: 1, Range: 20},
				TakeProfit: 2,
				StopLoss:   1,
				Risk:       0.01,
			},
			FinalMoney:  final,
			TotalReturn: (final - 100),
		}
	}

	msg := sweepSummary("run-1", cfg, []backtest.StrategyResult{mk("w-a", 90), mk("w-b", 130)}, 3*time.Second)
	assert.Contains(t, msg, "`run-1` on BTCUSDT 15")
	assert.Contains(t, msg, "Strategies: 2")
	assert.Contains(t, msg, "Best: w-b")
	assert.Contains(t, msg, "Final money: 130.00 (+30.00%)")

	empty := sweepSummary("run-2", cfg, nil, time.Second)
	assert.NotContains(t, empty, "Best:")
}

func TestNewNotifier(t *testing.T) {
	assert.IsType(t, notifications.Nop{}, newNotifier(config.Env{}))
	assert.IsType(t, &notifications.TelegramNotifier{}, newNotifier(config.Env{TelegramToken: "t", TelegramChatID: "c"}))
}
