package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/pattern-backtester/internal/patterns"
	"github.com/ducminhle1904/pattern-backtester/internal/strategy"
)

func TestParamRange_Values(t *testing.T) {
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, ParamRange{Min: 0.1, Max: 0.3, Step: 0.1}.Values())
	assert.Equal(t, []float64{1, 1.5, 2}, ParamRange{Min: 1, Max: 2, Step: 0.5}.Values())
	assert.Equal(t, []float64{2}, Single(2).Values())
	assert.Equal(t, []float64{1}, ParamRange{Min: 1, Max: 1.4, Step: 0.5}.Values())
	assert.Nil(t, ParamRange{Min: 2, Max: 1, Step: 1}.Values())

	assert.Error(t, ParamRange{Min: 1, Max: 2}.Validate("tp"))
	assert.Error(t, ParamRange{Min: 2, Max: 1, Step: 1}.Validate("tp"))
	assert.NoError(t, Single(1).Validate("tp"))
}

func TestIntRange(t *testing.T) {
	assert.Equal(t, []int{3, 4, 5}, IntRange{Min: 3, Max: 5}.Values())
	assert.Equal(t, 3, IntRange{Min: 3, Max: 5}.Len())
	assert.Equal(t, 0, IntRange{Min: 5, Max: 3}.Len())
	assert.Error(t, IntRange{Min: -1, Max: 3}.Validate("x"))
	assert.Error(t, IntRange{Min: 5, Max: 3}.Validate("x"))
}

func testSweep() *SweepConfig {
	return &SweepConfig{
		Symbol:      "BTCUSDT",
		Market:      "futures",
		TakeProfit:  ParamRange{Min: 1, Max: 2, Step: 1},
		StopLoss:    Single(1),
		RiskPercent: ParamRange{Min: 1, Max: 2, Step: 1},
		DoublePatterns: &DoublePatternGrid{
			Patterns:    []string{"W", "M"},
			Repetitions: IntRange{Min: 2, Max: 3},
		},
		Reversals: &ReversalGrid{
			Patterns:         []string{"BullReversal", "bearreversal"},
			TrendSize:        IntRange{Min: 3, Max: 3},
			CounterTrendSize: IntRange{Min: 1, Max: 2},
		},
	}
}

func TestExpand_CrossProduct(t *testing.T) {
	cfg := testSweep()
	configs, err := cfg.Expand()
	require.NoError(t, err)

	// (2 W + 2 M + 2 bull + 2 bear shapes) x 2 tp x 1 sl x 2 risk
	assert.Len(t, configs, 8*4)
	assert.Equal(t, cfg.GridSize(), len(configs))

	first := configs[0]
	assert.Equal(t, "W", first.Name)
	assert.Equal(t, patterns.WConfig{Repetitions: 2}, first.Pattern)
	assert.Equal(t, 1.0, first.TakeProfit)
	assert.Equal(t, 0.01, first.Risk)
	assert.Equal(t, DefaultStartMoney, first.StartMoney)
	assert.Equal(t, strategy.MarketFutures, first.Market)
	assert.Equal(t, 0.02, configs[1].Risk)

	last := configs[len(configs)-1]
	assert.Equal(t, "BearReversal", last.Name)
	assert.Equal(t, patterns.ReversalConfig{TrendSize: 3, CounterTrendSize: 2, Bearish: true}, last.Pattern)

	for _, c := range configs {
		require.NoError(t, c.Validate())
	}
}

func TestExpand_SpotExcludesShort(t *testing.T) {
	cfg := testSweep()
	cfg.Market = "spot"
	configs, err := cfg.Expand()
	require.NoError(t, err)
	require.Len(t, configs, 4*4)
	for _, c := range configs {
		assert.Equal(t, strategy.Long, c.Direction(), c.Label())
		assert.True(t, c.Tradable())
	}
}

func TestExpand_DropsRangesTooSmall(t *testing.T) {
	cfg := testSweep()
	cfg.Reversals = nil
	cfg.DoublePatterns = &DoublePatternGrid{
		Patterns:    []string{"W"},
		Repetitions: IntRange{Min: 2, Max: 3},
		Range:       IntRange{Min: 9, Max: 9},
	}
	configs, err := cfg.Expand()
	require.NoError(t, err)
	// rep 2 needs 9 candles, rep 3 needs 13
	require.Len(t, configs, 4)
	assert.Equal(t, patterns.WConfig{Repetitions: 2, Range: 9}, configs[0].Pattern)
}

func TestExpand_LegRepetitions(t *testing.T) {
	cfg := testSweep()
	cfg.Reversals = nil
	cfg.DoublePatterns = &DoublePatternGrid{
		Patterns:       []string{"M"},
		Repetitions:    IntRange{Min: 3, Max: 3},
		LegRepetitions: IntRange{Min: 1, Max: 2},
	}
	configs, err := cfg.Expand()
	require.NoError(t, err)
	require.Len(t, configs, 8)
	assert.Equal(t, patterns.MConfig{Repetitions: 3, LegRepetitions: 1}, configs[0].Pattern)
	assert.Equal(t, patterns.MConfig{Repetitions: 3, LegRepetitions: 2}, configs[4].Pattern)
}

func TestExpand_Errors(t *testing.T) {
	cfg := testSweep()
	cfg.Market = "margin"
	_, err := cfg.Expand()
	assert.Error(t, err)

	cfg = testSweep()
	cfg.DoublePatterns.Patterns = []string{"BullReversal"}
	_, err = cfg.Expand()
	assert.Error(t, err)

	cfg = testSweep()
	cfg.Reversals.Patterns = []string{"Triangle"}
	_, err = cfg.Expand()
	assert.Error(t, err)
}

func TestSweepValidator(t *testing.T) {
	v := NewSweepValidator()
	require.NoError(t, v.Validate(testSweep()))
	require.NoError(t, v.Validate(NewDefaultSweepConfig()))

	tests := map[string]func(c *SweepConfig){
		"no source":          func(c *SweepConfig) { c.Symbol = "" },
		"bad market":         func(c *SweepConfig) { c.Market = "margin" },
		"zero tp":            func(c *SweepConfig) { c.TakeProfit = Single(0) },
		"negative sl":        func(c *SweepConfig) { c.StopLoss = Single(-1) },
		"risk over 100":      func(c *SweepConfig) { c.RiskPercent = Single(150) },
		"tp without step":    func(c *SweepConfig) { c.TakeProfit = ParamRange{Min: 1, Max: 2} },
		"no grids":           func(c *SweepConfig) { c.DoublePatterns, c.Reversals = nil, nil },
		"no double patterns": func(c *SweepConfig) { c.DoublePatterns.Patterns = nil },
		"zero repetitions":   func(c *SweepConfig) { c.DoublePatterns.Repetitions = IntRange{} },
		"zero trend":         func(c *SweepConfig) { c.Reversals.TrendSize = IntRange{} },
		"zero counter trend": func(c *SweepConfig) { c.Reversals.CounterTrendSize = IntRange{} },
		"negative workers":   func(c *SweepConfig) { c.Workers = -1 },
		"bad timeout":        func(c *SweepConfig) { c.WorkerTimeout = "soon" },
		"huge grid": func(c *SweepConfig) {
			c.DoublePatterns.Repetitions = IntRange{Min: 1, Max: 1000}
			c.DoublePatterns.Range = IntRange{Min: 0, Max: 1000}
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := testSweep()
			mutate(cfg)
			assert.Error(t, v.Validate(cfg))
		})
	}
	assert.Error(t, v.Validate(nil))
}

func TestSweepConfig_Timeout(t *testing.T) {
	cfg := testSweep()
	d, err := cfg.Timeout()
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkerTimeout, d)

	cfg.WorkerTimeout = "90s"
	d, err = cfg.Timeout()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}

func TestSweepConfigManager_LoadSave(t *testing.T) {
	m := NewSweepConfigManager()
	path := filepath.Join(t.TempDir(), "configs", "sweep.json")

	cfg := testSweep()
	cfg.DataFile = "data/bybit/linear/BTCUSDT/5/candles.csv"
	require.NoError(t, m.SaveConfig(cfg, path))

	loaded, err := m.LoadConfig(path, Env{Workers: 6})
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", loaded.Symbol)
	assert.Equal(t, "5m", loaded.Interval)
	assert.Equal(t, DefaultStartMoney, loaded.StartMoney)
	assert.Equal(t, DefaultMinClosedTrades, loaded.Output.MinClosedTrades)
	assert.Equal(t, ResultsDir, loaded.Output.Dir)
	assert.Equal(t, 6, loaded.Workers)
	assert.Equal(t, cfg.Reversals, loaded.Reversals)

	defaults, err := m.LoadConfig("", Env{})
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", defaults.Symbol)

	_, err = m.LoadConfig(filepath.Join(t.TempDir(), "missing.json"), Env{})
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"symbol":`), 0o644))
	_, err = m.LoadConfig(bad, Env{})
	assert.Error(t, err)
}

func TestExtractIntervalFromPath(t *testing.T) {
	assert.Equal(t, "5m", extractIntervalFromPath("data/bybit/linear/BTCUSDT/5/candles.csv"))
	assert.Equal(t, "1h", extractIntervalFromPath("data/bybit/linear/BTCUSDT/60/candles.csv"))
	assert.Equal(t, "1d", extractIntervalFromPath("data/bybit/spot/BTCUSDT/1440/candles.csv"))
	assert.Equal(t, "15m", extractIntervalFromPath("data/BTCUSDT/15m/candles.csv"))
	assert.Equal(t, "", extractIntervalFromPath("data/klines.json"))
	assert.Equal(t, "", extractIntervalFromPath(""))
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PB_WORKERS=4\nPB_DATABASE_URL=postgres://localhost/pb\n"), 0o644))

	t.Setenv(EnvWorkers, "")
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvBybitAPIKey, "key")
	t.Setenv(EnvBybitAPISecret, "")
	require.NoError(t, os.Unsetenv(EnvWorkers))
	require.NoError(t, os.Unsetenv(EnvDatabaseURL))

	env, err := LoadEnv(envFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 4, env.Workers)
	assert.Equal(t, "postgres://localhost/pb", env.DatabaseURL)
	assert.False(t, env.HasCredentials())

	t.Setenv(EnvWorkers, "many")
	_, err = ReadEnv()
	assert.Error(t, err)
}

func TestEnv_Apply(t *testing.T) {
	cfg := testSweep()
	Env{Workers: 3}.Apply(cfg)
	assert.Equal(t, 3, cfg.Workers)

	cfg.Workers = 8
	Env{Workers: 3}.Apply(cfg)
	assert.Equal(t, 8, cfg.Workers)
}
