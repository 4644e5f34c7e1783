package common

import (
	"bytes"
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"2024-03-05 14:30", time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)},
		{"2024-03-05T14:30:00+02:00", time.Date(2024, 3, 5, 12, 30, 0, 0, time.UTC)},
		{"", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := ParseDate("05/03/2024")
	assert.Error(t, err)
}

func TestFlagValidator(t *testing.T) {
	v := NewFlagValidator()
	assert.NoError(t, v.GetError())

	v.ValidateInt("workers", 3, 0, 64).ValidateChoice("market", "spot", []string{"spot", "futures"})
	assert.False(t, v.HasErrors())

	v.ValidateRequired("symbol", " ")
	require.Error(t, v.GetError())
	assert.Equal(t, "validation error: symbol is required", v.GetError().Error())

	v.ValidateInt("workers", -1, 0, 64).ValidateFile("data", "/does/not/exist.csv", true)
	err := v.GetError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers must be between 0 and 64")
	assert.Contains(t, err.Error(), "data file does not exist")
}

func TestLogger_SilentAndPlain(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{Level: LogLevelInfo, ShowEmojis: false, Out: &buf}

	l.Info("loaded %d candles", 10)
	l.Debug("hidden")
	assert.Equal(t, "[INFO] loaded 10 candles\n", buf.String())

	buf.Reset()
	l.SetSilentMode(true)
	l.Info("quiet")
	l.Error("boom")
	assert.Equal(t, "[ERROR] boom\n", buf.String())
}

func TestUsageFormatter(t *testing.T) {
	var buf bytes.Buffer
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(&buf)
	fs.String("symbol", "BTCUSDT", "Trading symbol")

	NewUsageFormatter("backtest", "pattern sweep").
		AddExample("backtest -config w.json", "Run a sweep").
		PrintUsage(fs)

	out := buf.String()
	assert.Contains(t, out, "backtest - pattern sweep")
	assert.Contains(t, out, "# Run a sweep")
	assert.Contains(t, out, "-symbol")
}
