package logger

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesEntries(t *testing.T) {
	dir := t.TempDir()

	l, err := NewLogger(dir, "BTCUSDT", "1h")
	require.NoError(t, err)

	l.Info("loaded %d candles", 500)
	l.LogStrategyResult("W rep=3", 6, 4, 1, 2, "60.00%", 104.5, false)
	l.LogError("sweep", fmt.Errorf("boom"))
	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "closing twice is a no-op")

	data, err := os.ReadFile(l.GetLogPath())
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "PATTERN BACKTEST SESSION STARTED")
	assert.Contains(t, content, "Symbol: BTCUSDT | Interval: 1h")
	assert.Contains(t, content, "[INFO] loaded 500 candles")
	assert.Contains(t, content, "[RESULT] W rep=3 | won=6 lost=4 unknown=1 unclosed=2 | win ratio: 60.00% | final money: 104.50 | OK")
	assert.Contains(t, content, "[ERROR] sweep: boom")
	assert.Contains(t, content, "SESSION ENDED")
}
