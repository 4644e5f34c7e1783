package monitoring

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandler(t *testing.T) {
	strategies := strategiesTotal.WithLabelValues("W")
	wins := tradesTotal.WithLabelValues("W", "win")
	timeouts := errorsTotal.WithLabelValues("TIMEOUT")
	strategiesBefore := testutil.ToFloat64(strategies)
	winsBefore := testutil.ToFloat64(wins)
	timeoutsBefore := testutil.ToFloat64(timeouts)

	RecordStrategy("W", 150*time.Millisecond, 123.45)
	RecordTrades("W", "win", 3)
	RecordTrades("W", "lost", 0)
	RecordError("TIMEOUT")

	assert.Equal(t, 1.0, testutil.ToFloat64(strategies)-strategiesBefore)
	assert.Equal(t, 3.0, testutil.ToFloat64(wins)-winsBefore)
	assert.Equal(t, 1.0, testutil.ToFloat64(timeouts)-timeoutsBefore)
	assert.Equal(t, 123.45, testutil.ToFloat64(finalEquity.WithLabelValues("W")))

	rec := httptest.NewRecorder()
	NewMetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `pattern_backtester_strategies_total{strategy="W"}`)
	assert.Contains(t, body, `pattern_backtester_trades_total{outcome="win",strategy="W"}`)
	assert.NotContains(t, body, `outcome="lost"`, "zero counts are not recorded")
	assert.Contains(t, body, `pattern_backtester_final_equity{strategy="W"} 123.45`)
	assert.Contains(t, body, `pattern_backtester_errors_total{type="TIMEOUT"}`)
}

func TestStatusTracker(t *testing.T) {
	s := NewStatusTracker()
	assert.Equal(t, "idle", s.Snapshot().Status)

	s.Begin("run-1", 4)
	s.Complete("W rep=3")
	snap := s.Snapshot()
	assert.Equal(t, "running", snap.Status)
	assert.Equal(t, "run-1", snap.RunID)
	assert.Equal(t, 1, snap.Completed)
	assert.Equal(t, 25.0, snap.Progress)
	assert.Equal(t, "W rep=3", snap.LastStrategy)

	s.Finish()
	assert.Equal(t, "done", s.Snapshot().Status)
}

func TestStatusTracker_ServeHTTP(t *testing.T) {
	s := NewStatusTracker()
	s.Begin("run-2", 1)
	s.Fail(fmt.Errorf("worker timed out"))

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var status SweepStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "failed", status.Status)
	assert.Equal(t, []string{"worker timed out"}, status.Errors)
}
