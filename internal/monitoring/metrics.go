package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Sweep metrics
	strategiesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pattern_backtester_strategies_total",
			Help: "Total number of strategy configurations backtested",
		},
		[]string{"strategy"},
	)

	strategyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pattern_backtester_strategy_duration_seconds",
			Help:    "Time spent generating and resolving trades for one strategy configuration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	// Trade metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pattern_backtester_trades_total",
			Help: "Total number of hypothetical trades by outcome",
		},
		[]string{"strategy", "outcome"},
	)

	finalEquity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pattern_backtester_final_equity",
			Help: "Final equity of the most recent configuration of each strategy",
		},
		[]string{"strategy"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pattern_backtester_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	// Register metrics
	prometheus.MustRegister(strategiesTotal)
	prometheus.MustRegister(strategyDuration)
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(finalEquity)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordStrategy records one finished strategy configuration
func RecordStrategy(strategy string, duration time.Duration, equity float64) {
	strategiesTotal.WithLabelValues(strategy).Inc()
	strategyDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	finalEquity.WithLabelValues(strategy).Set(equity)
}

// RecordTrades adds count trades with the given outcome
func RecordTrades(strategy, outcome string, count int) {
	if count <= 0 {
		return
	}
	tradesTotal.WithLabelValues(strategy, outcome).Add(float64(count))
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
