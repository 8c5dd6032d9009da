package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Run metrics
	backtestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtester_runs_total",
			Help: "Total number of backtest runs",
		},
		[]string{"symbol", "strategy", "status"},
	)

	tradesSimulated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backtester_trades_simulated_total",
			Help: "Total number of simulated trades across all runs",
		},
	)

	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backtester_run_duration_seconds",
			Help:    "Distribution of single-run wall time",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Optimizer metrics
	combinationsEvaluated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backtester_optimizer_combinations_total",
			Help: "Total number of parameter combinations evaluated",
		},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtester_errors_total",
			Help: "Total number of errors by category",
		},
		[]string{"category"},
	)
)

func init() {
	prometheus.MustRegister(backtestsTotal)
	prometheus.MustRegister(tradesSimulated)
	prometheus.MustRegister(runDuration)
	prometheus.MustRegister(combinationsEvaluated)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles the Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordBacktest records the outcome of one backtest run.
func RecordBacktest(symbol, strategy, status string) {
	backtestsTotal.WithLabelValues(symbol, strategy, status).Inc()
}

// RecordTradesSimulated adds the trade count of a finished run.
func RecordTradesSimulated(count int) {
	tradesSimulated.Add(float64(count))
}

// ObserveRunDuration records the wall time of one run.
func ObserveRunDuration(seconds float64) {
	runDuration.Observe(seconds)
}

// RecordCombination counts one evaluated parameter combination.
func RecordCombination() {
	combinationsEvaluated.Inc()
}

// RecordError records an error metric
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}
