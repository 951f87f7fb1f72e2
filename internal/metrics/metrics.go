package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Reconciliation pass
	PassRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_pass_runs_total",
			Help: "Stock check passes by trigger and outcome",
		},
		[]string{"trigger", "status"}, // status: ok|skipped|error
	)

	PassDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockwatch_pass_duration_seconds",
			Help:    "Duration of one stock check pass",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"trigger"},
	)

	StockChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_stock_checks_total",
			Help: "Per-stock rule evaluations by result",
		},
		[]string{"result"}, // result: updated|unavailable|panic
	)

	// Alerts
	AlertDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_alert_deliveries_total",
			Help: "Alert sink attempts by channel and outcome",
		},
		[]string{"channel", "status"}, // status: success|failure
	)

	// Quote provider
	QuoteFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_quote_fetches_total",
			Help: "Quote provider fetches by outcome",
		},
		[]string{"outcome"}, // outcome: ok|partial|error|cache_hit
	)

	QuoteLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockwatch_quote_latency_seconds",
			Help:    "Quote provider latency including rate limit waits",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 60},
		},
	)

	initOnce sync.Once
)

// Init registers the collectors with the default registry. Safe to call more
// than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(PassRuns)
		prometheus.MustRegister(PassDuration)
		prometheus.MustRegister(StockChecks)
		prometheus.MustRegister(AlertDeliveries)
		prometheus.MustRegister(QuoteFetches)
		prometheus.MustRegister(QuoteLatency)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
