// Package metrics exposes Prometheus collectors for the rank tracker.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	providerRequestsTotal          *prometheus.CounterVec
	providerRequestDurationSeconds prometheus.Histogram
	fetchesInFlight                prometheus.Gauge
	updateCyclesTotal              *prometheus.CounterVec
	keywordOutcomesTotal           *prometheus.CounterVec
	httpRequestsTotal              *prometheus.CounterVec
	httpRequestDurationSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. It is safe to call more than
// once.
func Init() {
	once.Do(func() {
		providerRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ranktrakr_provider_requests_total",
				Help: "Total SERP provider calls, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		providerRequestDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ranktrakr_provider_request_duration_seconds",
				Help:    "Histogram of SERP provider call latencies.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
			},
		)

		fetchesInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ranktrakr_fetches_in_flight",
				Help: "Number of provider calls currently in flight.",
			},
		)

		updateCyclesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ranktrakr_update_cycles_total",
				Help: "Total update cycles run, labeled by status.",
			},
			[]string{"status"},
		)

		keywordOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ranktrakr_keyword_outcomes_total",
				Help: "Per-keyword batch outcomes, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveProviderRequest records one provider call.
func ObserveProviderRequest(outcome string, duration time.Duration) {
	if providerRequestsTotal == nil {
		return
	}
	providerRequestsTotal.WithLabelValues(outcome).Inc()
	providerRequestDurationSeconds.Observe(duration.Seconds())
}

// IncFetchesInFlight increments the in-flight fetch gauge.
func IncFetchesInFlight() {
	if fetchesInFlight != nil {
		fetchesInFlight.Inc()
	}
}

// DecFetchesInFlight decrements the in-flight fetch gauge.
func DecFetchesInFlight() {
	if fetchesInFlight != nil {
		fetchesInFlight.Dec()
	}
}

// ObserveCycle increments the cycle counter for the given status.
func ObserveCycle(status string) {
	if updateCyclesTotal != nil {
		updateCyclesTotal.WithLabelValues(status).Inc()
	}
}

// ObserveKeywordOutcome increments the outcome counter for one keyword.
func ObserveKeywordOutcome(outcome string) {
	if keywordOutcomesTotal != nil {
		keywordOutcomesTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
