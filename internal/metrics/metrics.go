// Package metrics exposes Prometheus collectors for the catalog service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation result labels.
const (
	ResultOK          = "ok"
	ResultInvalid     = "invalid"
	ResultNotFound    = "not_found"
	ResultUnavailable = "unavailable"
	ResultError       = "error"
)

var (
	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	catalogOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_operations_total",
			Help: "Total number of catalog operations, labeled by operation and result.",
		},
		[]string{"operation", "result"},
	)

	searchUpstreamTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_search_upstream_total",
			Help: "Total number of upstream search calls, labeled by result.",
		},
		[]string{"result"},
	)

	searchUpstreamDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_search_upstream_duration_seconds",
			Help:    "Histogram of upstream search latencies.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	searchRateLimitDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_search_rate_limit_delay_seconds",
			Help:    "Time outbound search calls spent waiting on the rate limiter, labeled by host.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"host"},
	)

	logRecordsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_log_records_dropped_total",
			Help: "Total number of request log records dropped due to backpressure.",
		},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest records the latency of a served request.
func ObserveHTTPRequest(method, route string, duration time.Duration) {
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveOperation counts a catalog operation outcome.
func ObserveOperation(operation, result string) {
	catalogOperationsTotal.WithLabelValues(operation, result).Inc()
}

// ObserveSearch counts an upstream search call and records its latency.
func ObserveSearch(result string, duration time.Duration) {
	searchUpstreamTotal.WithLabelValues(result).Inc()
	searchUpstreamDurationSeconds.Observe(duration.Seconds())
}

// ObserveRateLimitDelay records how long an upstream call waited for a token.
func ObserveRateLimitDelay(host string, delay time.Duration) {
	searchRateLimitDelaySeconds.WithLabelValues(host).Observe(delay.Seconds())
}

// ObserveLogRecordsDropped adds n dropped log records.
func ObserveLogRecordsDropped(n int64) {
	logRecordsDroppedTotal.Add(float64(n))
}
