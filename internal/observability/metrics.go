package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	evaluationsTotal    *prometheus.CounterVec
	recordsSavedTotal   *prometheus.CounterVec
	reportWritesTotal   *prometheus.CounterVec
	resultCacheLookups  *prometheus.CounterVec
	activeSessionsGauge prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used across the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 10, 30},
		}, []string{"method", "route"})

		evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluations_total",
			Help: "Answer sheet evaluation attempts by outcome.",
		}, []string{"outcome"})

		recordsSavedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "records_saved_total",
			Help: "Evaluation records written to the local record store.",
		}, []string{"operation"})

		reportWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_writes_total",
			Help: "Writes of flattened reports to the remote report sink.",
		}, []string{"sink", "outcome"})

		resultCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "result_cache_lookups_total",
			Help: "Student result cache lookups by outcome.",
		}, []string{"outcome"})

		activeSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Number of live sessions.",
		})

		prometheus.MustRegister(httpRequestsTotal, httpLatencySeconds, evaluationsTotal, recordsSavedTotal, reportWritesTotal, resultCacheLookups, activeSessionsGauge)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// Evaluations counts evaluation attempts labelled by outcome.
func Evaluations() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationsTotal
}

// RecordsSaved counts local store writes labelled by operation (confirm or update).
func RecordsSaved() *prometheus.CounterVec {
	RegisterMetrics()
	return recordsSavedTotal
}

// ReportWrites counts remote report sink writes.
func ReportWrites() *prometheus.CounterVec {
	RegisterMetrics()
	return reportWritesTotal
}

// ResultCacheLookups counts student result cache hits and misses.
func ResultCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return resultCacheLookups
}

// ActiveSessions tracks the number of live sessions.
func ActiveSessions() prometheus.Gauge {
	RegisterMetrics()
	return activeSessionsGauge
}
