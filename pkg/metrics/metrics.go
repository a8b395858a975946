// Package metrics registers the Prometheus instruments for report runs, the
// order table cache and the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Source metrics
	LoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cohort_source_load_duration_seconds",
			Help:    "Duration of order table loads in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"driver"},
	)

	LoadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohort_source_load_errors_total",
			Help: "Total number of failed order table loads",
		},
		[]string{"driver"},
	)

	RowsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cohort_source_rows",
			Help: "Raw order item rows in the last successful load",
		},
	)

	// Normalizer metrics
	RowsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohort_rows_dropped_total",
			Help: "Order item rows dropped during normalization",
		},
		[]string{"reason"},
	)

	UnknownStatusRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cohort_rows_unknown_status_total",
			Help: "Order item rows kept with a status outside the known set",
		},
	)

	// Cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cohort_cache_hits_total",
			Help: "Order table reads served from the cache",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cohort_cache_misses_total",
			Help: "Order table reads that triggered a load",
		},
	)

	CacheRefreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cohort_cache_refreshes_total",
			Help: "Explicit cache refreshes",
		},
	)

	// Report metrics
	ReportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cohort_report_duration_seconds",
			Help:    "Duration of one analytic report in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"report"},
	)

	ReportEmpty = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohort_report_empty_total",
			Help: "Reports that produced no rows",
		},
		[]string{"report"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohort_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cohort_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordLoad records one source load.
func RecordLoad(driver string, rows int, duration time.Duration, err error) {
	LoadDuration.WithLabelValues(driver).Observe(duration.Seconds())
	if err != nil {
		LoadErrors.WithLabelValues(driver).Inc()
		return
	}
	RowsLoaded.Set(float64(rows))
}

// RecordNormalize adds the normalizer's drop counts.
func RecordNormalize(droppedByReason map[string]int, unknownStatus int) {
	for reason, n := range droppedByReason {
		RowsDropped.WithLabelValues(reason).Add(float64(n))
	}
	UnknownStatusRows.Add(float64(unknownStatus))
}

// RecordReport records one analytic computation.
func RecordReport(report string, duration time.Duration, empty bool) {
	ReportDuration.WithLabelValues(report).Observe(duration.Seconds())
	if empty {
		ReportEmpty.WithLabelValues(report).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
