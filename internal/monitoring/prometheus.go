package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline Metrics
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filmdash_stage_duration_seconds",
			Help:    "Duration of dashboard pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	StageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmdash_stage_errors_total",
			Help: "Total number of failed dashboard pipeline stages",
		},
		[]string{"stage"},
	)

	// Loader Metrics
	SourceCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filmdash_source_cache_hits_total",
			Help: "Total number of source table loads served from cache",
		},
	)

	SourceCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filmdash_source_cache_misses_total",
			Help: "Total number of source table loads read from disk",
		},
	)

	SourceRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "filmdash_source_rows",
			Help: "Row count of each loaded source table",
		},
		[]string{"table"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmdash_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filmdash_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// ObserveStage records a stage duration and, when err is set, a failure.
func ObserveStage(stage string, duration time.Duration, err error) {
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		StageErrors.WithLabelValues(stage).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordSourceCache records a loader cache lookup.
func RecordSourceCache(hit bool) {
	if hit {
		SourceCacheHits.Inc()
	} else {
		SourceCacheMisses.Inc()
	}
}
