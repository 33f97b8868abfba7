// Package metrics holds the Prometheus instrumentation for the townscope
// service: scoring throughput, result-cache efficiency, HTTP traffic,
// ranking runs and blob storage health.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scoring
	TownsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "townscope_towns_scored_total",
			Help: "Total number of town/profile matches computed",
		},
		[]string{"source"}, // "score", "rank", "run"
	)

	RankDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "townscope_rank_duration_seconds",
			Help:    "Duration of ranking a town set for one profile",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	// Result cache
	ResultCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "townscope_result_cache_hits_total",
			Help: "Total number of match-result cache hits",
		},
		[]string{"backend"},
	)

	ResultCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "townscope_result_cache_misses_total",
			Help: "Total number of match-result cache misses",
		},
		[]string{"backend"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "townscope_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "townscope_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "townscope_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"route"},
	)

	// Ingestion
	MatchRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "townscope_match_runs_total",
			Help: "Total number of persisted ranking runs by final status",
		},
		[]string{"status"},
	)

	TownsImported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "townscope_towns_imported_total",
			Help: "Total number of towns upserted from datasets",
		},
	)

	StorageBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "townscope_storage_breaker_state",
			Help: "Blob storage circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordScored counts n computed matches for a source.
func RecordScored(source string, n int) {
	TownsScored.WithLabelValues(source).Add(float64(n))
}

// RecordRank records one ranking pass over n towns.
func RecordRank(n int, duration time.Duration) {
	RecordScored("rank", n)
	RankDuration.Observe(duration.Seconds())
}

// RecordCacheLookup counts a hit or miss for a cache backend.
func RecordCacheLookup(backend string, hit bool) {
	if hit {
		ResultCacheHits.WithLabelValues(backend).Inc()
		return
	}
	ResultCacheMisses.WithLabelValues(backend).Inc()
}

// RecordAPIRequest records an API request with its route pattern.
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRateLimited counts a rejected request.
func RecordRateLimited(route string) {
	APIRateLimitHits.WithLabelValues(route).Inc()
}

// RecordRun counts a finished ranking run.
func RecordRun(status string) {
	MatchRuns.WithLabelValues(status).Inc()
}

// RecordImport counts towns upserted from a dataset.
func RecordImport(n int) {
	TownsImported.Add(float64(n))
}

// SetBreakerState publishes a circuit breaker state.
func SetBreakerState(name string, state int) {
	StorageBreakerState.WithLabelValues(name).Set(float64(state))
}
