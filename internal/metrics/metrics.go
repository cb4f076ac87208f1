// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - Embedding provider calls, token usage and rate limiting
// - Vector store (DuckDB) query latency
// - Two-tier cache efficiency
// - Pipeline throughput and job queue state
// - Search latency and the admin API

var (
	// Provider Metrics
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_provider_requests_total",
			Help: "Total embedding provider requests by outcome",
		},
		[]string{"outcome"}, // success, retry, failure, rejected
	)

	ProviderRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "embedding_provider_request_duration_seconds",
			Help:    "Embedding provider round-trip duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ProviderTokens = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "embedding_provider_tokens_total",
			Help: "Total tokens consumed by the embedding provider",
		},
	)

	RateLimitWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "embedding_rate_limit_wait_seconds",
			Help:    "Time callers spent blocked on the provider rate limiter",
			Buckets: []float64{0, 0.01, 0.1, 0.5, 1, 5, 15, 30, 60},
		},
	)

	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "embedding_rate_limit_rejections_total",
			Help: "Calls rejected because the rate limiter could not admit them before the deadline",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Vector Store Metrics
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vectorstore_query_duration_seconds",
			Help:    "Duration of vector store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vectorstore_query_errors_total",
			Help: "Total number of vector store query errors",
		},
		[]string{"operation"},
	)

	StoreItemsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vectorstore_items",
			Help: "Stored items by processing status",
		},
		[]string{"status"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_cache_hits_total",
			Help: "Cache hits by namespace and tier",
		},
		[]string{"namespace", "tier"}, // tier: local, remote
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_cache_misses_total",
			Help: "Cache misses by namespace",
		},
		[]string{"namespace"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_cache_evictions_total",
			Help: "Entries evicted for capacity or expiry",
		},
		[]string{"namespace", "reason"}, // reason: capacity, expired
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_cache_errors_total",
			Help: "Remote cache tier failures degraded to misses",
		},
		[]string{"namespace", "operation"},
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "embedding_cache_entries",
			Help: "Current process-tier entries per namespace",
		},
		[]string{"namespace"},
	)

	// Pipeline Metrics
	PipelineItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_items_total",
			Help: "Items handled by the embedding pipeline by outcome",
		},
		[]string{"outcome"}, // processed, skipped, failed, retried
	)

	PipelineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "Duration of complete pipeline runs",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		},
	)

	PipelineQualityScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_quality_score",
			Help:    "Distribution of processed item quality scores",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)

	// Job Queue Metrics
	JobTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobqueue_transitions_total",
			Help: "Job state transitions by job type and target status",
		},
		[]string{"type", "status"},
	)

	JobQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jobqueue_jobs",
			Help: "Current number of jobs by status",
		},
		[]string{"status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobqueue_job_duration_seconds",
			Help:    "Execution time of jobs by type",
			Buckets: []float64{0.1, 1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"type"},
	)

	// Search Metrics
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "Search and recommendation latency",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)
)

// RecordStoreQuery records a vector store query.
func RecordStoreQuery(operation string, duration time.Duration, err error) {
	StoreQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordProviderRequest records one provider round-trip.
func RecordProviderRequest(outcome string, duration time.Duration, tokens int) {
	ProviderRequests.WithLabelValues(outcome).Inc()
	ProviderRequestDuration.Observe(duration.Seconds())
	if tokens > 0 {
		ProviderTokens.Add(float64(tokens))
	}
}

// RecordCacheLookup records a hit (with the tier that served it) or a miss.
func RecordCacheLookup(namespace, tier string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(namespace, tier).Inc()
		return
	}
	CacheMisses.WithLabelValues(namespace).Inc()
}

// RecordPipelineRun records the totals of one pipeline run.
func RecordPipelineRun(duration time.Duration, processed, skipped, failed int) {
	PipelineRunDuration.Observe(duration.Seconds())
	PipelineItems.WithLabelValues("processed").Add(float64(processed))
	PipelineItems.WithLabelValues("skipped").Add(float64(skipped))
	PipelineItems.WithLabelValues("failed").Add(float64(failed))
}

// RecordJobTransition counts a job moving into status.
func RecordJobTransition(jobType, status string) {
	JobTransitions.WithLabelValues(jobType, status).Inc()
}

// RecordSearch records one search engine operation.
func RecordSearch(operation string, duration time.Duration) {
	SearchDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
