// Package metrics registers the pipeline's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// External API metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "youtube_api_calls_total",
			Help: "Total number of external API calls by logical endpoint and outcome",
		},
		[]string{"endpoint", "outcome"}, // outcome: "success", "transient", "terminal", "rejected"
	)

	APIInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "youtube_api_in_flight",
			Help: "Current number of in-flight external API calls",
		},
		[]string{"endpoint"},
	)

	// Quota metrics
	QuotaUsed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "youtube_quota_units_used",
			Help: "External API quota units consumed in the current daily window",
		},
	)

	QuotaLimit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "youtube_quota_units_limit",
			Help: "Configured daily external API quota limit",
		},
	)

	QuotaRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "youtube_quota_rejections_total",
			Help: "Calls rejected locally because they would exceed the daily quota",
		},
	)

	// Circuit breaker metrics
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"dependency"},
	)

	BreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Total number of circuit breaker open transitions",
		},
		[]string{"dependency"},
	)

	// Queue metrics, sampled from the queue inspector
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_jobs",
			Help: "Number of jobs per priority queue and state",
		},
		[]string{"queue", "state"}, // state: "pending", "active", "scheduled", "retry"
	)

	QueueShare = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_jobs_share_percent",
			Help: "Percentage of all queued jobs held by this priority queue and state",
		},
		[]string{"queue", "state"},
	)

	QueueLatency = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_latency_seconds",
			Help: "Age of the oldest pending job per priority queue",
		},
		[]string{"queue"},
	)

	// Job processing metrics
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_processing_duration_seconds",
			Help:    "Job processing duration by task type",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"task_type"},
	)

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Jobs processed by task type and outcome",
		},
		[]string{"task_type", "outcome"}, // outcome: "completed", "failed"
	)

	StuckJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_jobs_stuck",
			Help: "In-progress sync jobs past the stuck-duration threshold",
		},
	)

	// Pipeline result metrics
	PromotionResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promotions_total",
			Help: "Promotion outcomes per processed video",
		},
		[]string{"result"}, // "promoted", "skipped", "failed"
	)

	CleanupAffected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maintenance_rows_affected_total",
			Help: "Catalog rows affected by maintenance runs per scope",
		},
		[]string{"scope"},
	)
)
