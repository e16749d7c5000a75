package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

var (
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_recommendations_total",
			Help: "Recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "venue_recommendation_duration_seconds",
			Help:    "End-to-end time to produce a ranked list",
			Buckets: prometheus.DefBuckets,
		},
	)

	VenuesScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_scored_total",
			Help: "Venues scored, by scoring profile",
		},
		[]string{"profile"},
	)

	VenuesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "venue_skipped_total",
			Help: "Catalog records skipped because they failed validation",
		},
	)

	WeatherOverrides = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "venue_weather_override_total",
			Help: "Requests whose venue type preference was forced to indoor",
		},
	)

	WeatherFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "venue_weather_failures_total",
			Help: "Forecast lookups that failed or timed out",
		},
	)

	CatalogFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "venue_catalog_fetch_duration_seconds",
			Help:    "Candidate fetch latency per catalog backend",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	CatalogErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_catalog_errors_total",
			Help: "Candidate fetch failures per catalog backend",
		},
		[]string{"backend"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_cache_lookups_total",
			Help: "Cache lookups by cache name and result",
		},
		[]string{"cache", "result"},
	)
)
