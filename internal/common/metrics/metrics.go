// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insightx_worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insightx_worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "insightx_worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "insightx_worker_active_jobs",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

// Analytics metrics
var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insightx_queries_total",
			Help: "Executed analytics queries by intent, metric and outcome",
		},
		[]string{"intent", "metric", "status"},
	)

	QueryConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "insightx_query_confidence",
			Help:    "Parser confidence of resolved queries",
			Buckets: []float64{0.4, 0.55, 0.7, 0.85, 0.95},
		},
	)

	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insightx_anomalies_detected_total",
			Help: "Anomalous groups reported, by metric",
		},
		[]string{"metric"},
	)

	ResultCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "insightx_result_cache_hits_total",
			Help: "Analytics results served from the cache",
		},
	)

	ResultCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "insightx_result_cache_misses_total",
			Help: "Analytics results computed because the cache had no entry",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "insightx_active_sessions",
			Help: "Conversation sessions currently held in memory",
		},
	)

	DatasetRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "insightx_dataset_rows",
			Help: "Rows in the loaded transaction dataset",
		},
	)

	RiskAlertsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "insightx_risk_alerts_published_total",
			Help: "Risk alerts published to SNS",
		},
	)
)
