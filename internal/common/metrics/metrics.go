// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_submissions_total",
			Help: "Total number of form submission attempts",
		},
		[]string{"outcome"},
	)

	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "form_submission_duration_seconds",
			Help: "Duration of the submission pipeline in seconds",
		},
		[]string{"outcome"},
	)

	CompensationDeletes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compensation_deletes_total",
			Help: "Total number of compensating object deletes",
		},
		[]string{"outcome"},
	)

	QueueJobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_jobs_enqueued_total",
			Help: "Total number of jobs enqueued",
		},
		[]string{"task_type", "outcome"},
	)

	QueueJobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_jobs_processed_total",
			Help: "Total number of jobs processed by workers",
		},
		[]string{"task_type", "outcome"},
	)

	QueueJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "queue_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	OCRAnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ocr_analysis_duration_seconds",
			Help: "Duration of document analysis in seconds",
		},
		[]string{"mode"},
	)

	OCRModeSelected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocr_mode_selected_total",
			Help: "Extraction mode chosen per analysis request",
		},
		[]string{"mode", "source"},
	)

	WindowAutoCloses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "application_window_auto_closes_total",
			Help: "Total number of deadline-driven window closes",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notifications dispatched",
		},
		[]string{"channel", "outcome"},
	)
)
