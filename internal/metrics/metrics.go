// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CSVRowsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semla_csv_rows_imported_total",
			Help: "Rows accepted from LMS CSV exports",
		},
		[]string{"kind"},
	)

	CSVRowsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semla_csv_rows_dropped_total",
			Help: "Metadata and noise rows dropped from LMS CSV exports",
		},
		[]string{"kind"},
	)

	RubricDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semla_rubric_save_decisions_total",
			Help: "Duplicate-detection outcomes when saving rubrics",
		},
		[]string{"classification"},
	)

	EvaluationsSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semla_evaluations_saved_total",
			Help: "Total number of saved evaluations",
		},
		[]string{"delivery", "type"},
	)

	EvaluationTotals = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "semla_evaluation_total_points",
			Help:    "Distribution of evaluation totals",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		},
		[]string{"delivery"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
