// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
	OutcomeRejected  = "rejected"
	OutcomeCommitted = "committed"
	OutcomePartial   = "partial_failure"
	OutcomeNoSignal  = "no_signal"
	OutcomeHit       = "hit"
	OutcomeMiss      = "miss"
	OutcomeError     = "error"
)

var (
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "career_predictions_total",
			Help: "Total number of prediction requests by outcome",
		},
		[]string{"outcome"},
	)

	PredictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "career_prediction_duration_seconds",
			Help:    "Time spent computing a prediction",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	RetrainsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "career_retrains_total",
			Help: "Total number of retrain attempts by outcome",
		},
		[]string{"outcome"},
	)

	RetrainDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "career_retrain_duration_seconds",
			Help:    "Duration of successful retrains",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	VocabularySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "career_model_vocabulary_size",
			Help: "Number of distinct skills known to the served model",
		},
	)

	KnownRoles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "career_model_roles",
			Help: "Number of roles known to the served model",
		},
	)

	DatasetUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "career_dataset_uploads_total",
			Help: "Total number of dataset uploads by outcome",
		},
		[]string{"outcome"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "career_prediction_cache_lookups_total",
			Help: "Prediction cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	RetrainJobsQueued = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "career_retrain_jobs_queued",
			Help: "Retrain jobs waiting for the worker",
		},
	)
)
