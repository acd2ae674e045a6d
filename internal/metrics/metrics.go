// Package metrics provides Prometheus metrics for trendscout.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dedup decisions.
const (
	DecisionExact = "exact"
	DecisionFuzzy = "fuzzy"
	DecisionNew   = "new"
)

// Ingest run outcomes.
const (
	StatusOK          = "ok"
	StatusRateLimited = "rate_limited"
	StatusError       = "error"
)

var (
	// TrendsObserved counts fetched trends by dedup decision.
	TrendsObserved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trendscout",
			Name:      "trends_observed_total",
			Help:      "Total number of observed trends by dedup decision",
		},
		[]string{"decision"},
	)

	// IngestRuns counts aggregation cycles by outcome.
	IngestRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trendscout",
			Name:      "ingest_runs_total",
			Help:      "Total number of ingest runs by status",
		},
		[]string{"status"},
	)

	// IngestDuration measures aggregation cycle duration.
	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "trendscout",
			Name:      "ingest_duration_seconds",
			Help:      "Duration of ingest runs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// SourceErrors counts failed fetches per trend source.
	SourceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trendscout",
			Name:      "source_errors_total",
			Help:      "Total number of failed trend fetches by source",
		},
		[]string{"source"},
	)

	// DedupScore observes the combined score of fuzzy matches.
	DedupScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "trendscout",
			Name:      "dedup_score",
			Help:      "Combined similarity score of fuzzy dedup matches",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
	)
)

// RecordDecision records a dedup decision for one observed trend.
func RecordDecision(decision string) {
	TrendsObserved.WithLabelValues(decision).Inc()
}

// RecordIngest records a finished ingest run.
func RecordIngest(status string, seconds float64) {
	IngestRuns.WithLabelValues(status).Inc()
	IngestDuration.Observe(seconds)
}

// RecordSourceError records a failed fetch from source.
func RecordSourceError(source string) {
	SourceErrors.WithLabelValues(source).Inc()
}
