// Package metrics exposes Prometheus collectors for the matching pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the pipeline collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Decisions         *prometheus.CounterVec
	MatchDuration     prometheus.Histogram
	JobFailures       *prometheus.CounterVec
	Fallbacks         *prometheus.CounterVec
	PersistenceErrors prometheus.Counter
	BatchSize         prometheus.Histogram
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cv_matcher_decisions_total",
				Help: "Total number of match decisions by outcome",
			},
			[]string{"decision"},
		),
		MatchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cv_matcher_match_duration_seconds",
				Help:    "Duration of a single candidate/job match in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
		),
		JobFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cv_matcher_job_failures_total",
				Help: "Total number of jobs skipped in batch matching",
			},
			[]string{"reason"},
		),
		Fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cv_matcher_collaborator_fallbacks_total",
				Help: "Total number of optional collaborator calls that failed or timed out",
			},
			[]string{"collaborator"},
		),
		PersistenceErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "cv_matcher_persistence_errors_total",
				Help: "Total number of match results that could not be persisted",
			},
		),
		BatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cv_matcher_batch_jobs",
				Help:    "Number of jobs submitted per batch",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
	}
}

func (m *Metrics) ObserveDecision(decision string, took time.Duration) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(decision).Inc()
	m.MatchDuration.Observe(took.Seconds())
}

func (m *Metrics) JobFailed(reason string) {
	if m == nil {
		return
	}
	m.JobFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) Fallback(collaborator string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(collaborator).Inc()
}

func (m *Metrics) PersistenceFailed() {
	if m == nil {
		return
	}
	m.PersistenceErrors.Inc()
}

func (m *Metrics) ObserveBatch(jobs int) {
	if m == nil {
		return
	}
	m.BatchSize.Observe(float64(jobs))
}
