package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the contact module.
// Tracks resolution outcomes, durations, and conflict retries.
type Metrics struct {
	Resolutions     *prometheus.CounterVec
	ResolveDuration prometheus.Histogram
	ConflictRetries prometheus.Counter
}

// New creates a new Metrics instance with all contact module metrics registered.
func New() *Metrics {
	return &Metrics{
		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "unify_resolutions_total",
			Help: "Total number of identity resolutions by outcome",
		}, []string{"outcome"}),
		ResolveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "unify_resolve_duration_seconds",
			Help:    "Duration of identity resolutions (match, closure, mutation, view)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ConflictRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "unify_resolution_conflict_retries_total",
			Help: "Total number of resolutions re-run after a store conflict",
		}),
	}
}

// IncrementResolution records a completed resolution with its outcome.
func (m *Metrics) IncrementResolution(outcome string) {
	m.Resolutions.WithLabelValues(outcome).Inc()
}

// ObserveResolve records the duration of a resolution.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveResolve(start time.Time) {
	m.ResolveDuration.Observe(time.Since(start).Seconds())
}

// IncrementConflictRetry records a resolution retried after a transaction conflict.
func (m *Metrics) IncrementConflictRetry() {
	m.ConflictRetries.Inc()
}
