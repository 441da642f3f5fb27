// Package metrics registers Prometheus instrumentation for vector-database
// backend calls. A BackendMetrics instance is created per backend with an
// injected prometheus.Registerer so that unit tests can use a fresh registry
// without polluting the default one.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values for the "outcome" dimension.
const (
	// OutcomeOK marks a backend call that completed successfully.
	OutcomeOK = "ok"
	// OutcomeError marks a backend call that failed after retries.
	OutcomeError = "error"
)

// BackendMetrics holds all Prometheus metrics owned by a backend adapter.
type BackendMetrics struct {
	// RequestsTotal counts completed backend calls, partitioned by backend
	// name, operation (upsert, query, delete, stats), and outcome.
	RequestsTotal *prometheus.CounterVec

	// RequestDuration records the wall-clock duration of each backend call
	// including retries.
	RequestDuration *prometheus.HistogramVec

	// RetriesTotal counts re-attempts of backend calls after transient
	// failures, partitioned by backend name and operation.
	RetriesTotal *prometheus.CounterVec

	// UpsertBatchSize records the number of vector records per upsert batch.
	UpsertBatchSize prometheus.Histogram
}

// NewBackendMetrics registers all backend metrics against reg for the named
// backend and returns the populated BackendMetrics. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewBackendMetrics(reg prometheus.Registerer, backend string) *BackendMetrics {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"backend": backend}

	return &BackendMetrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "vecstore",
			Subsystem:   "backend",
			Name:        "requests_total",
			Help:        "Total number of backend calls completed, partitioned by operation and outcome.",
			ConstLabels: labels,
		}, []string{"operation", "outcome"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "vecstore",
			Subsystem:   "backend",
			Name:        "request_duration_seconds",
			Help:        "Wall-clock duration of backend calls including retries.",
			Buckets:     []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			ConstLabels: labels,
		}, []string{"operation"}),

		RetriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "vecstore",
			Subsystem:   "backend",
			Name:        "retries_total",
			Help:        "Total number of backend call re-attempts after transient failures.",
			ConstLabels: labels,
		}, []string{"operation"}),

		UpsertBatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "vecstore",
			Subsystem:   "backend",
			Name:        "upsert_batch_size",
			Help:        "Number of vector records per upsert batch write.",
			Buckets:     []float64{1, 5, 10, 25, 50, 100},
			ConstLabels: labels,
		}),
	}
}
