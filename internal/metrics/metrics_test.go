package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewBackendMetrics_CountersIncrement(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewBackendMetrics(reg, "pinecone")

	m.RequestsTotal.WithLabelValues("upsert", OutcomeOK).Inc()
	m.RequestsTotal.WithLabelValues("upsert", OutcomeOK).Inc()
	m.RequestsTotal.WithLabelValues("query", OutcomeError).Inc()
	m.RetriesTotal.WithLabelValues("query").Inc()
	m.UpsertBatchSize.Observe(42)

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("upsert", OutcomeOK)); got != 2 {
		t.Errorf("upsert ok count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("query", OutcomeError)); got != 1 {
		t.Errorf("query error count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RetriesTotal.WithLabelValues("query")); got != 1 {
		t.Errorf("query retries = %v, want 1", got)
	}
}

func TestNewBackendMetrics_IsolatedRegistries(t *testing.T) {
	t.Parallel()

	// Two stores with separate registries must not collide on registration.
	a := NewBackendMetrics(prometheus.NewRegistry(), "pinecone")
	b := NewBackendMetrics(prometheus.NewRegistry(), "qdrant")
	a.RequestsTotal.WithLabelValues("delete", OutcomeOK).Inc()

	if got := testutil.ToFloat64(b.RequestsTotal.WithLabelValues("delete", OutcomeOK)); got != 0 {
		t.Errorf("registries not isolated: got %v", got)
	}
}
