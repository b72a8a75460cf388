package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistry_RegistersEveryMetricWithoutPanicking(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)
	if m == nil {
		t.Fatal("expected a non-nil Registry")
	}
}

func TestRegistry_CacheHitsIncrementsByTier(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.CacheHits.WithLabelValues("l1_fresh").Inc()
	m.CacheHits.WithLabelValues("l1_fresh").Inc()
	m.CacheHits.WithLabelValues("l2_stale").Inc()

	if got := testutil.ToFloat64(m.CacheHits.WithLabelValues("l1_fresh")); got != 2 {
		t.Errorf("expected 2 l1_fresh hits, got %v", got)
	}
	if got := testutil.ToFloat64(m.CacheHits.WithLabelValues("l2_stale")); got != 1 {
		t.Errorf("expected 1 l2_stale hit, got %v", got)
	}
}

func TestRegistry_CircuitStateTracksPerProviderGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.CircuitState.WithLabelValues("generic_equity").Set(2)
	if got := testutil.ToFloat64(m.CircuitState.WithLabelValues("generic_equity")); got != 2 {
		t.Errorf("expected state 2 (OPEN), got %v", got)
	}
}

func TestRegistry_SchedulerGaugesAreProcessWide(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.SchedulerTasksActive.Set(5)
	m.SchedulerTasksDisabled.Inc()

	if got := testutil.ToFloat64(m.SchedulerTasksActive); got != 5 {
		t.Errorf("expected 5 active tasks, got %v", got)
	}
	if got := testutil.ToFloat64(m.SchedulerTasksDisabled); got != 1 {
		t.Errorf("expected 1 disabled task, got %v", got)
	}
}
