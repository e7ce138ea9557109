package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersAgainstProvidedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	if m.Registry != reg {
		t.Fatalf("New did not retain the provided registry")
	}

	m.CommandsSent.WithLabelValues("ANIME").Inc()
	m.CacheHits.WithLabelValues("anime").Inc()
	m.CacheHits.WithLabelValues("anime").Inc()

	if got := testutil.ToFloat64(m.CommandsSent.WithLabelValues("ANIME")); got != 1 {
		t.Fatalf("CommandsSent = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheHits.WithLabelValues("anime")); got != 2 {
		t.Fatalf("CacheHits = %v, want 2", got)
	}
}

func TestNewWithNilRegistryIsUsable(t *testing.T) {
	m := New(nil)
	if m.Registry == nil {
		t.Fatalf("New(nil) left Registry nil")
	}
	m.BansEntered.Inc()
	if got := testutil.ToFloat64(m.BansEntered); got != 1 {
		t.Fatalf("BansEntered = %v, want 1", got)
	}
}
