package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vostrikal/stream-anomaly-worker/internal/model"
)

func TestObservePoint(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObservePoint(model.Point{Value: 1.5, WindowMean: 1.0, WindowStdDev: 0.25, WindowSize: 4})
	m.ObservePoint(model.Point{Value: 9.0, Anomaly: true, WindowMean: 2.5, WindowStdDev: 3.0, WindowSize: 5})

	if got := testutil.ToFloat64(m.SamplesTotal); got != 2 {
		t.Errorf("expected 2 samples, got %g", got)
	}
	if got := testutil.ToFloat64(m.AnomaliesTotal); got != 1 {
		t.Errorf("expected 1 anomaly, got %g", got)
	}
	if got := testutil.ToFloat64(m.LastValue); got != 9.0 {
		t.Errorf("expected last value 9.0, got %g", got)
	}
	if got := testutil.ToFloat64(m.AnomalyFlag); got != 1 {
		t.Errorf("expected anomaly flag 1, got %g", got)
	}
	if got := testutil.ToFloat64(m.WindowSize); got != 5 {
		t.Errorf("expected window size 5, got %g", got)
	}

	// A clean sample resets the flag but not the counters.
	m.ObservePoint(model.Point{Value: 2.0, WindowMean: 2.6, WindowStdDev: 2.9, WindowSize: 5})
	if got := testutil.ToFloat64(m.AnomalyFlag); got != 0 {
		t.Errorf("expected anomaly flag 0 after clean sample, got %g", got)
	}
	if got := testutil.ToFloat64(m.AnomaliesTotal); got != 1 {
		t.Errorf("expected anomaly counter unchanged at 1, got %g", got)
	}
}

func TestNew_RegistersOnInjectedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.SamplesTotal.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	found := false
	for _, mf := range families {
		if mf.GetName() == "stream_samples_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected stream_samples_total registered on the injected registry")
	}
}
