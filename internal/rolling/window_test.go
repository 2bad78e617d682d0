package rolling_test

import (
	"math"
	"testing"

	"github.com/vostrikal/stream-anomaly-worker/internal/rolling"
)

const tolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestWindow_Empty(t *testing.T) {
	w := rolling.NewWindow(5)

	if w.Len() != 0 {
		t.Errorf("Expected empty window, got len %d", w.Len())
	}
	if w.Capacity() != 5 {
		t.Errorf("Expected capacity 5, got %d", w.Capacity())
	}
	if w.Mean() != 0 {
		t.Errorf("Expected mean 0 for empty window, got %g", w.Mean())
	}
	if w.StdDev() != 0 {
		t.Errorf("Expected std dev 0 for empty window, got %g", w.StdDev())
	}
	if w.Values() != nil {
		t.Errorf("Expected nil values for empty window, got %v", w.Values())
	}
}

func TestWindow_PartialFillKeepsArrivalOrder(t *testing.T) {
	w := rolling.NewWindow(5)

	w.Push(3)
	w.Push(1)
	w.Push(4)

	if w.Len() != 3 {
		t.Fatalf("Expected len 3, got %d", w.Len())
	}

	want := []float64{3, 1, 4}
	got := w.Values()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected values %v, got %v", want, got)
			break
		}
	}
}

func TestWindow_EvictsOldestFirst(t *testing.T) {
	w := rolling.NewWindow(4)

	for _, v := range []float64{1, 2, 3, 4, 5, 6} {
		w.Push(v)
	}

	if w.Len() != 4 {
		t.Fatalf("Expected len capped at 4, got %d", w.Len())
	}

	want := []float64{3, 4, 5, 6}
	got := w.Values()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected last four samples %v in arrival order, got %v", want, got)
			break
		}
	}

	if !almostEqual(w.Mean(), 4.5) {
		t.Errorf("Expected mean 4.5 over surviving samples, got %g", w.Mean())
	}
	// Population std dev of {3,4,5,6}.
	if !almostEqual(w.StdDev(), math.Sqrt(1.25)) {
		t.Errorf("Expected std dev %g, got %g", math.Sqrt(1.25), w.StdDev())
	}
}

func TestWindow_StatsMatchDirectComputation(t *testing.T) {
	w := rolling.NewWindow(6)

	samples := []float64{2.5, -1.25, 7.75, 0.5, 3.125, -4.5, 9.25, 1.75}
	for _, v := range samples {
		w.Push(v)
	}

	vals := w.Values()
	if len(vals) != 6 {
		t.Fatalf("Expected 6 surviving samples, got %d", len(vals))
	}

	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))

	var variance float64
	for _, v := range vals {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(vals))

	if !almostEqual(w.Mean(), mean) {
		t.Errorf("Expected incremental mean %g to match direct %g", w.Mean(), mean)
	}
	if !almostEqual(w.StdDev(), math.Sqrt(variance)) {
		t.Errorf("Expected incremental std dev %g to match direct %g", w.StdDev(), math.Sqrt(variance))
	}
}

func TestWindow_ConstantSamplesHaveZeroStdDev(t *testing.T) {
	w := rolling.NewWindow(8)

	for i := 0; i < 20; i++ {
		w.Push(42.42)
	}

	if !almostEqual(w.Mean(), 42.42) {
		t.Errorf("Expected mean 42.42, got %g", w.Mean())
	}
	if w.StdDev() != 0 {
		t.Errorf("Expected zero std dev for constant samples, got %g", w.StdDev())
	}
}

func TestWindow_SingleCapacityKeepsNewest(t *testing.T) {
	w := rolling.NewWindow(1)

	w.Push(1)
	w.Push(2)
	w.Push(3)

	if w.Len() != 1 {
		t.Fatalf("Expected len 1, got %d", w.Len())
	}
	if got := w.Values(); len(got) != 1 || got[0] != 3 {
		t.Errorf("Expected only the newest sample [3], got %v", got)
	}
	if !almostEqual(w.Mean(), 3) {
		t.Errorf("Expected mean 3, got %g", w.Mean())
	}
}
