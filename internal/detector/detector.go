package detector

import (
	"errors"
	"fmt"
	"math"

	"github.com/vostrikal/stream-anomaly-worker/internal/rolling"
)

// Construction errors. The steady-state Classify path never fails.
var (
	// ErrInvalidCapacity is returned when the window capacity is not positive.
	ErrInvalidCapacity = errors.New("window capacity must be positive")
	// ErrInvalidThreshold is returned when the z-score threshold is not positive.
	ErrInvalidThreshold = errors.New("z-score threshold must be positive")
)

// epsilon keeps the z-score denominator non-zero when the window is constant.
// Small enough that it never changes the decision for any real deviation.
const epsilon = 1e-10

// Detector classifies a stream of scalar samples as anomalous or not using
// a z-score against rolling statistics over a bounded window of recent
// samples. A sample is always judged against the statistics as they stood
// before it arrived, so a spike cannot soften its own judgment.
//
// A Detector is not safe for concurrent use; the caller serializes Classify.
type Detector struct {
	window    *rolling.Window
	threshold float64
	warm      bool
	mean      float64
	stdDev    float64
}

// New returns a detector over a window of the given capacity that flags
// samples whose absolute z-score exceeds threshold.
func New(capacity int, threshold float64) (*Detector, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	if threshold <= 0 {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidThreshold, threshold)
	}
	return &Detector{
		window:    rolling.NewWindow(capacity),
		threshold: threshold,
	}, nil
}

// Classify ingests the next sample and reports whether it is anomalous.
//
// During warm-up, while the window holds fewer than capacity/2 samples the
// value is stored and never judged; Classify returns false. Once warm, the
// z-score of each sample is computed from the statistics cached after the
// previous sample was inserted, the sample is then inserted (evicting the
// oldest when full) and the cache is refreshed from the new contents.
func (d *Detector) Classify(value float64) bool {
	if !d.warm {
		if d.window.Len() < d.window.Capacity()/2 {
			d.window.Push(value)
			return false
		}
		d.warm = true
		if d.window.Len() == 0 {
			// Capacity 1 leaves no warm-up history at all; there is
			// nothing to judge the first sample against.
			d.window.Push(value)
			d.refresh()
			return false
		}
		d.refresh()
	}

	z := (value - d.mean) / (d.stdDev + epsilon)

	d.window.Push(value)
	d.refresh()

	return math.Abs(z) > d.threshold
}

func (d *Detector) refresh() {
	d.mean = d.window.Mean()
	d.stdDev = d.window.StdDev()
}

// Warm reports whether the detector has accumulated enough samples to judge.
// Once true it never reverts.
func (d *Detector) Warm() bool {
	return d.warm
}

// Mean returns the cached window mean as of the last completed Classify.
func (d *Detector) Mean() float64 {
	return d.mean
}

// StdDev returns the cached window standard deviation as of the last
// completed Classify.
func (d *Detector) StdDev() float64 {
	return d.stdDev
}

// WindowLen returns the number of samples currently held.
func (d *Detector) WindowLen() int {
	return d.window.Len()
}

// Capacity returns the window capacity the detector was built with.
func (d *Detector) Capacity() int {
	return d.window.Capacity()
}

// Threshold returns the z-score threshold the detector was built with.
func (d *Detector) Threshold() float64 {
	return d.threshold
}
