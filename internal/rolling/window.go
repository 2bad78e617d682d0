package rolling

import "math"

// Window is a fixed-capacity ring buffer over float64 samples with
// incrementally maintained sum and sum of squares, so mean and standard
// deviation are O(1) regardless of capacity.
type Window struct {
	capacity   int
	values     []float64
	pos        int
	count      int
	sum        float64
	sumSquares float64
}

// NewWindow returns a window holding at most capacity samples. The backing
// array is allocated once; Push never allocates.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = 1
	}
	return &Window{
		capacity: capacity,
		values:   make([]float64, capacity),
	}
}

// Push inserts v, evicting the oldest sample when the window is full.
func (w *Window) Push(v float64) {
	if w.count == w.capacity {
		old := w.values[w.pos]
		w.sum -= old
		w.sumSquares -= old * old
	} else {
		w.count++
	}
	w.values[w.pos] = v
	w.sum += v
	w.sumSquares += v * v
	w.pos = (w.pos + 1) % w.capacity
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	return w.count
}

// Capacity returns the maximum number of samples the window holds.
func (w *Window) Capacity() int {
	return w.capacity
}

// Mean returns the arithmetic mean of the current samples, 0 when empty.
func (w *Window) Mean() float64 {
	if w.count == 0 {
		return 0
	}
	return w.sum / float64(w.count)
}

// StdDev returns the population standard deviation of the current samples,
// 0 when empty. Floating-point drift can push the computed variance a hair
// below zero for near-constant windows; it is clamped before the square root.
func (w *Window) StdDev() float64 {
	if w.count == 0 {
		return 0
	}
	mean := w.sum / float64(w.count)
	variance := w.sumSquares/float64(w.count) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// Values returns a copy of the current samples in arrival order, oldest
// first, or nil when empty.
func (w *Window) Values() []float64 {
	if w.count == 0 {
		return nil
	}
	out := make([]float64, w.count)
	if w.count < w.capacity {
		copy(out, w.values[:w.count])
	} else {
		// Full ring: w.pos is the oldest slot.
		n := copy(out, w.values[w.pos:])
		copy(out[n:], w.values[:w.pos])
	}
	return out
}
