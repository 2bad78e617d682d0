package db

import (
	"time"

	"github.com/google/uuid"
)

// StreamSample is one classified sample as archived in the stream_samples
// table. WindowMean and WindowStdDev are the rolling statistics after the
// sample was inserted into the window.
type StreamSample struct {
	ID           uuid.UUID
	RunID        uuid.UUID
	Seq          int64
	Value        float64
	IsAnomaly    bool
	WindowMean   float64
	WindowStdDev float64
	ObservedAt   time.Time
}
