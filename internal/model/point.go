package model

import (
	"time"

	"github.com/google/uuid"
)

// Point is one classified sample as it leaves the stream driver: the sample
// itself, its verdict, and the window statistics that will judge the next
// sample. Every downstream collaborator (live feed, snapshot store, archive,
// event publisher) consumes this shape.
type Point struct {
	RunID        uuid.UUID `json:"run_id"`
	Seq          int64     `json:"seq"`
	Value        float64   `json:"value"`
	Anomaly      bool      `json:"is_anomaly"`
	WindowMean   float64   `json:"window_mean"`
	WindowStdDev float64   `json:"window_stddev"`
	WindowSize   int       `json:"window_size"`
	ObservedAt   time.Time `json:"observed_at"`
}
