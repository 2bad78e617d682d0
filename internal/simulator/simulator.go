package simulator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Construction errors.
var (
	// ErrInvalidPeriod is returned when the seasonal period is not positive.
	ErrInvalidPeriod = errors.New("seasonal period must be positive")
	// ErrInvalidNoise is returned when the noise level is negative.
	ErrInvalidNoise = errors.New("noise level must not be negative")
)

const (
	outlierProbability  = 0.01
	outlierMinMagnitude = 5.0
	outlierMaxMagnitude = 10.0
	// Negative excursions are deliberately larger than positive ones so the
	// generated stream stresses both tails of the detector unevenly.
	negativeSpikeFactor = 1.5
)

// Params configures a Simulator.
type Params struct {
	// SeasonalPeriod is the number of samples per sine cycle.
	SeasonalPeriod int
	// TrendFactor is the slope of the linear drift term.
	TrendFactor float64
	// NoiseLevel is the standard deviation of the Gaussian noise term.
	NoiseLevel float64
	// Seed seeds the internal random source. Zero means seed from the
	// wall clock; any other value makes the stream fully reproducible.
	Seed int64
}

// Simulator produces a synthetic scalar stream: a seasonal sine wave plus a
// linear trend plus Gaussian noise, with rare injected outliers. It exists
// to drive and validate the detector and has no dependency on it.
//
// A Simulator is not safe for concurrent use.
type Simulator struct {
	seasonalPeriod int
	trendFactor    float64
	noiseLevel     float64
	counter        int64
	rng            *rand.Rand
}

// New returns a simulator for the given parameters.
func New(p Params) (*Simulator, error) {
	if p.SeasonalPeriod <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPeriod, p.SeasonalPeriod)
	}
	if p.NoiseLevel < 0 {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidNoise, p.NoiseLevel)
	}
	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		seasonalPeriod: p.SeasonalPeriod,
		trendFactor:    p.TrendFactor,
		noiseLevel:     p.NoiseLevel,
		rng:            rand.New(rand.NewSource(seed)),
	}, nil
}

// NextValue produces the next sample: seasonal + trend + noise + outlier,
// where the outlier term is zero on 99% of calls. Always finite.
func (s *Simulator) NextValue() float64 {
	seasonal := math.Sin(2 * math.Pi * float64(s.counter) / float64(s.seasonalPeriod))
	trend := s.trendFactor * float64(s.counter)
	noise := s.rng.NormFloat64() * s.noiseLevel

	var outlier float64
	if s.rng.Float64() < outlierProbability {
		magnitude := outlierMinMagnitude + s.rng.Float64()*(outlierMaxMagnitude-outlierMinMagnitude)
		if s.rng.Intn(2) == 0 {
			outlier = -magnitude * negativeSpikeFactor
		} else {
			outlier = magnitude
		}
	}

	s.counter++
	return seasonal + trend + noise + outlier
}

// Step returns the number of samples produced so far, which is also the
// 1-based sequence index of the most recent sample.
func (s *Simulator) Step() int64 {
	return s.counter
}
