package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vostrikal/stream-anomaly-worker/internal/config"
	"github.com/vostrikal/stream-anomaly-worker/internal/db"
	"github.com/vostrikal/stream-anomaly-worker/internal/detector"
	"github.com/vostrikal/stream-anomaly-worker/internal/logging"
	"github.com/vostrikal/stream-anomaly-worker/internal/metrics"
	"github.com/vostrikal/stream-anomaly-worker/internal/model"
)

// ErrSinkClosed ends a run when the visual sink stops accepting points.
var ErrSinkClosed = errors.New("visual sink closed")

// SampleSource produces the synthetic stream, one sample per call. Step
// reports how many samples have been produced, which is the 1-based
// sequence index of the latest one.
type SampleSource interface {
	NextValue() float64
	Step() int64
}

// VisualSink receives every classified point. The returned flag is the
// sink's liveness: false means it will accept nothing further and the
// stream should end.
type VisualSink interface {
	Update(ctx context.Context, p model.Point) bool
}

// SampleArchive persists classified samples durably.
type SampleArchive interface {
	InsertSample(ctx context.Context, sample *db.StreamSample) error
}

// SnapshotWriter keeps the latest classified point available for queries.
type SnapshotWriter interface {
	SaveLatest(ctx context.Context, p model.Point) error
}

// EventPublisher emits one event per classified sample.
type EventPublisher interface {
	PublishClassified(ctx context.Context, p model.Point) error
}

// Sinks bundles the collaborators a classified point is fanned out to.
type Sinks struct {
	Visual    VisualSink
	Archive   SampleArchive
	Snapshots SnapshotWriter
	Events    EventPublisher
}

// Streamer drives the stream: on every tick it pulls the next sample from
// the source, classifies it, and fans the classified point out. The visual
// sink is served last and its liveness verdict decides whether the run
// continues; the other sinks are best effort and only logged and counted
// on failure.
type Streamer struct {
	source     SampleSource
	detector   *detector.Detector
	sinks      Sinks
	metrics    *metrics.Metrics
	anomalyLog *logging.AnomalyLog
	interval   time.Duration
	runID      uuid.UUID
	logger     *zap.Logger
}

// NewStreamer creates a streamer for one run. Each run gets a fresh id that
// tags every archived row, event, and log line it produces.
func NewStreamer(
	source SampleSource,
	det *detector.Detector,
	sinks Sinks,
	m *metrics.Metrics,
	anomalyLog *logging.AnomalyLog,
	cfg *config.Config,
	logger *zap.Logger,
) *Streamer {
	runID := uuid.New()
	return &Streamer{
		source:     source,
		detector:   det,
		sinks:      sinks,
		metrics:    m,
		anomalyLog: anomalyLog,
		interval:   cfg.Stream.Interval,
		runID:      runID,
		logger:     logging.WithRunID(logger, runID.String()),
	}
}

// RunID returns the identifier of this run.
func (s *Streamer) RunID() uuid.UUID {
	return s.runID
}

// Run paces the stream until ctx is canceled or the visual sink closes.
// A closed sink returns ErrSinkClosed; cancellation returns nil.
func (s *Streamer) Run(ctx context.Context) error {
	s.logger.Info("stream started",
		zap.Int("window_size", s.detector.Capacity()),
		zap.Float64("threshold", s.detector.Threshold()),
		zap.Duration("interval", s.interval),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stream stopped", zap.Int64("samples", s.source.Step()))
			return nil
		case <-ticker.C:
			if live := s.processTick(ctx); !live {
				s.logger.Info("visual sink closed, ending stream",
					zap.Int64("samples", s.source.Step()))
				return ErrSinkClosed
			}
		}
	}
}

// processTick handles one sample end to end and reports the visual sink's
// liveness.
func (s *Streamer) processTick(ctx context.Context) bool {
	start := time.Now()

	value := s.source.NextValue()
	seq := s.source.Step()
	flagged := s.detector.Classify(value)

	point := model.Point{
		RunID:        s.runID,
		Seq:          seq,
		Value:        value,
		Anomaly:      flagged,
		WindowMean:   s.detector.Mean(),
		WindowStdDev: s.detector.StdDev(),
		WindowSize:   s.detector.WindowLen(),
		ObservedAt:   time.Now().UTC(),
	}

	s.metrics.ObservePoint(point)

	if flagged {
		s.anomalyLog.Record(point)
		s.logger.Warn("anomaly detected",
			zap.Int64("seq", seq),
			zap.Float64("value", value),
			zap.Float64("window_mean", point.WindowMean),
			zap.Float64("window_stddev", point.WindowStdDev),
		)
	}

	if err := s.sinks.Archive.InsertSample(ctx, archiveRow(point)); err != nil {
		s.metrics.ArchiveErrors.Inc()
		s.logger.Error("failed to archive sample", zap.Error(err), zap.Int64("seq", seq))
	}

	if err := s.sinks.Snapshots.SaveLatest(ctx, point); err != nil {
		s.metrics.SnapshotErrors.Inc()
		s.logger.Warn("failed to store snapshot", zap.Error(err), zap.Int64("seq", seq))
	}

	if err := s.sinks.Events.PublishClassified(ctx, point); err != nil {
		s.metrics.PublishErrors.Inc()
		s.logger.Error("failed to publish classified sample", zap.Error(err), zap.Int64("seq", seq))
	}

	live := s.sinks.Visual.Update(ctx, point)

	s.metrics.TickSeconds.Observe(time.Since(start).Seconds())
	return live
}

func archiveRow(p model.Point) *db.StreamSample {
	return &db.StreamSample{
		RunID:        p.RunID,
		Seq:          p.Seq,
		Value:        p.Value,
		IsAnomaly:    p.Anomaly,
		WindowMean:   p.WindowMean,
		WindowStdDev: p.WindowStdDev,
		ObservedAt:   p.ObservedAt,
	}
}
