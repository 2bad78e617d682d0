package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vostrikal/stream-anomaly-worker/internal/config"
	"github.com/vostrikal/stream-anomaly-worker/internal/model"
)

// AnomalyLog is an append-only, size-rotated JSON log that receives one
// entry per flagged sample. It is a distinct type so it can be injected
// alongside the service logger.
type AnomalyLog struct {
	logger  *zap.Logger
	rotator *lumberjack.Logger
}

func newAnomalyLog(cfg config.AnomalyLogConfig) (*AnomalyLog, error) {
	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		zapcore.InfoLevel,
	)

	return &AnomalyLog{
		logger:  zap.New(core),
		rotator: rotator,
	}, nil
}

// Record writes one flagged sample to the log file.
func (a *AnomalyLog) Record(p model.Point) {
	a.logger.Info("anomaly detected",
		zap.String("run_id", p.RunID.String()),
		zap.Int64("seq", p.Seq),
		zap.Float64("value", p.Value),
		zap.Float64("window_mean", p.WindowMean),
		zap.Float64("window_stddev", p.WindowStdDev),
		zap.Int("window_size", p.WindowSize),
		zap.Time("observed_at", p.ObservedAt),
	)
}

// Close flushes buffered entries and closes the underlying file.
func (a *AnomalyLog) Close() error {
	_ = a.logger.Sync()
	return a.rotator.Close()
}
