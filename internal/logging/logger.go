package logging

import (
	"go.uber.org/zap"

	"github.com/vostrikal/stream-anomaly-worker/internal/config"
)

// NewLogger creates a new structured logger
func NewLogger(serviceName string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.InitialFields = map[string]interface{}{
		"service": serviceName,
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return logger, nil
}

// WithRunID returns a logger with run_id field
func WithRunID(logger *zap.Logger, runID string) *zap.Logger {
	return logger.With(zap.String("run_id", runID))
}

// NewAnomalyLog builds the rotating anomaly log from configuration.
func NewAnomalyLog(cfg *config.Config) (*AnomalyLog, error) {
	return newAnomalyLog(cfg.AnomalyLog)
}
