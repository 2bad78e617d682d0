package main

import (
	"github.com/vostrikal/stream-anomaly-worker/internal/config"
	"github.com/vostrikal/stream-anomaly-worker/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
