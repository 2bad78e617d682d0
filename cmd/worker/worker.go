package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vostrikal/stream-anomaly-worker/internal/config"
	"github.com/vostrikal/stream-anomaly-worker/internal/db"
	"github.com/vostrikal/stream-anomaly-worker/internal/detector"
	"github.com/vostrikal/stream-anomaly-worker/internal/logging"
	"github.com/vostrikal/stream-anomaly-worker/internal/metrics"
	"github.com/vostrikal/stream-anomaly-worker/internal/mq"
	"github.com/vostrikal/stream-anomaly-worker/internal/persistence"
	"github.com/vostrikal/stream-anomaly-worker/internal/repository"
	"github.com/vostrikal/stream-anomaly-worker/internal/server"
	"github.com/vostrikal/stream-anomaly-worker/internal/service"
	"github.com/vostrikal/stream-anomaly-worker/internal/simulator"
	"github.com/vostrikal/stream-anomaly-worker/internal/ws"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func startStream(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	streamer *service.Streamer,
	hub *ws.Hub,
	anomalyLog *logging.AnomalyLog,
	logger *zap.Logger,
	_ *server.Server,
) {
	// Create context for the stream that will be cancelled on shutdown
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("starting stream",
				zap.String("run_id", streamer.RunID().String()))
			go func() {
				defer close(done)
				if err := streamer.Run(ctx); errors.Is(err, service.ErrSinkClosed) {
					// The visual sink closing ends the run, like the plot
					// window closing ends the original program.
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("failed to trigger shutdown", zap.Error(err))
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
			hub.Close()
			if err := anomalyLog.Close(); err != nil {
				logger.Error("failed to close anomaly log", zap.Error(err))
			}
			logger.Info("stream stopped gracefully")
			return nil
		},
	})
}

// ProvideRegistry creates the Prometheus registry all collectors register on
func ProvideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// ProvideMetrics creates the instrument set for the stream pipeline
func ProvideMetrics(registry *prometheus.Registry) *metrics.Metrics {
	return metrics.New(registry)
}

// ProvideRepository creates a new repository instance
func ProvideRepository(pool *db.Pool) *repository.Repository {
	return repository.NewRepository(pool)
}

// ProvideDetector creates the rolling z-score detector
func ProvideDetector(cfg *config.Config) (*detector.Detector, error) {
	return detector.New(cfg.Detector.WindowSize, cfg.Detector.Threshold)
}

// ProvideSimulator creates the synthetic signal source
func ProvideSimulator(cfg *config.Config) (*simulator.Simulator, error) {
	return simulator.New(simulator.Params{
		SeasonalPeriod: cfg.Simulator.SeasonalPeriod,
		TrendFactor:    cfg.Simulator.TrendFactor,
		NoiseLevel:     cfg.Simulator.NoiseLevel,
		Seed:           cfg.Simulator.Seed,
	})
}

// ProvidePublisher creates a new publisher instance
func ProvidePublisher(conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.Publisher, error) {
	return mq.NewPublisher(conn, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.RoutingKey, logger)
}

// ProvideSnapshotStore creates the Redis snapshot store. An unreachable
// Redis is logged but does not fail startup; snapshot writes are best
// effort and counted by the streamer.
func ProvideSnapshotStore(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) *persistence.SnapshotStore {
	store := persistence.NewSnapshotStore(cfg)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := store.Check(ctx); err != nil {
				logger.Warn("redis unreachable, snapshots will be retried per sample",
					zap.Error(err),
					zap.String("addr", cfg.Redis.Addr))
				return nil
			}
			logger.Info("redis connection established")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return store.Stop()
		},
	})

	return store
}

// ProvideAnomalyLog creates the rotating anomaly log file
func ProvideAnomalyLog(cfg *config.Config) (*logging.AnomalyLog, error) {
	return logging.NewAnomalyLog(cfg)
}

// ProvideHub creates the websocket live feed hub
func ProvideHub(logger *zap.Logger, m *metrics.Metrics) *ws.Hub {
	return ws.NewHub(logger, m.WSClients)
}

// ProvideAPI wires the HTTP handler set
func ProvideAPI(
	logger *zap.Logger,
	registry *prometheus.Registry,
	hub *ws.Hub,
	store *persistence.SnapshotStore,
	repo *repository.Repository,
) *server.API {
	return server.NewAPI(logger, registry, http.HandlerFunc(hub.HandleStream), store, repo, store)
}

// ProvideHTTPServer creates the HTTP server bound to the fx lifecycle
func ProvideHTTPServer(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger, api *server.API) *server.Server {
	return server.NewServer(lc, cfg, logger, api)
}

// ProvideStreamer creates the stream driver with its fan-out sinks
func ProvideStreamer(
	sim *simulator.Simulator,
	det *detector.Detector,
	hub *ws.Hub,
	repo *repository.Repository,
	store *persistence.SnapshotStore,
	publisher *mq.Publisher,
	m *metrics.Metrics,
	anomalyLog *logging.AnomalyLog,
	cfg *config.Config,
	logger *zap.Logger,
) *service.Streamer {
	sinks := service.Sinks{
		Visual:    hub,
		Archive:   repo,
		Snapshots: store,
		Events:    publisher,
	}
	return service.NewStreamer(sim, det, sinks, m, anomalyLog, cfg, logger)
}

// ProvideDBPool creates a new database pool instance
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, cfg)
}

// ProvideMQConnection creates a new RabbitMQ connection instance
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}
