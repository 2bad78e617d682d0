package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/vostrikal/stream-anomaly-worker/internal/config"
	"github.com/vostrikal/stream-anomaly-worker/internal/db"
	"github.com/vostrikal/stream-anomaly-worker/internal/model"
)

const (
	defaultQueryLimit = 50
	healthTimeout     = 2 * time.Second
)

// LatestSource serves the most recent classified points.
type LatestSource interface {
	FetchLatest(ctx context.Context) (*model.Point, error)
	FetchRecent(ctx context.Context, limit int64) ([]model.Point, error)
}

// AnomalySource serves archived anomalous samples.
type AnomalySource interface {
	RecentAnomalies(ctx context.Context, limit int) ([]db.StreamSample, error)
}

// HealthChecker reports whether the snapshot store is reachable.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// API bundles the HTTP handlers of the worker.
type API struct {
	logger    *zap.Logger
	registry  *prometheus.Registry
	stream    http.Handler
	latest    LatestSource
	anomalies AnomalySource
	health    HealthChecker
}

// NewAPI creates the handler set; stream serves the websocket live feed.
func NewAPI(
	logger *zap.Logger,
	registry *prometheus.Registry,
	stream http.Handler,
	latest LatestSource,
	anomalies AnomalySource,
	health HealthChecker,
) *API {
	return &API{
		logger:    logger,
		registry:  registry,
		stream:    stream,
		latest:    latest,
		anomalies: anomalies,
		health:    health,
	}
}

// Router builds the mux.
func (a *API) Router() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", a.healthHandler)
	mux.Handle("/api/stream", a.stream)
	mux.HandleFunc("/api/latest", a.latestHandler)
	mux.HandleFunc("/api/recent", a.recentHandler)
	mux.HandleFunc("/api/anomalies", a.anomaliesHandler)
	return mux
}

func (a *API) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := a.health.Check(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("snapshot store unavailable"))
		return
	}

	_, _ = w.Write([]byte("ok"))
}

func (a *API) latestHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	point, err := a.latest.FetchLatest(r.Context())
	if err != nil {
		a.logger.Error("failed to fetch latest point", zap.Error(err))
		http.Error(w, "fetch failed", http.StatusInternalServerError)
		return
	}
	if point == nil {
		http.Error(w, "no samples yet", http.StatusNotFound)
		return
	}

	respondJSON(w, point)
}

func (a *API) recentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	points, err := a.latest.FetchRecent(r.Context(), int64(queryLimit(r)))
	if err != nil {
		a.logger.Error("failed to fetch recent points", zap.Error(err))
		http.Error(w, "fetch failed", http.StatusInternalServerError)
		return
	}

	respondJSON(w, points)
}

func (a *API) anomaliesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	samples, err := a.anomalies.RecentAnomalies(r.Context(), queryLimit(r))
	if err != nil {
		a.logger.Error("failed to fetch recent anomalies", zap.Error(err))
		http.Error(w, "fetch failed", http.StatusInternalServerError)
		return
	}

	respondJSON(w, samples)
}

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultQueryLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultQueryLimit
	}
	return limit
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// Server owns the HTTP listener for the API.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer wires the API into an HTTP server bound to the fx lifecycle.
func NewServer(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger, api *API) *Server {
	srv := &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.ServicePort),
			Handler:           api.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info("http server listening", zap.String("addr", srv.httpServer.Addr))
				if err := srv.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down http server")
			return srv.httpServer.Shutdown(ctx)
		},
	})

	return srv
}
