package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vostrikal/stream-anomaly-worker/internal/model"
)

// Metrics holds the Prometheus instruments for the stream pipeline. All
// collectors register against the injected registry, so tests can build an
// isolated set.
type Metrics struct {
	SamplesTotal    prometheus.Counter
	AnomaliesTotal  prometheus.Counter
	LastValue       prometheus.Gauge
	AnomalyFlag     prometheus.Gauge
	WindowMean      prometheus.Gauge
	WindowStdDev    prometheus.Gauge
	WindowSize      prometheus.Gauge
	WSClients       prometheus.Gauge
	PublishErrors   prometheus.Counter
	SnapshotErrors  prometheus.Counter
	ArchiveErrors   prometheus.Counter
	TickSeconds     prometheus.Histogram
}

// New builds the instrument set on the given registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SamplesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "stream_samples_total",
			Help: "Samples produced and classified since process start.",
		}),
		AnomaliesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "stream_anomalies_total",
			Help: "Samples flagged as anomalous since process start.",
		}),
		LastValue: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stream_last_value",
			Help: "Most recent sample value.",
		}),
		AnomalyFlag: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stream_last_anomaly",
			Help: "1 when the most recent sample was flagged, else 0.",
		}),
		WindowMean: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stream_window_mean",
			Help: "Rolling window mean after the most recent insertion.",
		}),
		WindowStdDev: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stream_window_stddev",
			Help: "Rolling window standard deviation after the most recent insertion.",
		}),
		WindowSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stream_window_size",
			Help: "Number of samples currently in the rolling window.",
		}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stream_ws_clients",
			Help: "Connected live-feed websocket clients.",
		}),
		PublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "stream_publish_errors_total",
			Help: "Failed event publishes.",
		}),
		SnapshotErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "stream_snapshot_errors_total",
			Help: "Failed snapshot store writes.",
		}),
		ArchiveErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "stream_archive_errors_total",
			Help: "Failed sample archive inserts.",
		}),
		TickSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stream_tick_seconds",
			Help:    "Wall time of one generate-classify-fanout tick.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObservePoint records one classified sample.
func (m *Metrics) ObservePoint(p model.Point) {
	m.SamplesTotal.Inc()
	m.LastValue.Set(p.Value)
	m.WindowMean.Set(p.WindowMean)
	m.WindowStdDev.Set(p.WindowStdDev)
	m.WindowSize.Set(float64(p.WindowSize))
	if p.Anomaly {
		m.AnomaliesTotal.Inc()
		m.AnomalyFlag.Set(1)
	} else {
		m.AnomalyFlag.Set(0)
	}
}
