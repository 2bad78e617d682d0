package ws_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vostrikal/stream-anomaly-worker/internal/model"
	"github.com/vostrikal/stream-anomaly-worker/internal/ws"
)

func newTestHub() *ws.Hub {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_ws_clients"})
	return ws.NewHub(zap.NewNop(), gauge)
}

func TestUpdate_LiveWithoutClients(t *testing.T) {
	hub := newTestHub()

	// No subscriber is not the same as a dead sink; the stream must go on.
	if !hub.Update(context.Background(), model.Point{Seq: 1, Value: 0.5}) {
		t.Error("Expected hub to stay live with zero clients")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("Expected zero clients, got %d", hub.ClientCount())
	}
}

func TestUpdate_DeadAfterClose(t *testing.T) {
	hub := newTestHub()

	hub.Close()

	if hub.Update(context.Background(), model.Point{Seq: 1}) {
		t.Error("Expected hub to report dead after Close")
	}
	if hub.Update(context.Background(), model.Point{Seq: 2}) {
		t.Error("Expected hub to stay dead on subsequent updates")
	}
}

func TestClose_Idempotent(t *testing.T) {
	hub := newTestHub()

	hub.Close()
	hub.Close()

	if hub.ClientCount() != 0 {
		t.Errorf("Expected zero clients after close, got %d", hub.ClientCount())
	}
}
