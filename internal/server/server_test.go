package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vostrikal/stream-anomaly-worker/internal/db"
	"github.com/vostrikal/stream-anomaly-worker/internal/metrics"
	"github.com/vostrikal/stream-anomaly-worker/internal/model"
)

type fakeLatest struct {
	point     *model.Point
	points    []model.Point
	lastLimit int64
	err       error
}

func (f *fakeLatest) FetchLatest(_ context.Context) (*model.Point, error) {
	return f.point, f.err
}

func (f *fakeLatest) FetchRecent(_ context.Context, limit int64) ([]model.Point, error) {
	f.lastLimit = limit
	return f.points, f.err
}

type fakeAnomalies struct {
	samples   []db.StreamSample
	lastLimit int
	err       error
}

func (f *fakeAnomalies) RecentAnomalies(_ context.Context, limit int) ([]db.StreamSample, error) {
	f.lastLimit = limit
	return f.samples, f.err
}

type fakeHealth struct {
	err error
}

func (f *fakeHealth) Check(_ context.Context) error {
	return f.err
}

func newTestAPI(latest *fakeLatest, anomalies *fakeAnomalies, health *fakeHealth) (*API, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	stream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return NewAPI(zap.NewNop(), reg, stream, latest, anomalies, health), reg
}

func TestHealthz(t *testing.T) {
	api, _ := newTestAPI(&fakeLatest{}, &fakeAnomalies{}, &fakeHealth{})
	router := api.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("expected body ok, got %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST, got %d", rec.Code)
	}
}

func TestHealthz_StoreDown(t *testing.T) {
	api, _ := newTestAPI(&fakeLatest{}, &fakeAnomalies{}, &fakeHealth{err: errors.New("ping failed")})

	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestLatest_NoSamplesYet(t *testing.T) {
	api, _ := newTestAPI(&fakeLatest{}, &fakeAnomalies{}, &fakeHealth{})

	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/latest", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 before first sample, got %d", rec.Code)
	}
}

func TestLatest_ReturnsPoint(t *testing.T) {
	point := &model.Point{
		RunID:      uuid.New(),
		Seq:        17,
		Value:      3.25,
		Anomaly:    true,
		WindowSize: 50,
		ObservedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	api, _ := newTestAPI(&fakeLatest{point: point}, &fakeAnomalies{}, &fakeHealth{})

	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/latest", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got model.Point
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Seq != point.Seq || got.Value != point.Value || !got.Anomaly {
		t.Errorf("unexpected point: %+v", got)
	}
}

func TestLatest_FetchError(t *testing.T) {
	api, _ := newTestAPI(&fakeLatest{err: errors.New("redis down")}, &fakeAnomalies{}, &fakeHealth{})

	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/latest", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestRecent_LimitParsing(t *testing.T) {
	latest := &fakeLatest{}
	api, _ := newTestAPI(latest, &fakeAnomalies{}, &fakeHealth{})
	router := api.Router()

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/recent", nil))
	if latest.lastLimit != 50 {
		t.Errorf("expected default limit 50, got %d", latest.lastLimit)
	}

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/recent?limit=7", nil))
	if latest.lastLimit != 7 {
		t.Errorf("expected limit 7, got %d", latest.lastLimit)
	}

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/recent?limit=junk", nil))
	if latest.lastLimit != 50 {
		t.Errorf("expected fallback limit 50 for junk input, got %d", latest.lastLimit)
	}
}

func TestAnomalies_ReturnsRows(t *testing.T) {
	rows := []db.StreamSample{
		{ID: uuid.New(), RunID: uuid.New(), Seq: 9, Value: 12.5, IsAnomaly: true},
		{ID: uuid.New(), RunID: uuid.New(), Seq: 4, Value: -8.75, IsAnomaly: true},
	}
	anomalies := &fakeAnomalies{samples: rows}
	api, _ := newTestAPI(&fakeLatest{}, anomalies, &fakeHealth{})

	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/anomalies?limit=10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if anomalies.lastLimit != 10 {
		t.Errorf("expected limit 10 passed through, got %d", anomalies.lastLimit)
	}

	var got []db.StreamSample
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(got) != 2 || got[0].Seq != 9 {
		t.Errorf("unexpected rows: %+v", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	latest := &fakeLatest{}
	api, reg := newTestAPI(latest, &fakeAnomalies{}, &fakeHealth{})

	m := metrics.New(reg)
	m.SamplesTotal.Inc()

	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "stream_samples_total") {
		t.Error("expected stream_samples_total in metrics exposition")
	}
}
