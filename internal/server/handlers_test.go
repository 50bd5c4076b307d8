package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khronos/khronos/internal/discipline"
)

type fakeSnapshotter struct {
	status discipline.Status
}

func (f fakeSnapshotter) Snapshot() discipline.Status { return f.status }

func TestMetricsHandlerServesRegisteredMetric(t *testing.T) {
	registry := prometheus.NewRegistry()
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_metric", Help: "test"})
	registry.MustRegister(gauge)
	gauge.Set(42)

	h := NewHandlers(registry, fakeSnapshotter{})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	h.MetricsHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), "test_metric")
}

func TestStatusHandlerReturnsSnapshotAsJSON(t *testing.T) {
	status := discipline.Status{
		Offset:       0.01,
		DriftPPM:     0.5,
		EpochCounter: 2,
		LastServer:   "a.example",
		UTCNow:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	h := NewHandlers(prometheus.NewRegistry(), fakeSnapshotter{status: status})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	h.StatusHandler(w, req)

	require.Equal(t, http.StatusOK, w.Result().StatusCode)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.InDelta(t, 0.01, resp.Offset, 1e-9)
	assert.Equal(t, uint64(2), resp.EpochCounter)
	assert.Equal(t, "a.example", resp.LastServer)
}

func TestHealthHandlerReportsHealthy(t *testing.T) {
	h := NewHandlers(prometheus.NewRegistry(), fakeSnapshotter{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	h.HealthHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), `"healthy"`)
}

func TestIndexHandlerServesLandingPageAtRoot(t *testing.T) {
	h := NewHandlers(prometheus.NewRegistry(), fakeSnapshotter{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	h.IndexHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), "khronosd")
}

func TestIndexHandlerNotFoundForOtherPaths(t *testing.T) {
	h := NewHandlers(prometheus.NewRegistry(), fakeSnapshotter{})
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()

	h.IndexHandler(w, req)

	assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
}
