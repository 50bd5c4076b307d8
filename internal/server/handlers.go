package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/khronos/khronos/internal/discipline"
	"github.com/khronos/khronos/pkg/logger"
)

// Snapshotter is satisfied by *khronos.Handle.
type Snapshotter interface {
	Snapshot() discipline.Status
}

// Handlers holds the dependencies shared by the status server's routes.
type Handlers struct {
	registry *prometheus.Registry
	snap     Snapshotter
}

// NewHandlers creates a Handlers instance.
func NewHandlers(registry *prometheus.Registry, snap Snapshotter) *Handlers {
	return &Handlers{registry: registry, snap: snap}
}

// MetricsHandler serves Prometheus exposition format.
func (h *Handlers) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	handler := promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{
		ErrorLog:      &loggerAdapter{},
		ErrorHandling: promhttp.ContinueOnError,
	})
	handler.ServeHTTP(w, r)
}

// statusResponse mirrors discipline.Status for non-Prometheus observers,
// rendering durations as seconds so the JSON is self-contained.
type statusResponse struct {
	UTCNow   string  `json:"utc_now"`
	Offset   float64 `json:"offset_seconds"`
	DriftPPM float64 `json:"drift_ppm"`
	NISEMA   float64 `json:"nis_ema"`
	QScale   float64 `json:"q_scale"`

	LastServer  string  `json:"last_server"`
	LastRTT     float64 `json:"last_rtt_seconds"`
	LastSyncAgo float64 `json:"last_sync_ago_seconds"`

	EpochCounter uint64 `json:"epoch_counter"`

	SampleSuccessTotal  uint64 `json:"sample_success_total"`
	SampleFailureTotal  uint64 `json:"sample_failure_total"`
	SampleRejectedTotal uint64 `json:"sample_rejected_total"`
}

// StatusHandler returns the current Discipline Status snapshot as JSON.
func (h *Handlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	s := h.snap.Snapshot()
	resp := statusResponse{
		UTCNow:              s.UTCNow.Format("2006-01-02T15:04:05.000000000Z07:00"),
		Offset:              s.Offset,
		DriftPPM:            s.DriftPPM,
		NISEMA:              s.NISEMA,
		QScale:              s.QScale,
		LastServer:          s.LastServer,
		LastRTT:             s.LastRTT.Seconds(),
		LastSyncAgo:         s.LastSyncAgo.Seconds(),
		EpochCounter:        s.EpochCounter,
		SampleSuccessTotal:  s.SampleSuccessTotal,
		SampleFailureTotal:  s.SampleFailureTotal,
		SampleRejectedTotal: s.SampleRejectedTotal,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("server", "failed to encode status response", err)
	}
}

// HealthHandler reports process liveness. It deliberately does not inspect
// the Discipline Status; a stalled discipline loop is a staleness problem
// visible in last_sync_ago_seconds, not a process-health problem.
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"khronosd"}`))
}

// IndexHandler serves a minimal landing page linking the other endpoints.
func (h *Handlers) IndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)

	html := `<!DOCTYPE html>
<html>
<head>
    <title>khronosd</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        h1 { color: #333; }
        ul { list-style-type: none; padding: 0; }
        li { margin: 10px 0; }
        a { color: #0066cc; text-decoration: none; }
        a:hover { text-decoration: underline; }
    </style>
</head>
<body>
    <h1>khronosd</h1>
    <ul>
        <li><a href="/metrics">/metrics</a> - Prometheus metrics</li>
        <li><a href="/status">/status</a> - discipline loop status (JSON)</li>
        <li><a href="/healthz">/healthz</a> - health check</li>
    </ul>
</body>
</html>`

	w.Write([]byte(html))
}

// loggerAdapter adapts pkg/logger to promhttp's Println-based logger
// interface.
type loggerAdapter struct{}

func (l *loggerAdapter) Println(v ...interface{}) {
	msg := ""
	for i, val := range v {
		if i > 0 {
			msg += " "
		}
		if s, ok := val.(string); ok {
			msg += s
		} else if err, ok := val.(error); ok {
			msg += err.Error()
		}
	}
	logger.Error("promhttp", msg, nil)
}
