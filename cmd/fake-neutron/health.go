package main

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/AltairaLabs/netgateway-provider/internal/fakeneutron"
)

// statsSource is the part of the fake service the health endpoint reports.
type statsSource interface {
	Stats() fakeneutron.Stats
}

// healthReport is the /health response body.
type healthReport struct {
	Status string `json:"status"`
	fakeneutron.Stats
}

// healthHandler serves /health with the service's record counts. It
// answers 503 once the server starts draining.
type healthHandler struct {
	svc      statsSource
	draining atomic.Bool
}

func newHealthHandler(svc statsSource) *healthHandler {
	return &healthHandler{svc: svc}
}

// drain marks the service as shutting down.
func (h *healthHandler) drain() {
	h.draining.Store(true)
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	report := healthReport{Status: "ok", Stats: h.svc.Stats()}
	code := http.StatusOK
	if h.draining.Load() {
		report.Status = "draining"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}
