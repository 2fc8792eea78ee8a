package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// RouteCounter reports how many routes the active forwarder holds.
type RouteCounter interface {
	RouteCount() int
}

// RouteCounterFunc adapts a function to RouteCounter.
type RouteCounterFunc func() int

// RouteCount calls f().
func (f RouteCounterFunc) RouteCount() int { return f() }

// Handler provides HTTP health check endpoints.
type Handler struct {
	routes        RouteCounter
	version       string
	livenessPath  string
	readinessPath string
	draining      atomic.Bool
}

// NewHandler creates a health check handler serving liveness and readiness
// on the given paths.
func NewHandler(routes RouteCounter, version, livenessPath, readinessPath string) *Handler {
	return &Handler{
		routes:        routes,
		version:       version,
		livenessPath:  livenessPath,
		readinessPath: readinessPath,
	}
}

// SetDraining marks the gateway as shutting down. Readiness fails while draining.
func (h *Handler) SetDraining(draining bool) {
	h.draining.Store(draining)
}

// Ready reports whether the gateway can forward traffic.
func (h *Handler) Ready() bool {
	return !h.draining.Load() && h.routes.RouteCount() > 0
}

// ServeHTTP routes to the appropriate health endpoint.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case h.livenessPath:
		h.handleLiveness(w, r)
	case h.readinessPath:
		h.handleReadiness(w, r)
	default:
		http.NotFound(w, r)
	}
}

// LivenessResponse is the JSON response for the liveness endpoint.
type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadinessResponse is the JSON response for the readiness endpoint.
type ReadinessResponse struct {
	Status string `json:"status"`
	Routes int    `json:"routes"`
}

func (h *Handler) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(LivenessResponse{
		Status:  "ok",
		Version: h.version,
	})
}

func (h *Handler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	resp := ReadinessResponse{Routes: h.routes.RouteCount()}

	w.Header().Set("Content-Type", "application/json")

	switch {
	case h.draining.Load():
		resp.Status = "draining"
		w.WriteHeader(http.StatusServiceUnavailable)
	case resp.Routes == 0:
		resp.Status = "not_ready"
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		resp.Status = "ready"
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(resp)
}
