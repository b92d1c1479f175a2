// admin.go - Optional HTTP surface for health and metrics.
//
// The transfer protocol itself is raw TCP; this read-only HTTP listener
// exists for operators and probes and is disabled unless an admin address
// is configured.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"dept-file-transfer/internal/identity"
)

// HealthStatus represents the overall health of the service.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus represents the health of one component.
type ComponentStatus string

const (
	ComponentStatusUp   ComponentStatus = "up"
	ComponentStatusDown ComponentStatus = "down"
)

// Health is the /health response body.
type Health struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth describes one component's state.
type ComponentHealth struct {
	Status  ComponentStatus `json:"status"`
	Message string          `json:"message,omitempty"`
}

// pinger is implemented by identity stores backed by a remote database.
type pinger interface {
	Ping(ctx context.Context) error
}

// AdminHandler returns the admin routes: /health, /ready and /metrics.
func (s *Server) AdminHandler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.checkHealth(r.Context())

	statusCode := http.StatusOK
	if health.Status == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(health)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	for _, dept := range identity.Departments {
		root, _ := s.disk.Root(dept)
		if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
			http.Error(w, `{"status":"not_ready","message":"department root unavailable"}`, http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(s.metrics.Snapshot())
}

func (s *Server) checkHealth(ctx context.Context) Health {
	health := Health{
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}

	for _, dept := range identity.Departments {
		health.Components["root_"+string(dept)] = s.checkRoot(dept)
	}
	health.Components["identity_store"] = s.checkIdentityStore(ctx)

	health.Status = HealthStatusHealthy
	for _, c := range health.Components {
		if c.Status == ComponentStatusDown {
			health.Status = HealthStatusUnhealthy
			break
		}
	}
	return health
}

func (s *Server) checkRoot(dept identity.Department) ComponentHealth {
	root, _ := s.disk.Root(dept)
	fi, err := os.Stat(root)
	if err != nil {
		return ComponentHealth{Status: ComponentStatusDown, Message: err.Error()}
	}
	if !fi.IsDir() {
		return ComponentHealth{Status: ComponentStatusDown, Message: "not a directory"}
	}
	return ComponentHealth{Status: ComponentStatusUp}
}

func (s *Server) checkIdentityStore(ctx context.Context) ComponentHealth {
	p, ok := s.cfg.Store.(pinger)
	if !ok {
		// Local stores have no liveness to probe.
		return ComponentHealth{Status: ComponentStatusUp, Message: "local store"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return ComponentHealth{Status: ComponentStatusDown, Message: err.Error()}
	}
	return ComponentHealth{Status: ComponentStatusUp}
}
