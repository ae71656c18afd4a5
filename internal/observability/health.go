package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// ComponentStatus represents the health status of a component
type ComponentStatus string

const (
	StatusHealthy   ComponentStatus = "healthy"
	StatusUnhealthy ComponentStatus = "unhealthy"
	StatusUnknown   ComponentStatus = "unknown"
)

// ComponentHealth represents the health of a single component
type ComponentHealth struct {
	Status    ComponentStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	LastCheck time.Time       `json:"last_check"`
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status     ComponentStatus            `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  time.Time                  `json:"timestamp"`
}

// HealthCheckFunc checks the health of a component
type HealthCheckFunc func(ctx context.Context) error

// HealthChecker tracks the health of named components (session store, log
// sink, ...). The overall status is healthy only when every component is.
type HealthChecker struct {
	mu         sync.RWMutex
	components map[string]ComponentHealth
	logger     *Logger
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(logger *Logger) *HealthChecker {
	return &HealthChecker{
		components: make(map[string]ComponentHealth),
		logger:     logger,
	}
}

// RegisterComponent registers a component in the unknown state
func (h *HealthChecker) RegisterComponent(name string) {
	h.UpdateComponentHealth(name, StatusUnknown, "")
}

// UpdateComponentHealth updates the health status of a component
func (h *HealthChecker) UpdateComponentHealth(name string, status ComponentStatus, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		LastCheck: time.Now(),
	}
}

// GetHealth returns a snapshot of the current health status
func (h *HealthChecker) GetHealth() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := StatusHealthy
	components := make(map[string]ComponentHealth, len(h.components))
	for name, health := range h.components {
		components[name] = health
		if health.Status != StatusHealthy {
			status = StatusUnhealthy
		}
	}

	return HealthStatus{
		Status:     status,
		Components: components,
		Timestamp:  time.Now(),
	}
}

// CheckComponent runs check and records the outcome for name
func (h *HealthChecker) CheckComponent(ctx context.Context, name string, check HealthCheckFunc) {
	if err := check(ctx); err != nil {
		h.UpdateComponentHealth(name, StatusUnhealthy, err.Error())
		h.logger.Warn("component health check failed",
			"component", name,
			"error", err.Error())
		return
	}
	h.UpdateComponentHealth(name, StatusHealthy, "")
}

// StartPeriodicChecks runs checks immediately and then every interval until
// ctx is cancelled
func (h *HealthChecker) StartPeriodicChecks(ctx context.Context, interval time.Duration, checks map[string]HealthCheckFunc) {
	run := func() {
		for name, check := range checks {
			h.CheckComponent(ctx, name, check)
		}
	}

	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// HealthHandler serves the full health status as JSON
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := h.GetHealth()
		h.writeJSON(w, statusCodeFor(health.Status), health)
	}
}

// ReadyHandler serves {"status":"ready"} when every component is healthy
func (h *HealthChecker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := h.GetHealth()
		ready := "ready"
		if health.Status != StatusHealthy {
			ready = "not_ready"
		}
		h.writeJSON(w, statusCodeFor(health.Status), map[string]string{"status": ready})
	}
}

func statusCodeFor(status ComponentStatus) int {
	if status == StatusHealthy {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

func (h *HealthChecker) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("failed to encode health response",
			"error", err.Error())
	}
}
