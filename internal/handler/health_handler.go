package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker is a dependency probed by the readiness check
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheckFunc adapts a ping function to HealthChecker
type HealthCheckFunc func(ctx context.Context) error

// HealthCheck calls f(ctx)
func (f HealthCheckFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

type component struct {
	name    string
	checker HealthChecker
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	version    string
	components []component
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

// AddComponent registers a dependency for the readiness check.
// A nil checker is reported as "not configured".
func (h *HealthHandler) AddComponent(name string, checker HealthChecker) *HealthHandler {
	h.components = append(h.components, component{name: name, checker: checker})
	return h
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ReadyResponse represents readiness check response
type ReadyResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// Health returns a simple health check (liveness probe)
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready returns a readiness check (readiness probe)
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	components := make(map[string]string, len(h.components))
	allHealthy := true

	for _, comp := range h.components {
		if comp.checker == nil {
			components[comp.name] = "not configured"
			continue
		}
		if err := comp.checker.HealthCheck(ctx); err != nil {
			components[comp.name] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			components[comp.name] = "healthy"
		}
	}

	response := ReadyResponse{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	}

	if allHealthy {
		response.Status = "ready"
		c.JSON(http.StatusOK, response)
	} else {
		response.Status = "not ready"
		c.JSON(http.StatusServiceUnavailable, response)
	}
}
