// Package health provides health check endpoints for the emulator.
//
// The package implements Kubernetes-compatible health checks:
//
//   - /health/live: Liveness probe (is the process running?)
//   - /health/ready: Readiness probe (is the server ready for traffic?)
//
// The detailed check returns JSON status with component health details:
//
//	{
//	  "timestamp": "2024-01-01T00:00:00Z",
//	  "checks": {
//	    "metadata": {"status": "healthy", "message": "metadata store is operational"},
//	    "storage": {"status": "healthy", "message": "storage is operational"}
//	  },
//	  "status": "healthy"
//	}
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/piwi3910/nebulaio/internal/metadata"
	"github.com/piwi3910/nebulaio/internal/metrics"
	"github.com/piwi3910/nebulaio/internal/storage/backend"
)

// Status represents the overall health status.
type Status string

const (
	// StatusHealthy indicates all checks passed.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates some checks failed but core functionality works.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates critical failures.
	StatusUnhealthy Status = "unhealthy"
)

// Check represents a single health check result.
type Check struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthStatus represents the complete health status of the system.
type HealthStatus struct {
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
	Status    Status           `json:"status"`
}

// Checker performs health checks on the system.
type Checker struct {
	cacheExpiry  time.Time
	store        metadata.Store
	storage      backend.Backend
	cachedStatus *HealthStatus
	cacheTTL     time.Duration
	mu           sync.RWMutex
}

// NewChecker creates a new health checker.
func NewChecker(store metadata.Store, storage backend.Backend) *Checker {
	return &Checker{
		store:    store,
		storage:  storage,
		cacheTTL: 5 * time.Second,
	}
}

// Check performs all health checks and returns the overall status.
func (c *Checker) Check(ctx context.Context) *HealthStatus {
	c.mu.RLock()

	if c.cachedStatus != nil && time.Now().Before(c.cacheExpiry) {
		status := c.cachedStatus
		c.mu.RUnlock()

		return status
	}

	c.mu.RUnlock()

	checks := map[string]Check{
		"storage":  c.CheckStorage(ctx),
		"metadata": c.CheckMetadata(ctx),
	}

	status := c.determineOverallStatus(checks)

	healthStatus := &HealthStatus{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now(),
	}

	c.mu.Lock()
	c.cachedStatus = healthStatus
	c.cacheExpiry = time.Now().Add(c.cacheTTL)
	c.mu.Unlock()

	return healthStatus
}

// CheckStorage checks the storage backend health.
func (c *Checker) CheckStorage(ctx context.Context) Check {
	if c.storage == nil {
		return Check{
			Status:  StatusUnhealthy,
			Message: "storage backend not initialized",
		}
	}

	info, err := c.storage.GetStorageInfo(ctx)
	if err != nil {
		return Check{
			Status:  StatusUnhealthy,
			Message: "storage check failed: " + err.Error(),
		}
	}

	metrics.SetStorageBytesUsed(info.UsedBytes)

	if info.TotalBytes > 0 {
		usagePercent := float64(info.UsedBytes) / float64(info.TotalBytes) * 100
		if usagePercent > 95 {
			return Check{
				Status:  StatusUnhealthy,
				Message: "storage critically full (>95%)",
			}
		}

		if usagePercent > 90 {
			return Check{
				Status:  StatusDegraded,
				Message: "storage nearly full (>90%)",
			}
		}
	}

	return Check{
		Status:  StatusHealthy,
		Message: "storage is operational",
	}
}

// CheckMetadata checks the metadata store health.
func (c *Checker) CheckMetadata(ctx context.Context) Check {
	if c.store == nil {
		return Check{
			Status:  StatusUnhealthy,
			Message: "metadata store not initialized",
		}
	}

	buckets, err := c.store.ListBuckets(ctx)
	if err != nil {
		return Check{
			Status:  StatusUnhealthy,
			Message: "metadata store check failed: " + err.Error(),
		}
	}

	metrics.SetBucketsTotal(len(buckets))

	return Check{
		Status:  StatusHealthy,
		Message: "metadata store is operational",
	}
}

// IsReady checks if the service is ready to accept requests.
func (c *Checker) IsReady(ctx context.Context) bool {
	return c.store != nil && c.storage != nil
}

// IsLive checks if the service is alive.
func (c *Checker) IsLive(ctx context.Context) bool {
	return true
}

// determineOverallStatus determines the overall health status based on individual checks.
func (c *Checker) determineOverallStatus(checks map[string]Check) Status {
	hasUnhealthy := false
	hasDegraded := false

	for _, check := range checks {
		switch check.Status {
		case StatusUnhealthy:
			hasUnhealthy = true
		case StatusDegraded:
			hasDegraded = true
		}
	}

	if hasUnhealthy {
		return StatusUnhealthy
	}

	if hasDegraded {
		return StatusDegraded
	}

	return StatusHealthy
}

// Handler creates HTTP handlers for health endpoints.
type Handler struct {
	checker *Checker
}

// NewHandler creates a new health handler.
func NewHandler(checker *Checker) *Handler {
	return &Handler{checker: checker}
}

// HealthHandler handles basic health check requests (for load balancers).
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := h.checker.Check(ctx)

	w.Header().Set("Content-Type", "application/json")

	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(map[string]string{
		"status": string(status.Status),
	})
}

// LivenessHandler handles Kubernetes liveness probe requests.
func (h *Handler) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.checker.IsLive(ctx) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ok"}`))
	}
}

// ReadinessHandler handles Kubernetes readiness probe requests.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.checker.IsReady(ctx) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
	}
}

// DetailedHandler handles detailed health check requests.
func (h *Handler) DetailedHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := h.checker.Check(ctx)

	w.Header().Set("Content-Type", "application/json")

	switch status.Status {
	case StatusUnhealthy:
		w.WriteHeader(http.StatusServiceUnavailable)
	case StatusDegraded:
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(status)
}
