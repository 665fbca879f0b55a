package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wonny/trendcast/internal/api/response"
	"github.com/wonny/trendcast/internal/infra/database/postgres"
)

// HealthChecker reports database health and the price table's row count
type HealthChecker interface {
	Health(ctx context.Context, table string) *postgres.HealthStatus
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	checker   HealthChecker
	table     string
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checker HealthChecker, table, version string) *HealthHandler {
	return &HealthHandler{
		checker:   checker,
		table:     table,
		startTime: time.Now(),
		version:   version,
	}
}

// SimpleHealthResponse represents a liveness response
type SimpleHealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse represents a readiness check response
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

// DetailedHealthResponse represents detailed health information
type DetailedHealthResponse struct {
	Status        string                 `json:"status"`
	Version       string                 `json:"version"`
	UptimeSeconds int64                  `json:"uptime_seconds"`
	Database      *postgres.HealthStatus `json:"database"`
}

// Health returns simple liveness check
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, SimpleHealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// Ready reports whether predictions can be served: the database answers and the table exists.
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	db := h.checker.Health(c.Request.Context(), h.table)

	resp := ReadyResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Checks:    map[string]string{"database": "ok", "price_table": "ok"},
	}
	status := http.StatusOK

	switch db.Status {
	case "healthy":
	case "degraded":
		resp.Checks["price_table"] = "missing"
		resp.Message = "Price table not loaded yet"
	default:
		resp.Checks["database"] = "error"
		resp.Checks["price_table"] = "unknown"
		resp.Message = "Database connection failed"
	}
	if db.Status != "healthy" {
		resp.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, resp)
}

// Detailed returns database pool statistics and the table row count
// GET /api/health/detailed
func (h *HealthHandler) Detailed(c *gin.Context) {
	db := h.checker.Health(c.Request.Context(), h.table)

	response.Success(c, DetailedHealthResponse{
		Status:        db.Status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Database:      db,
	})
}
