package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/guubot/guubot/internal/database"
	"github.com/guubot/guubot/internal/metrics"
)

// HealthStatus represents the overall health status response
type HealthStatus struct {
	Status string                 `json:"status"`
	DB     DependencyHealthStatus `json:"db"`
	Redis  DependencyHealthStatus `json:"redis"`
}

// DependencyHealthStatus represents the health status of a dependency
type DependencyHealthStatus struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Message   string `json:"message,omitempty"`
}

// HealthHandler handles health check requests
type HealthHandler struct {
	dbManager   *database.DatabaseManager
	redisClient *redis.Client
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(dbManager *database.DatabaseManager, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		dbManager:   dbManager,
		redisClient: redisClient,
	}
}

// HealthCheck handles the health check endpoint at /healthz
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	var healthStatus HealthStatus

	healthStatus.DB = h.checkDBHealth()
	healthStatus.Redis = h.checkRedisHealth()

	reportGauge("db", healthStatus.DB)
	reportGauge("redis", healthStatus.Redis)

	if healthStatus.DB.Status == "ok" && healthStatus.Redis.Status == "ok" {
		healthStatus.Status = "ok"
	} else {
		healthStatus.Status = "degraded"
	}

	httpStatus := http.StatusOK
	if healthStatus.DB.Status != "ok" {
		healthStatus.Status = "error"
		httpStatus = http.StatusServiceUnavailable
	}

	c.Set("Cache-Control", "no-store")

	return c.Status(httpStatus).JSON(healthStatus)
}

func reportGauge(dependency string, status DependencyHealthStatus) {
	value := 0.0
	if status.Status == "ok" {
		value = 1.0
	}
	metrics.HealthStatus.WithLabelValues(dependency).Set(value)
}

// checkDBHealth performs a database health check
func (h *HealthHandler) checkDBHealth() DependencyHealthStatus {
	start := time.Now()

	db := h.dbManager.GetGormDB()
	var result int
	err := db.Raw("SELECT 1").Scan(&result).Error

	latency := time.Since(start).Milliseconds()

	if err != nil {
		return DependencyHealthStatus{
			Status:    "error",
			LatencyMs: latency,
			Message:   err.Error(),
		}
	}

	return DependencyHealthStatus{
		Status:    "ok",
		LatencyMs: latency,
	}
}

// checkRedisHealth pings the metadata cache. The cache is optional, so a
// missing client reports ok.
func (h *HealthHandler) checkRedisHealth() DependencyHealthStatus {
	if h.redisClient == nil {
		return DependencyHealthStatus{
			Status:  "ok",
			Message: "cache disabled",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.redisClient.Ping(ctx).Err()
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return DependencyHealthStatus{
			Status:    "degraded",
			LatencyMs: latency,
			Message:   err.Error(),
		}
	}

	return DependencyHealthStatus{
		Status:    "ok",
		LatencyMs: latency,
	}
}
