package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	redisClient *redis.Client
	logger      *logrus.Logger
	startedAt   time.Time
}

// NewHealthHandler creates a new health handler. redisClient may be nil
// when caching is disabled.
func NewHealthHandler(redisClient *redis.Client, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		redisClient: redisClient,
		logger:      logger,
		startedAt:   time.Now(),
	}
}

// GetHealth reports service liveness.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"uptime":  time.Since(h.startedAt).String(),
		"service": "squad-optimizer",
	})
}

// GetReady reports readiness, including the cache dependency.
func (h *HealthHandler) GetReady(c *gin.Context) {
	checks := gin.H{}
	ready := true

	if h.redisClient != nil {
		if err := h.redisClient.Ping(c.Request.Context()).Err(); err != nil {
			h.logger.WithError(err).Warn("Redis readiness check failed")
			checks["redis"] = "unavailable"
			ready = false
		} else {
			checks["redis"] = "ok"
		}
	} else {
		checks["redis"] = "disabled"
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": ready, "checks": checks})
}
