package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldshow/bandcatalog/internal/service"
)

// HealthHandler reports process and dependency health.
type HealthHandler struct {
	pool   *pgxpool.Pool
	events service.EventPublisher
}

// NewHealthHandler creates a new HealthHandler instance.
func NewHealthHandler(pool *pgxpool.Pool, events service.EventPublisher) *HealthHandler {
	if events == nil {
		events = service.NopPublisher{}
	}
	return &HealthHandler{pool: pool, events: events}
}

// Check pings the database and reports broker connectivity. The broker is
// advisory: events are best effort, so a dead broker degrades rather than
// fails the check.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()

	status := http.StatusOK
	overall := "healthy"

	dbStatus := "up"
	if err := h.pool.Ping(ctx); err != nil {
		dbStatus = "down"
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	eventsStatus := "up"
	if !h.events.IsHealthy() {
		eventsStatus = "down"
		if overall == "healthy" {
			overall = "degraded"
		}
	}

	c.JSON(status, gin.H{
		"status": overall,
		"time":   time.Now(),
		"checks": gin.H{
			"database": dbStatus,
			"events":   eventsStatus,
		},
	})
}
