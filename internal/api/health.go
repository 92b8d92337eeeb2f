package api

import (
	"context"
	"net/http"
	"time"

	"whatsapp-core/internal/conversation"
	"whatsapp-core/internal/metrics"
	"whatsapp-core/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	Store   *conversation.Store
	Limiter *ratelimit.Limiter
	Metrics *metrics.Collector
}

func NewHealthHandler(store *conversation.Store, limiter *ratelimit.Limiter, collector *metrics.Collector) *HealthHandler {
	return &HealthHandler{Store: store, Limiter: limiter, Metrics: collector}
}

// Liveness: the process is up.
func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

// Readiness: the persistence store and counter store answer within a short
// timeout.
func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
	defer cancel()

	checks := gin.H{"database": "ok", "counter_store": "ok"}
	ready := true

	if err := h.Store.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		ready = false
	}
	if err := h.Limiter.Ping(ctx); err != nil {
		checks["counter_store"] = err.Error()
		ready = false
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": ready, "checks": checks})
}

// Metrics returns current counters and derived rates.
func (h *HealthHandler) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.Metrics.GetMetrics())
}
