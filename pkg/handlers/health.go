package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "SentiVibe API is running",
	})
}

// Ready reports whether the database and cache are reachable.
func (h *Handlers) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok", "cache": "ok"}
	status := http.StatusOK

	if h.Ping != nil {
		if err := h.Ping(ctx); err != nil {
			log.Errorf("Ready: database check failed: %v", err)
			checks["database"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	if !h.Cache.Enabled() {
		checks["cache"] = "disabled"
	} else if err := h.Cache.Ping(ctx); err != nil {
		log.Warnf("Ready: cache check failed: %v", err)
		checks["cache"] = "unavailable"
	}

	checks["status"] = "ready"
	if status != http.StatusOK {
		checks["status"] = "not_ready"
	}
	c.JSON(status, checks)
}
