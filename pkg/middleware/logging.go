package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// hashIPForLog is a short irreversible prefix used to correlate requests
// without logging addresses.
func hashIPForLog(ip string) string {
	h := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(h[:])[:12]
}

// RequestLogger logs one entry per request. Routes are logged by pattern so
// video and comparison IDs stay out of the logs.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		entry := log.WithFields(log.Fields{
			"method":      c.Request.Method,
			"route":       route,
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
			"ip_hash":     hashIPForLog(c.ClientIP()),
			"bytes_sent":  c.Writer.Size(),
		})

		switch {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}
