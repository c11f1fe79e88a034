// Package middleware provides HTTP middleware for the admin API.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fieldshow/bandcatalog/pkg/logger"
)

// APIKeyAuth guards admin endpoints with a static API key list passed in
// the X-API-Key header. With no keys configured, every request is rejected;
// the admin API is never open by accident.
func APIKeyAuth(keys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-API-Key")

		for _, key := range keys {
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) == 1 {
				c.Next()
				return
			}
		}

		logger.Log.Warn("rejected admin request",
			zap.String("path", c.Request.URL.Path),
			zap.String("remote", c.ClientIP()),
		)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"timestamp": time.Now(),
			"status":    http.StatusUnauthorized,
			"error":     "Unauthorized",
			"message":   "Missing or invalid API key",
			"path":      c.Request.URL.Path,
		})
	}
}

// RequestLogger logs one line per request with latency and status.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("remote", c.ClientIP()),
		)
	}
}
