package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// Logging returns middleware that logs every request through logger.
// Requests to skipPaths (health checks) are not logged.
func Logging(logger *slog.Logger, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if skip[path] {
			return
		}

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration", time.Since(start),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			attrs = append(attrs, "query", q)
		}

		switch {
		case status >= 500:
			logger.Error("HTTP request", attrs...)
		case status >= 400:
			logger.Warn("HTTP request", attrs...)
		default:
			logger.Info("HTTP request", attrs...)
		}
	}
}
