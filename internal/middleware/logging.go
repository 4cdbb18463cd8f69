package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs every request with method, path, status, user ID (if
// authenticated), and duration.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Milliseconds()
		status := c.Writer.Status()
		userID := GetUserID(c) // empty if pre-auth

		if status >= 500 {
			slog.Error("Request failed",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"status", status,
				"user_id", userID,
				"duration_ms", duration,
				"errors", c.Errors.String(),
			)
		} else if status >= 400 {
			slog.Warn("Request rejected",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"status", status,
				"user_id", userID,
				"duration_ms", duration,
			)
		} else {
			slog.Info("Request ok",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"status", status,
				"user_id", userID,
				"duration_ms", duration,
			)
		}
	}
}
