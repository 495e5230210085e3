package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Nayana519/PulseGuard/pkg/logger"
)

// Logger logs one line per request. Bodies are never logged, they carry health data.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		reqLog := log.WithFields(map[string]interface{}{
			"request_id": RequestIDFrom(c),
			"client_ip":  c.ClientIP(),
			"method":     c.Request.Method,
			"path":       path,
		})

		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"status", status,
			"latency", time.Since(start).String(),
			"user_agent", c.Request.UserAgent(),
		}

		switch {
		case status >= 500:
			var err error
			if last := c.Errors.Last(); last != nil {
				err = last.Err
			}
			reqLog.Error(err, "Server error", fields...)
		case status >= 400:
			reqLog.Warn("Client error", fields...)
		default:
			reqLog.Info("Request processed", fields...)
		}
	}
}
