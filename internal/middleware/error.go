package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Nayana519/PulseGuard/pkg/logger"
)

// ErrorResponse is written by middleware that aborts before a handler runs.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// ErrorHandler logs errors attached to the context. If nothing was written
// yet, the last one is turned into a response.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		traceID := RequestIDFrom(c)
		for _, e := range c.Errors {
			log.Debug("Request error",
				"error", e.Error(),
				"trace_id", traceID,
				"path", c.Request.URL.Path,
				"method", c.Request.Method)
		}

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		status := http.StatusInternalServerError
		message := "Internal server error"
		if err, ok := lastErr.Err.(interface{ StatusCode() int }); ok {
			status = err.StatusCode()
			if status < http.StatusInternalServerError {
				message = lastErr.Error()
			}
		}

		c.JSON(status, ErrorResponse{
			Code:    status,
			Message: message,
			TraceID: traceID,
		})
	}
}
