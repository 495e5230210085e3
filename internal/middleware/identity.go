package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderXUserID = "X-User-ID"
	ContextUserID = "user_id"
)

// Identity reads the caller's user id from X-User-ID. Authentication happens
// upstream; this only rejects requests that arrive without a usable id.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.GetHeader(HeaderXUserID))
		if err != nil || id == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "missing or invalid " + HeaderXUserID + " header",
				TraceID: RequestIDFrom(c),
			})
			return
		}
		c.Set(ContextUserID, id)
		c.Next()
	}
}

// UserID returns the id set by Identity.
func UserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
