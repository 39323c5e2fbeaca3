package httpapi

import (
	"voice-receptionist/internal/audit"

	"github.com/gin-gonic/gin"
)

// ClientIP records the caller's address in the request context for audit
// events.
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(audit.WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}
