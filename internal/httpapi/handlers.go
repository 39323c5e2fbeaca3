package httpapi

import (
	"errors"
	"net/http"
	"time"

	"voice-receptionist/internal/agents"
	"voice-receptionist/internal/auth"
	"voice-receptionist/internal/calls"
	"voice-receptionist/internal/numbers"
	"voice-receptionist/internal/reporting"
	"voice-receptionist/internal/tenants"
	"voice-receptionist/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers groups the tenant-facing HTTP handlers. They parse input, call a
// service and write JSON; no business rules live here.
type Handlers struct {
	Auth      *auth.Manager
	Tenants   *tenants.Service
	Agents    *agents.Service
	Numbers   *numbers.Service
	Calls     *calls.Service
	Reporting *reporting.Service

	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// identity returns the caller set by the auth middleware, aborting with 401
// when it is missing.
func identity(c *gin.Context) (auth.Identity, bool) {
	id, err := auth.IdentityFrom(c.Request.Context())
	if err != nil || id.TenantID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return auth.Identity{}, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return false
	}
	return true
}

// statusFor maps service errors to HTTP statuses. Anything unrecognised is
// a 500 and its message is not shown to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, agents.ErrInvalidArgument),
		errors.Is(err, numbers.ErrInvalidArgument),
		errors.Is(err, tenants.ErrInvalidArgument),
		errors.Is(err, calls.ErrInvalidArgument),
		errors.Is(err, reporting.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, numbers.ErrCrossTenant):
		return http.StatusUnprocessableEntity
	case errors.Is(err, agents.ErrNotFound),
		errors.Is(err, numbers.ErrNotFound),
		errors.Is(err, tenants.ErrNotFound),
		errors.Is(err, calls.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, numbers.ErrConflict),
		errors.Is(err, tenants.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, tenants.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, tenants.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, numbers.ErrProviderRelease):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", zap.Error(err))
		_ = c.Error(err)
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
