package httpapi

import (
	"net/http"
	"strconv"

	"voice-receptionist/internal/calls"

	"github.com/gin-gonic/gin"
)

func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": key + " must be an integer"})
		return 0, false
	}
	return n, true
}

func (h Handlers) ListCalls(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return
	}
	page, err := h.Calls.List(c.Request.Context(), id.TenantID, calls.ListFilter{
		Limit:   limit,
		Offset:  offset,
		AgentID: c.Query("agent_id"),
		Status:  calls.Status(c.Query("status")),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h Handlers) Analytics(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	period, ok := queryInt(c, "period")
	if !ok {
		return
	}
	out, err := h.Reporting.Analytics(c.Request.Context(), id.TenantID, period)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
