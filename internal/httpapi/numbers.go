package httpapi

import (
	"net/http"
	"strconv"

	"voice-receptionist/internal/numbers"

	"github.com/gin-gonic/gin"
)

func (h Handlers) ListNumbers(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	list, err := h.Numbers.List(c.Request.Context(), id.TenantID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"phone_numbers": list})
}

func (h Handlers) SearchNumbers(c *gin.Context) {
	if _, ok := identity(c); !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	found, err := h.Numbers.Search(c.Request.Context(), c.Query("area_code"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"numbers": found})
}

func (h Handlers) PurchaseNumber(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var in numbers.PurchaseInput
	if !bindJSON(c, &in) {
		return
	}
	n, err := h.Numbers.Purchase(c.Request.Context(), id.TenantID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

// routingRequest sets the number's agent. A null or absent agent_id unroutes
// the number.
type routingRequest struct {
	AgentID *string `json:"agent_id"`
}

func (h Handlers) UpdateNumberRouting(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req routingRequest
	if !bindJSON(c, &req) {
		return
	}
	n, err := h.Numbers.UpdateRouting(c.Request.Context(), id.TenantID, c.Param("id"), req.AgentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h Handlers) ConfigureNumberWebhook(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	n, err := h.Numbers.ConfigureWebhook(c.Request.Context(), id.TenantID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h Handlers) ReleaseNumber(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if err := h.Numbers.Release(c.Request.Context(), id.TenantID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
