package httpapi

import (
	"net/http"

	"voice-receptionist/internal/agents"

	"github.com/gin-gonic/gin"
)

func (h Handlers) ListAgents(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	list, err := h.Agents.List(c.Request.Context(), id.TenantID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": list})
}

func (h Handlers) CreateAgent(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var in agents.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	a, err := h.Agents.Create(c.Request.Context(), id.TenantID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h Handlers) GetAgent(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	a, err := h.Agents.Get(c.Request.Context(), id.TenantID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h Handlers) UpdateAgent(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var in agents.UpdateInput
	if !bindJSON(c, &in) {
		return
	}
	a, err := h.Agents.Update(c.Request.Context(), id.TenantID, c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// DeleteAgent removes the agent; its numbers become unrouted.
func (h Handlers) DeleteAgent(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if err := h.Agents.Delete(c.Request.Context(), id.TenantID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
