package httpapi

import (
	"net/http"

	"voice-receptionist/internal/tenants"

	"github.com/gin-gonic/gin"
)

func (h Handlers) GetSettings(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	s, err := h.Tenants.Settings(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h Handlers) UpdateSettings(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var in tenants.SettingsInput
	if !bindJSON(c, &in) {
		return
	}
	s, err := h.Tenants.UpdateSettings(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
