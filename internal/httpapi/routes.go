package httpapi

import (
	"voice-receptionist/internal/rbac"

	"github.com/gin-gonic/gin"
)

// Mount registers the /v1 API on r. authMW verifies the bearer token and
// must store an auth.Identity.
func (h Handlers) Mount(r gin.IRouter, authMW gin.HandlerFunc) {
	v1 := r.Group("/v1")
	v1.Use(ClientIP())

	public := v1.Group("/auth")
	{
		public.POST("/register", h.Register)
		public.POST("/login", h.Login)
		public.POST("/refresh", h.Refresh)
	}

	api := v1.Group("")
	api.Use(authMW, rbac.RequireTenant())
	ownerOnly := rbac.RequireAnyRole(rbac.RoleOwner)

	api.GET("/me", h.Me)

	api.GET("/agents", h.ListAgents)
	api.POST("/agents", h.CreateAgent)
	api.GET("/agents/:id", h.GetAgent)
	api.PATCH("/agents/:id", h.UpdateAgent)
	api.DELETE("/agents/:id", h.DeleteAgent)

	api.GET("/phone-numbers", h.ListNumbers)
	api.GET("/phone-numbers/search", h.SearchNumbers)
	api.POST("/phone-numbers", ownerOnly, h.PurchaseNumber)
	api.PATCH("/phone-numbers/:id", h.UpdateNumberRouting)
	api.POST("/phone-numbers/:id/webhook", ownerOnly, h.ConfigureNumberWebhook)
	api.DELETE("/phone-numbers/:id", ownerOnly, h.ReleaseNumber)

	api.GET("/calls", h.ListCalls)
	api.GET("/analytics", h.Analytics)

	api.GET("/settings", h.GetSettings)
	api.PATCH("/settings", h.UpdateSettings)
}
