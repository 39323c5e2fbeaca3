package main

import (
	"time"

	"voice-receptionist/internal/auth"
	"voice-receptionist/internal/httpapi"
	"voice-receptionist/internal/telephony"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, a *app) {
	r.GET("/healthz", httpapi.Health(a.health, 3*time.Second))
	r.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	// Provider webhooks. Authenticated by Twilio's request signature, not JWT.
	hooks := r.Group("/webhooks/twilio")
	hooks.GET("/voice", a.webhook.HandleProbe)
	signed := hooks.Group("")
	signed.Use(telephony.SignatureMiddleware(a.twilio.AuthToken, a.baseURL, a.twilio.ValidateSignatures))
	{
		signed.POST("/voice", a.webhook.HandleInboundCall)
		signed.POST("/status", a.webhook.HandleStatusCallback)
	}

	a.api.Mount(r, auth.RequireAccessToken(a.auth))
}
