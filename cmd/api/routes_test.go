package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"voice-receptionist/internal/agents"
	"voice-receptionist/internal/audit"
	"voice-receptionist/internal/auth"
	"voice-receptionist/internal/calls"
	"voice-receptionist/internal/config"
	"voice-receptionist/internal/httpapi"
	"voice-receptionist/internal/metrics"
	"voice-receptionist/internal/reporting"
	"voice-receptionist/internal/routing"
	"voice-receptionist/internal/telephony"
	"voice-receptionist/internal/tenants"
	"voice-receptionist/internal/voice"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := metrics.New()
	authManager, err := auth.NewManager(config.AuthConfig{JWTSecret: "s", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	require.NoError(t, err)
	bridge, err := voice.NewBridge(config.VoiceConfig{Endpoint: "wss://voice.test/call", APIKey: "vk"})
	require.NoError(t, err)

	store := routing.NewMemoryStore()
	store.Put("+442099999999", routing.Route{TenantID: "t1", PhoneNumberID: "n1", AgentID: "a1", Greeting: "Hello, thank you for calling Acme"})
	callRepo := calls.NewMemoryRepo()
	agentRepo := agents.NewMemoryRepo()
	auditSvc := audit.NewService(audit.NewMemoryRepo(), nil)

	a := &app{
		auth: authManager,
		api: httpapi.Handlers{
			Auth:      authManager,
			Tenants:   tenants.NewService(tenants.NewMemoryRepo()),
			Agents:    agents.NewService(agentRepo, auditSvc, nil),
			Calls:     calls.NewService(callRepo),
			Reporting: reporting.NewService(callRepo, agentRepo, nil, 0, nil),
		},
		webhook: telephony.WebhookHandler{
			Router:  routing.NewRouter(store, callRepo, bridge, nil),
			Calls:   calls.NewService(callRepo),
			Metrics: m,
			Timeout: time.Second,
		},
		metrics: m,
		health: map[string]httpapi.HealthCheck{
			"postgres": func(context.Context) error { return nil },
		},
		twilio:  config.TwilioConfig{AuthToken: "token", ValidateSignatures: false},
		baseURL: "https://rx.example.com",
	}

	r := gin.New()
	registerRoutes(r, a)
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutes_Operational(t *testing.T) {
	r := testApp(t)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/webhooks/twilio/voice", nil))
	assert.Equal(t, "Voice webhook OK", w.Body.String())

	form := url.Values{"CallSid": {"CA1"}, "From": {"+447700900123"}, "To": {"+442099999999"}}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/voice", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Hello, thank you for calling Acme")
	assert.Contains(t, w.Body.String(), "<Connect>")

	w = serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `voice_receptionist_webhook_calls_total{outcome="routed"} 1`)
}

func TestRoutes_APIRequiresToken(t *testing.T) {
	r := testApp(t)

	for _, path := range []string{"/v1/me", "/v1/agents", "/v1/calls", "/v1/analytics", "/v1/settings"} {
		w := serve(r, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}
