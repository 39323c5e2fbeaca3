package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voice-receptionist/internal/agents"
	"voice-receptionist/internal/audit"
	"voice-receptionist/internal/auth"
	"voice-receptionist/internal/calls"
	"voice-receptionist/internal/config"
	"voice-receptionist/internal/numbers"
	"voice-receptionist/internal/rbac"
	"voice-receptionist/internal/reporting"
	"voice-receptionist/internal/telephony"
	"voice-receptionist/internal/tenants"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct{}

func (stubProvider) Name() string                                { return "stub" }
func (stubProvider) HealthCheck(context.Context) error           { return nil }
func (stubProvider) ReleaseNumber(context.Context, string) error { return nil }

func (stubProvider) ConfigureWebhook(context.Context, string, string) error { return nil }

func (stubProvider) SearchNumbers(_ context.Context, q telephony.SearchQuery) ([]telephony.AvailableNumber, error) {
	return []telephony.AvailableNumber{{Number: "+44" + q.AreaCode + "00000001"}}, nil
}

func (stubProvider) BuyNumber(_ context.Context, req telephony.BuyNumberRequest) (telephony.BuyNumberResult, error) {
	return telephony.BuyNumberResult{Number: req.Number, ProviderSID: "PN" + req.Number[1:]}, nil
}

type apiFixture struct {
	engine *gin.Engine
	auth   *auth.Manager
	calls  *calls.MemoryRepo
	audit  *audit.MemoryRepo
}

func newAPIFixture(t *testing.T) apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	auditRepo := audit.NewMemoryRepo()
	auditSvc := audit.NewService(auditRepo, nil)

	agentRepo := agents.NewMemoryRepo()
	numberRepo := numbers.NewMemoryRepo()
	agentRepo.Links = numberRepo
	numberRepo.Agents = agentRepo
	callRepo := calls.NewMemoryRepo()

	agentSvc := agents.NewService(agentRepo, auditSvc, nil)
	h := Handlers{
		Auth:      m,
		Tenants:   tenants.NewService(tenants.NewMemoryRepo()),
		Agents:    agentSvc,
		Numbers:   numbers.NewService(numberRepo, stubProvider{}, agentRepo, nil, auditSvc, nil, numbers.Options{VoiceURL: "https://rx.example.com/webhooks/twilio/voice"}),
		Calls:     calls.NewService(callRepo),
		Reporting: reporting.NewService(callRepo, agentSvc, nil, 0, nil),
	}

	r := gin.New()
	h.Mount(r, auth.RequireAccessToken(m))
	return apiFixture{engine: r, auth: m, calls: callRepo, audit: auditRepo}
}

func (f apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type session struct {
	User   tenants.User   `json:"user"`
	Tenant tenants.Tenant `json:"tenant"`
	Tokens auth.TokenPair `json:"tokens"`
}

func (f apiFixture) register(t *testing.T, email string) session {
	t.Helper()
	w := f.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{"email": email, "password": "correct horse", "name": "Jo"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[session](t, w)
}

func (f apiFixture) memberToken(t *testing.T, s session) string {
	t.Helper()
	pair, err := f.auth.IssuePair(time.Now(), auth.Identity{UserID: s.User.ID, TenantID: s.Tenant.ID, Role: rbac.RoleMember})
	require.NoError(t, err)
	return pair.AccessToken
}

func TestAuthFlow(t *testing.T) {
	f := newAPIFixture(t)
	s := f.register(t, "jo@acme.co.uk")
	assert.Equal(t, rbac.RoleOwner, s.User.Role)
	assert.Equal(t, "Jo's Company", s.Tenant.Name)

	w := f.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{"email": "jo@acme.co.uk", "password": "correct horse", "name": "Jo"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "jo@acme.co.uk", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "JO@acme.co.uk", "password": "correct horse"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/v1/auth/refresh", "", gin.H{"refresh_token": s.Tokens.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	refreshed := decode[session](t, w)

	w = f.do(t, http.MethodGet, "/v1/me", refreshed.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[map[string]string](t, w)
	assert.Equal(t, s.Tenant.ID, me["tenant_id"])
	assert.Equal(t, rbac.RoleOwner, me["role"])

	w = f.do(t, http.MethodPost, "/v1/auth/refresh", "", gin.H{"refresh_token": s.Tokens.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAgentsAndRouting(t *testing.T) {
	f := newAPIFixture(t)
	acme := f.register(t, "jo@acme.co.uk")
	other := f.register(t, "sam@other.co.uk")
	tok := acme.Tokens.AccessToken

	w := f.do(t, http.MethodPost, "/v1/agents", tok, gin.H{"name": "Front desk", "template": "restaurant", "greeting": "Hello, thank you for calling Acme"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	agent := decode[agents.Agent](t, w)

	w = f.do(t, http.MethodPost, "/v1/agents", other.Tokens.AccessToken, gin.H{"name": "Theirs"})
	require.Equal(t, http.StatusCreated, w.Code)
	foreign := decode[agents.Agent](t, w)

	w = f.do(t, http.MethodGet, "/v1/agents/"+foreign.ID, tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPatch, "/v1/agents/"+agent.ID, tok, gin.H{"status": "active"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, agents.StatusActive, decode[agents.Agent](t, w).Status)

	w = f.do(t, http.MethodPost, "/v1/phone-numbers", tok, gin.H{"phone_number": "+442099999999", "agent_id": agent.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	num := decode[numbers.PhoneNumber](t, w)
	require.NotNil(t, num.AgentID)

	w = f.do(t, http.MethodPatch, "/v1/phone-numbers/"+num.ID, tok, gin.H{"agent_id": foreign.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(t, http.MethodGet, "/v1/phone-numbers", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		PhoneNumbers []numbers.PhoneNumber `json:"phone_numbers"`
	}](t, w)
	require.Len(t, list.PhoneNumbers, 1)
	assert.Equal(t, agent.ID, *list.PhoneNumbers[0].AgentID)
	assert.Equal(t, "Front desk", list.PhoneNumbers[0].AgentName)

	w = f.do(t, http.MethodGet, "/v1/agents", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	summaries := decode[struct {
		Agents []agents.Summary `json:"agents"`
	}](t, w)
	require.Len(t, summaries.Agents, 1)
	assert.Equal(t, []string{"+442099999999"}, summaries.Agents[0].PhoneNumbers)

	w = f.do(t, http.MethodDelete, "/v1/agents/"+agent.ID, tok, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/v1/phone-numbers", tok, nil)
	list = decode[struct {
		PhoneNumbers []numbers.PhoneNumber `json:"phone_numbers"`
	}](t, w)
	assert.Nil(t, list.PhoneNumbers[0].AgentID)
}

func TestNumberOwnerOnlyRoutes(t *testing.T) {
	f := newAPIFixture(t)
	s := f.register(t, "jo@acme.co.uk")
	member := f.memberToken(t, s)

	w := f.do(t, http.MethodPost, "/v1/phone-numbers", member, gin.H{"phone_number": "+442099999999"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodGet, "/v1/phone-numbers/search?area_code=161&limit=5", member, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "+4416100000001")

	w = f.do(t, http.MethodPost, "/v1/phone-numbers", s.Tokens.AccessToken, gin.H{"phone_number": "+442099999999"})
	require.Equal(t, http.StatusCreated, w.Code)
	num := decode[numbers.PhoneNumber](t, w)

	w = f.do(t, http.MethodPost, "/v1/phone-numbers/"+num.ID+"/webhook", s.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodDelete, "/v1/phone-numbers/"+num.ID, member, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = f.do(t, http.MethodDelete, "/v1/phone-numbers/"+num.ID, s.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	var types []audit.EventType
	for _, e := range f.audit.Events() {
		types = append(types, e.Type)
		assert.Equal(t, s.User.ID, e.ActorUserID)
	}
	assert.Equal(t, []audit.EventType{audit.EventNumberPurchased, audit.EventNumberReleased}, types)
}

func TestMalformedPathIDsAreNotFound(t *testing.T) {
	f := newAPIFixture(t)
	tok := f.register(t, "jo@acme.co.uk").Tokens.AccessToken

	cases := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/v1/agents/abc", nil},
		{http.MethodPatch, "/v1/agents/abc", gin.H{"name": "Renamed"}},
		{http.MethodDelete, "/v1/agents/abc", nil},
		{http.MethodPatch, "/v1/phone-numbers/abc", gin.H{"agent_id": nil}},
		{http.MethodPost, "/v1/phone-numbers/abc/webhook", nil},
		{http.MethodDelete, "/v1/phone-numbers/abc", nil},
	}
	for _, tc := range cases {
		w := f.do(t, tc.method, tc.path, tok, tc.body)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s: %s", tc.method, tc.path, w.Body.String())
	}
	assert.Empty(t, f.audit.Events())
}

func TestCallsAndAnalytics(t *testing.T) {
	f := newAPIFixture(t)
	s := f.register(t, "jo@acme.co.uk")
	tok := s.Tokens.AccessToken

	started := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		d := 30
		f.calls.Add(calls.CallLog{
			ID: fmt.Sprintf("c%d", i), TenantID: s.Tenant.ID, CallSID: fmt.Sprintf("CA%d", i),
			Status: calls.StatusCompleted, DurationSeconds: &d, StartedAt: started.Add(time.Duration(i) * time.Minute),
		})
	}
	f.calls.Add(calls.CallLog{ID: "x", TenantID: "someone-else", CallSID: "CAX", Status: calls.StatusFailed, StartedAt: started})

	w := f.do(t, http.MethodGet, "/v1/calls?limit=2", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[calls.Page](t, w)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Calls, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "CA2", page.Calls[0].CallSID)

	w = f.do(t, http.MethodGet, "/v1/calls?status=unknown", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(t, http.MethodGet, "/v1/calls?limit=ten", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/v1/analytics?period=7", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	a := decode[reporting.Analytics](t, w)
	assert.Equal(t, 7, a.PeriodDays)
	assert.Equal(t, 3, a.Summary.TotalCalls)
	assert.Equal(t, 100, a.Summary.AnswerRate)
}

func TestSettings(t *testing.T) {
	f := newAPIFixture(t)
	s := f.register(t, "jo@acme.co.uk")

	w := f.do(t, http.MethodGet, "/v1/settings", s.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jo@acme.co.uk", decode[tenants.Settings](t, w).User.Email)

	w = f.do(t, http.MethodPatch, "/v1/settings", s.Tokens.AccessToken, gin.H{"tenant_name": "Acme Dental"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Acme Dental", decode[tenants.Settings](t, w).Tenant.Name)

	w = f.do(t, http.MethodPatch, "/v1/settings", f.memberToken(t, s), gin.H{"tenant_name": "Hijack"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPatch, "/v1/settings", s.Tokens.AccessToken, gin.H{"new_password": "another secret", "current_password": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{agents.ErrInvalidArgument, http.StatusBadRequest},
		{numbers.ErrCrossTenant, http.StatusUnprocessableEntity},
		{fmt.Errorf("get: %w", numbers.ErrNotFound), http.StatusNotFound},
		{numbers.ErrConflict, http.StatusConflict},
		{tenants.ErrInvalidCredentials, http.StatusUnauthorized},
		{tenants.ErrForbidden, http.StatusForbidden},
		{numbers.ErrProviderRelease, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", Health(map[string]HealthCheck{"db": func(context.Context) error { return nil }}, time.Second))
	r.GET("/bad", Health(map[string]HealthCheck{
		"db":    func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}, time.Second))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}
