package httpapi

import (
	"net/http"

	"voice-receptionist/internal/auth"
	"voice-receptionist/internal/tenants"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	User   tenants.User    `json:"user"`
	Tenant *tenants.Tenant `json:"tenant,omitempty"`
	Tokens auth.TokenPair  `json:"tokens"`
}

func (h Handlers) issue(c *gin.Context, u tenants.User) (auth.TokenPair, bool) {
	pair, err := h.Auth.IssuePair(h.now(), auth.Identity{UserID: u.ID, TenantID: u.TenantID, Role: u.Role})
	if err != nil {
		writeError(c, err)
		return auth.TokenPair{}, false
	}
	return pair, true
}

// Register creates a tenant and its owner and signs them in.
func (h Handlers) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	u, t, err := h.Tenants.Register(c.Request.Context(), tenants.RegisterInput{
		Email: req.Email, Password: req.Password, Name: req.Name,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	pair, ok := h.issue(c, u)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{User: u, Tenant: &t, Tokens: pair})
}

func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Tenants.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	pair, ok := h.issue(c, u)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse{User: u, Tokens: pair})
}

// Refresh exchanges a refresh token for a new pair. The role is re-read so
// role changes take effect without a new login.
func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}
	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, h.now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	u, err := h.Tenants.UserByID(c.Request.Context(), claims.UserID)
	if err != nil || u.TenantID != claims.TenantID {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	pair, ok := h.issue(c, u)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse{User: u, Tokens: pair})
}

func (h Handlers) Me(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "tenant_id": id.TenantID, "role": id.Role})
}
