package tenants

import (
	"context"
	"testing"
	"time"

	"voice-receptionist/internal/auth"
	"voice-receptionist/internal/rbac"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() (*Service, *MemoryRepo) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	svc.clock = func() time.Time { return time.Unix(1700000000, 0) }
	return svc, repo
}

func TestRegister_CreatesTenantAndOwner(t *testing.T) {
	svc, repo := newTestService()

	u, tn, err := svc.Register(context.Background(), RegisterInput{
		Email:    "  Jane.Doe+calls@Example.co.uk ",
		Password: "s3cretpass",
		Name:     "Jane",
	})
	require.NoError(t, err)

	assert.Equal(t, "jane.doe+calls@example.co.uk", u.Email)
	assert.Equal(t, rbac.RoleOwner, u.Role)
	assert.Equal(t, tn.ID, u.TenantID)
	assert.Equal(t, "Jane's Company", tn.Name)
	assert.Equal(t, "janedoecalls-1700000000000", tn.Slug)
	assert.NotEqual(t, "s3cretpass", u.PasswordHash)

	stored, err := repo.TenantByID(context.Background(), tn.ID)
	require.NoError(t, err)
	assert.Equal(t, tn, stored)
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, RegisterInput{Email: "not-an-email", Password: "longenough", Name: "A"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, _, err = svc.Register(ctx, RegisterInput{Email: "a@b.co", Password: "short", Name: "A"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, _, err = svc.Register(ctx, RegisterInput{Email: "a@b.co", Password: "longenough", Name: "   "})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, RegisterInput{Email: "owner@acme.co.uk", Password: "longenough", Name: "Owner"})
	require.NoError(t, err)

	svc.clock = func() time.Time { return time.Unix(1700000001, 0) }
	_, _, err = svc.Register(ctx, RegisterInput{Email: "OWNER@acme.co.uk", Password: "longenough", Name: "Other"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	registered, _, err := svc.Register(ctx, RegisterInput{Email: "owner@acme.co.uk", Password: "longenough", Name: "Owner"})
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, "Owner@Acme.co.uk", "longenough")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)

	_, err = svc.Authenticate(ctx, "owner@acme.co.uk", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@acme.co.uk", "longenough")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateSettings(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	u, tn, err := svc.Register(ctx, RegisterInput{Email: "owner@acme.co.uk", Password: "longenough", Name: "Owner"})
	require.NoError(t, err)
	owner := auth.Identity{UserID: u.ID, TenantID: tn.ID, Role: u.Role}

	name, company := "Olivia", "Acme Lettings"
	got, err := svc.UpdateSettings(ctx, owner, SettingsInput{Name: &name, TenantName: &company})
	require.NoError(t, err)
	assert.Equal(t, "Olivia", got.User.Name)
	assert.Equal(t, "Acme Lettings", got.Tenant.Name)

	_, err = svc.UpdateSettings(ctx, owner, SettingsInput{CurrentPassword: "nope", NewPassword: "newpassword"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.UpdateSettings(ctx, owner, SettingsInput{CurrentPassword: "longenough", NewPassword: "newpassword"})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "owner@acme.co.uk", "newpassword")
	assert.NoError(t, err)
}

func TestUpdateSettings_MemberCannotRenameTenant(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	u, tn, err := svc.Register(ctx, RegisterInput{Email: "owner@acme.co.uk", Password: "longenough", Name: "Owner"})
	require.NoError(t, err)

	company := "Hijacked Ltd"
	_, err = svc.UpdateSettings(ctx, auth.Identity{UserID: u.ID, TenantID: tn.ID, Role: rbac.RoleMember}, SettingsInput{TenantName: &company})
	assert.ErrorIs(t, err, ErrForbidden)

	s, err := svc.Settings(ctx, auth.Identity{UserID: u.ID, TenantID: tn.ID})
	require.NoError(t, err)
	assert.Equal(t, "Owner's Company", s.Tenant.Name)
}

func TestSettings_ForeignTenantIsNotFound(t *testing.T) {
	svc, _ := newTestService()
	u, _, err := svc.Register(context.Background(), RegisterInput{Email: "owner@acme.co.uk", Password: "longenough", Name: "Owner"})
	require.NoError(t, err)

	_, err = svc.Settings(context.Background(), auth.Identity{UserID: u.ID, TenantID: "someone-else"})
	assert.ErrorIs(t, err, ErrNotFound)
}
