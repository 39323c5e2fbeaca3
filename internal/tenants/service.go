package tenants

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"voice-receptionist/internal/auth"
	"voice-receptionist/internal/rbac"

	"github.com/google/uuid"
)

const (
	minPasswordLen = 8
	maxNameLen     = 100
)

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Register creates a tenant named after the user together with its owner.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, Tenant, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return User{}, Tenant{}, err
	}
	name := strings.TrimSpace(in.Name)
	if err := validateName(name); err != nil {
		return User{}, Tenant{}, err
	}
	if len(in.Password) < minPasswordLen {
		return User{}, Tenant{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidArgument, minPasswordLen)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, Tenant{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock().UTC()
	t := Tenant{
		ID:        uuid.NewString(),
		Name:      name + "'s Company",
		Slug:      tenantSlug(email, now),
		CreatedAt: now,
		UpdatedAt: now,
	}
	u := User{
		ID:           uuid.NewString(),
		TenantID:     t.ID,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         rbac.RoleOwner,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateWithOwner(ctx, t, u); err != nil {
		return User{}, Tenant{}, err
	}
	return u, t, nil
}

// Authenticate checks an email/password pair. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.repo.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	return u, nil
}

// UserByID is used on token refresh to re-read the current role.
func (s *Service) UserByID(ctx context.Context, id string) (User, error) {
	return s.repo.UserByID(ctx, id)
}

func (s *Service) Settings(ctx context.Context, id auth.Identity) (Settings, error) {
	u, err := s.repo.UserByID(ctx, id.UserID)
	if err != nil {
		return Settings{}, err
	}
	if u.TenantID != id.TenantID {
		return Settings{}, ErrNotFound
	}
	t, err := s.repo.TenantByID(ctx, u.TenantID)
	if err != nil {
		return Settings{}, err
	}
	return Settings{User: u, Tenant: t}, nil
}

type SettingsInput struct {
	Name            *string `json:"name"`
	Image           *string `json:"image"`
	CurrentPassword string  `json:"current_password"`
	NewPassword     string  `json:"new_password"`
	TenantName      *string `json:"tenant_name"`
}

// UpdateSettings applies a profile change for the caller. Changing the
// password requires the current one. Renaming the tenant is owner only.
func (s *Service) UpdateSettings(ctx context.Context, id auth.Identity, in SettingsInput) (Settings, error) {
	upd := SettingsUpdate{TenantID: id.TenantID, UserID: id.UserID, Now: s.clock().UTC()}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validateName(name); err != nil {
			return Settings{}, err
		}
		upd.Name = &name
	}
	if in.Image != nil {
		image := strings.TrimSpace(*in.Image)
		upd.Image = &image
	}
	if in.TenantName != nil {
		if id.Role != rbac.RoleOwner && !rbac.IsSuperAdmin(id.Role) {
			return Settings{}, fmt.Errorf("%w: only the owner can rename the company", ErrForbidden)
		}
		tn := strings.TrimSpace(*in.TenantName)
		if err := validateName(tn); err != nil {
			return Settings{}, err
		}
		upd.TenantName = &tn
	}
	if in.NewPassword != "" {
		if len(in.NewPassword) < minPasswordLen {
			return Settings{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidArgument, minPasswordLen)
		}
		u, err := s.repo.UserByID(ctx, id.UserID)
		if err != nil {
			return Settings{}, err
		}
		if err := auth.CheckPassword(u.PasswordHash, in.CurrentPassword); err != nil {
			if errors.Is(err, auth.ErrPasswordMismatch) {
				return Settings{}, fmt.Errorf("%w: current password is incorrect", ErrInvalidArgument)
			}
			return Settings{}, err
		}
		hash, err := auth.HashPassword(in.NewPassword)
		if err != nil {
			return Settings{}, fmt.Errorf("hash password: %w", err)
		}
		upd.PasswordHash = &hash
	}

	if err := s.repo.ApplySettings(ctx, upd); err != nil {
		return Settings{}, err
	}
	return s.Settings(ctx, id)
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email address", ErrInvalidArgument)
	}
	return email, nil
}

func validateName(name string) error {
	if n := utf8.RuneCountInString(name); n == 0 || n > maxNameLen {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidArgument, maxNameLen)
	}
	return nil
}

// tenantSlug derives a URL-safe slug from the email local part with a
// millisecond suffix so repeated local parts stay unique.
func tenantSlug(email string, now time.Time) string {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	base := b.String()
	if base == "" {
		base = "tenant"
	}
	return fmt.Sprintf("%s-%d", base, now.UnixMilli())
}
