package tenants

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu      sync.Mutex
	tenants map[string]Tenant
	users   map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{tenants: map[string]Tenant{}, users: map[string]User{}}
}

func (r *MemoryRepo) CreateWithOwner(_ context.Context, t Tenant, owner User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == owner.Email {
			return ErrConflict
		}
	}
	for _, existing := range r.tenants {
		if existing.Slug == t.Slug {
			return ErrConflict
		}
	}
	r.tenants[t.ID] = t
	r.users[owner.ID] = owner
	return nil
}

func (r *MemoryRepo) UserByEmail(_ context.Context, email string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *MemoryRepo) UserByID(_ context.Context, id string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryRepo) TenantByID(_ context.Context, id string) (Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	return t, nil
}

func (r *MemoryRepo) ApplySettings(_ context.Context, s SettingsUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[s.UserID]
	if !ok || u.TenantID != s.TenantID {
		return ErrNotFound
	}
	if s.Name != nil {
		u.Name = *s.Name
	}
	if s.Image != nil {
		u.Image = *s.Image
	}
	if s.PasswordHash != nil {
		u.PasswordHash = *s.PasswordHash
	}
	u.UpdatedAt = s.Now
	r.users[u.ID] = u

	if s.TenantName != nil {
		t := r.tenants[s.TenantID]
		t.Name = *s.TenantName
		t.UpdatedAt = s.Now
		r.tenants[t.ID] = t
	}
	return nil
}
