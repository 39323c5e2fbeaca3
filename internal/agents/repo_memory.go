package agents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// NumberLinks is the view of phone number routing the in-memory repo needs to
// mirror the relational cascade.
type NumberLinks interface {
	NumbersForAgent(tenantID, agentID string) []string
	UnlinkAgent(tenantID, agentID string, now time.Time) int64
}

// MemoryRepo is an in-memory Repository for tests. Links may be nil.
type MemoryRepo struct {
	mu     sync.Mutex
	agents map[string]Agent
	Links  NumberLinks
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{agents: map[string]Agent{}}
}

func (r *MemoryRepo) Create(_ context.Context, a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.ID] = a
	return nil
}

func (r *MemoryRepo) List(_ context.Context, tenantID string) ([]Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Summary{}
	for _, a := range r.agents {
		if a.TenantID != tenantID {
			continue
		}
		s := Summary{Agent: a, PhoneNumbers: []string{}}
		if r.Links != nil {
			s.PhoneNumbers = append(s.PhoneNumbers, r.Links.NumbersForAgent(tenantID, a.ID)...)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Get(_ context.Context, tenantID, id string) (Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok || a.TenantID != tenantID {
		return Agent{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) Update(_ context.Context, a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.agents[a.ID]
	if !ok || existing.TenantID != a.TenantID {
		return ErrNotFound
	}
	r.agents[a.ID] = a
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, tenantID, id string, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok || a.TenantID != tenantID {
		return 0, ErrNotFound
	}
	var unlinked int64
	if r.Links != nil {
		unlinked = r.Links.UnlinkAgent(tenantID, id, now)
	}
	delete(r.agents, id)
	return unlinked, nil
}
