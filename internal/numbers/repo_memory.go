package numbers

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"voice-receptionist/internal/agents"
)

// MemoryRepo is an in-memory Repository for tests. It also implements
// agents.NumberLinks so agent deletion can cascade. Agents, when set, is used
// for the same-tenant check on links.
type MemoryRepo struct {
	mu      sync.Mutex
	numbers map[string]PhoneNumber
	Agents  AgentLookup
	// Err, when set, is returned by Insert.
	Err error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{numbers: map[string]PhoneNumber{}}
}

func (r *MemoryRepo) agentOwned(ctx context.Context, tenantID string, agentID *string) (bool, error) {
	if agentID == nil || r.Agents == nil {
		return true, nil
	}
	_, err := r.Agents.Get(ctx, tenantID, *agentID)
	if errors.Is(err, agents.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *MemoryRepo) Insert(ctx context.Context, n PhoneNumber) error {
	if r.Err != nil {
		return r.Err
	}
	ok, err := r.agentOwned(ctx, n.TenantID, n.AgentID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCrossTenant
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.numbers {
		if existing.Number == n.Number || existing.ProviderSID == n.ProviderSID {
			return ErrConflict
		}
	}
	r.numbers[n.ID] = n
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, tenantID string) ([]PhoneNumber, error) {
	r.mu.Lock()
	out := []PhoneNumber{}
	for _, n := range r.numbers {
		if n.TenantID == tenantID {
			out = append(out, n)
		}
	}
	r.mu.Unlock()

	for i, n := range out {
		if n.AgentID == nil || r.Agents == nil {
			continue
		}
		if a, err := r.Agents.Get(ctx, tenantID, *n.AgentID); err == nil {
			out[i].AgentName = a.Name
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Get(_ context.Context, tenantID, id string) (PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.numbers[id]
	if !ok || n.TenantID != tenantID {
		return PhoneNumber{}, ErrNotFound
	}
	return n, nil
}

func (r *MemoryRepo) SetAgent(ctx context.Context, tenantID, id string, agentID *string, now time.Time) error {
	owned, err := r.agentOwned(ctx, tenantID, agentID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.numbers[id]
	if !ok || n.TenantID != tenantID {
		return ErrNotFound
	}
	if !owned {
		return ErrCrossTenant
	}
	n.AgentID = agentID
	n.UpdatedAt = now
	r.numbers[id] = n
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, tenantID, id string) (PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.numbers[id]
	if !ok || n.TenantID != tenantID {
		return PhoneNumber{}, ErrNotFound
	}
	delete(r.numbers, id)
	return n, nil
}

func (r *MemoryRepo) NumbersForAgent(tenantID, agentID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.numbers {
		if n.TenantID == tenantID && n.AgentID != nil && *n.AgentID == agentID {
			out = append(out, n.Number)
		}
	}
	sort.Strings(out)
	return out
}

func (r *MemoryRepo) UnlinkAgent(tenantID, agentID string, now time.Time) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, num := range r.numbers {
		if num.TenantID == tenantID && num.AgentID != nil && *num.AgentID == agentID {
			num.AgentID = nil
			num.UpdatedAt = now
			r.numbers[id] = num
			n++
		}
	}
	return n
}

var _ agents.NumberLinks = (*MemoryRepo)(nil)
