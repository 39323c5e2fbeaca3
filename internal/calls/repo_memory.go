package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu   sync.Mutex
	logs []CallLog
	// Err, when set, is returned by CreateInbound.
	Err error
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) CreateInbound(_ context.Context, c CallLog) (CallLog, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return CallLog{}, false, r.Err
	}
	for _, existing := range r.logs {
		if existing.CallSID == c.CallSID {
			return existing, false, nil
		}
	}
	r.logs = append(r.logs, c)
	return c, true, nil
}

func (r *MemoryRepo) Complete(_ context.Context, c Completion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.logs {
		if existing.CallSID != c.CallSID || existing.Status != StatusRinging {
			continue
		}
		d, ended := c.DurationSeconds, c.EndedAt
		existing.Status = c.Status
		if c.Outcome != "" {
			existing.Outcome = c.Outcome
		}
		existing.DurationSeconds = &d
		existing.EndedAt = &ended
		r.logs[i] = existing
		return nil
	}
	return ErrNotFound
}

// Add seeds a log directly, bypassing deduplication.
func (r *MemoryRepo) Add(c CallLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, c)
}

func (r *MemoryRepo) All() []CallLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CallLog, len(r.logs))
	copy(out, r.logs)
	return out
}

func (r *MemoryRepo) List(_ context.Context, tenantID string, f ListFilter) ([]CallLog, int64, error) {
	r.mu.Lock()
	var matched []CallLog
	for _, c := range r.logs {
		if c.TenantID != tenantID {
			continue
		}
		if f.AgentID != "" && (c.AgentID == nil || *c.AgentID != f.AgentID) {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		matched = append(matched, c)
	}
	r.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].StartedAt.After(matched[j].StartedAt) })
	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return []CallLog{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[f.Offset:end], total, nil
}

func (r *MemoryRepo) Between(_ context.Context, tenantID string, from, to time.Time) ([]CallLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []CallLog{}
	for _, c := range r.logs {
		if c.TenantID == tenantID && !c.StartedAt.Before(from) && c.StartedAt.Before(to) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}
