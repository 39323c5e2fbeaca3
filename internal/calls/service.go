package calls

import (
	"context"
	"fmt"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type ListFilter struct {
	Limit   int
	Offset  int
	AgentID string
	Status  Status
}

// Page is one window of a tenant's call history.
type Page struct {
	Calls   []CallLog `json:"calls"`
	Total   int64     `json:"total"`
	Limit   int       `json:"limit"`
	Offset  int       `json:"offset"`
	HasMore bool      `json:"has_more"`
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the tenant's calls, newest first.
func (s *Service) List(ctx context.Context, tenantID string, f ListFilter) (Page, error) {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		return Page{}, fmt.Errorf("%w: offset must be >= 0", ErrInvalidArgument)
	}
	if f.Status != "" && !f.Status.Valid() {
		return Page{}, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, f.Status)
	}

	logs, total, err := s.repo.List(ctx, tenantID, f)
	if err != nil {
		return Page{}, fmt.Errorf("list calls: %w", err)
	}
	return Page{
		Calls:   logs,
		Total:   total,
		Limit:   f.Limit,
		Offset:  f.Offset,
		HasMore: int64(f.Offset+len(logs)) < total,
	}, nil
}

// Complete records the end of a call. Unknown or already-final calls report
// ErrNotFound so repeated provider callbacks are harmless.
func (s *Service) Complete(ctx context.Context, c Completion) error {
	if c.CallSID == "" || !c.Status.Final() {
		return fmt.Errorf("%w: call sid and a final status are required", ErrInvalidArgument)
	}
	if c.DurationSeconds < 0 {
		c.DurationSeconds = 0
	}
	return s.repo.Complete(ctx, c)
}
