package audit

import (
	"context"
	"errors"
	"time"

	"voice-receptionist/internal/auth"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Repository is the persistence contract for audit events. It is append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records internal audit events. Recording is best-effort: Record
// never fails the calling operation.
type Service struct {
	repo  Repository
	log   *zap.Logger
	clock func() time.Time
}

func NewService(repo Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.TenantID == "" || e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// Record fills the actor and client IP from ctx and appends e, logging
// instead of returning failures. A nil Service is a no-op.
func (s *Service) Record(ctx context.Context, e Event) {
	if s == nil {
		return
	}
	if id, err := auth.IdentityFrom(ctx); err == nil {
		if e.ActorUserID == "" {
			e.ActorUserID = id.UserID
		}
		if e.ActorRole == "" {
			e.ActorRole = id.Role
		}
	}
	if e.IPAddress == "" {
		e.IPAddress = ClientIPFromContext(ctx)
	}
	if err := s.Append(ctx, e); err != nil {
		s.log.Warn("audit append failed",
			zap.String("tenant_id", e.TenantID),
			zap.String("type", string(e.Type)),
			zap.Error(err),
		)
	}
}
