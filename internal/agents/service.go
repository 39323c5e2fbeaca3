package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"voice-receptionist/internal/audit"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxNameLen     = 100
	maxGreetingLen = 1000
)

type Service struct {
	repo  Repository
	audit *audit.Service
	log   *zap.Logger
	clock func() time.Time
}

func NewService(repo Repository, auditSvc *audit.Service, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, audit: auditSvc, log: log, clock: time.Now}
}

type CreateInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Template    Template        `json:"template"`
	Greeting    string          `json:"greeting"`
	VoiceID     string          `json:"voice_id"`
	FlowData    json.RawMessage `json:"flow_data"`
}

func (s *Service) Create(ctx context.Context, tenantID string, in CreateInput) (Agent, error) {
	name := strings.TrimSpace(in.Name)
	if err := validateName(name); err != nil {
		return Agent{}, err
	}
	tpl := in.Template
	if tpl == "" {
		tpl = TemplateCustom
	}
	if !tpl.Valid() {
		return Agent{}, fmt.Errorf("%w: unknown template %q", ErrInvalidArgument, tpl)
	}
	greeting := strings.TrimSpace(in.Greeting)
	if err := validateGreeting(greeting); err != nil {
		return Agent{}, err
	}
	if err := validateFlow(in.FlowData); err != nil {
		return Agent{}, err
	}

	now := s.clock().UTC()
	a := Agent{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Template:    tpl,
		Greeting:    greeting,
		VoiceID:     strings.TrimSpace(in.VoiceID),
		FlowData:    in.FlowData,
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return Agent{}, fmt.Errorf("create agent: %w", err)
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, tenantID string) ([]Summary, error) {
	return s.repo.List(ctx, tenantID)
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (Agent, error) {
	if err := checkID(id); err != nil {
		return Agent{}, err
	}
	return s.repo.Get(ctx, tenantID, id)
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Greeting    *string         `json:"greeting"`
	VoiceID     *string         `json:"voice_id"`
	FlowData    json.RawMessage `json:"flow_data"`
	Status      *Status         `json:"status"`
}

func (s *Service) Update(ctx context.Context, tenantID, id string, in UpdateInput) (Agent, error) {
	if err := checkID(id); err != nil {
		return Agent{}, err
	}
	a, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return Agent{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validateName(name); err != nil {
			return Agent{}, err
		}
		a.Name = name
	}
	if in.Description != nil {
		a.Description = strings.TrimSpace(*in.Description)
	}
	if in.Greeting != nil {
		g := strings.TrimSpace(*in.Greeting)
		if err := validateGreeting(g); err != nil {
			return Agent{}, err
		}
		a.Greeting = g
	}
	if in.VoiceID != nil {
		a.VoiceID = strings.TrimSpace(*in.VoiceID)
	}
	if in.FlowData != nil {
		if err := validateFlow(in.FlowData); err != nil {
			return Agent{}, err
		}
		a.FlowData = in.FlowData
		if string(in.FlowData) == "null" {
			a.FlowData = nil
		}
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return Agent{}, fmt.Errorf("%w: status must be draft or active", ErrInvalidArgument)
		}
		a.Status = *in.Status
	}

	a.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		return Agent{}, err
	}
	return a, nil
}

// Delete removes the agent and unroutes any phone numbers pointing at it.
// Those numbers answer with the unavailable message until re-routed.
func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	unlinked, err := s.repo.Delete(ctx, tenantID, id, s.clock().UTC())
	if err != nil {
		return err
	}
	if unlinked > 0 {
		s.log.Info("agent deleted with routed numbers",
			zap.String("tenant_id", tenantID),
			zap.String("agent_id", id),
			zap.Int64("unlinked_numbers", unlinked),
		)
	}
	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID,
		Type:     audit.EventAgentDeleted,
		AgentID:  id,
		Message:  fmt.Sprintf("agent deleted; %d number(s) unrouted", unlinked),
	})
	return nil
}

// checkID rejects ids that cannot name a row, so they read as missing
// instead of reaching the uuid column.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return nil
}

func validateName(name string) error {
	if n := utf8.RuneCountInString(name); n == 0 || n > maxNameLen {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidArgument, maxNameLen)
	}
	return nil
}

func validateGreeting(g string) error {
	if utf8.RuneCountInString(g) > maxGreetingLen {
		return fmt.Errorf("%w: greeting must be at most %d characters", ErrInvalidArgument, maxGreetingLen)
	}
	return nil
}

func validateFlow(raw json.RawMessage) error {
	if len(raw) > 0 && !json.Valid(raw) {
		return fmt.Errorf("%w: flow_data must be valid JSON", ErrInvalidArgument)
	}
	return nil
}
