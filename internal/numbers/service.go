package numbers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"voice-receptionist/internal/agents"
	"voice-receptionist/internal/audit"
	"voice-receptionist/internal/telephony"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultAreaCode    = "20"
	defaultSearchLimit = 10
	maxSearchLimit     = 30
)

// AgentLookup resolves an agent within a tenant, returning
// agents.ErrNotFound for agents of other tenants.
type AgentLookup interface {
	Get(ctx context.Context, tenantID, id string) (agents.Agent, error)
}

// Options are the provider-facing settings applied to every purchase.
type Options struct {
	CountryISO2       string
	VoiceURL          string
	StatusCallbackURL string
}

type Service struct {
	repo     Repository
	provider telephony.Provider
	agents   AgentLookup
	lock     PurchaseLock
	audit    *audit.Service
	log      *zap.Logger
	opts     Options
	clock    func() time.Time
}

// NewService wires the number lifecycle. lock may be nil, in which case
// concurrent purchases of one number are caught only by the unique index.
func NewService(repo Repository, provider telephony.Provider, agentLookup AgentLookup, lock PurchaseLock, auditSvc *audit.Service, log *zap.Logger, opts Options) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.CountryISO2 == "" {
		opts.CountryISO2 = "GB"
	}
	return &Service{
		repo:     repo,
		provider: provider,
		agents:   agentLookup,
		lock:     lock,
		audit:    auditSvc,
		log:      log,
		opts:     opts,
		clock:    time.Now,
	}
}

func (s *Service) List(ctx context.Context, tenantID string) ([]PhoneNumber, error) {
	return s.repo.List(ctx, tenantID)
}

// Search lists numbers available to lease. The area code is the national code
// without its leading zero; "020" and "20" are equivalent.
func (s *Service) Search(ctx context.Context, areaCode string, limit int) ([]telephony.AvailableNumber, error) {
	areaCode = strings.TrimLeft(strings.TrimSpace(areaCode), "0")
	if areaCode == "" {
		areaCode = defaultAreaCode
	}
	for _, ch := range areaCode {
		if ch < '0' || ch > '9' {
			return nil, fmt.Errorf("%w: area code must be digits", ErrInvalidArgument)
		}
	}
	switch {
	case limit <= 0:
		limit = defaultSearchLimit
	case limit > maxSearchLimit:
		limit = maxSearchLimit
	}

	found, err := s.provider.SearchNumbers(ctx, telephony.SearchQuery{
		CountryISO2: s.opts.CountryISO2,
		AreaCode:    areaCode,
		Limit:       limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search numbers: %w", err)
	}
	return found, nil
}

type PurchaseInput struct {
	Number   string  `json:"phone_number"`
	AgentID  *string `json:"agent_id"`
	Locality string  `json:"locality"`
}

// Purchase leases a number from the provider and then records it. If the
// local record cannot be written the lease is released again.
func (s *Service) Purchase(ctx context.Context, tenantID string, in PurchaseInput) (PhoneNumber, error) {
	number := telephony.NormalizeE164(in.Number)
	if !telephony.IsE164(number) {
		return PhoneNumber{}, fmt.Errorf("%w: phone_number must be E.164", ErrInvalidArgument)
	}
	agentID, err := s.checkAgent(ctx, tenantID, in.AgentID)
	if err != nil {
		return PhoneNumber{}, err
	}

	if s.lock != nil {
		release, err := s.lock.Acquire(ctx, number)
		if err != nil {
			return PhoneNumber{}, err
		}
		defer release()
	}

	bought, err := s.provider.BuyNumber(ctx, telephony.BuyNumberRequest{
		TenantID:          tenantID,
		Number:            number,
		VoiceURL:          s.opts.VoiceURL,
		StatusCallbackURL: s.opts.StatusCallbackURL,
	})
	if err != nil {
		return PhoneNumber{}, fmt.Errorf("buy number: %w", err)
	}

	now := s.clock().UTC()
	rec := PhoneNumber{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		Number:       number,
		ProviderSID:  bought.ProviderSID,
		AgentID:      agentID,
		FriendlyName: bought.FriendlyName,
		Locality:     strings.TrimSpace(in.Locality),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if n := telephony.NormalizeE164(bought.Number); telephony.IsE164(n) {
		rec.Number = n
	}

	if err := s.repo.Insert(ctx, rec); err != nil {
		s.compensate(ctx, rec, err)
		return PhoneNumber{}, err
	}

	s.audit.Record(ctx, audit.Event{
		TenantID:      tenantID,
		Type:          audit.EventNumberPurchased,
		PhoneNumberID: rec.ID,
		AgentID:       deref(agentID),
		Message:       "purchased " + rec.Number,
		Metadata:      metadata(map[string]string{"provider_sid": rec.ProviderSID, "provider": s.provider.Name()}),
	})
	return rec, nil
}

func (s *Service) compensate(ctx context.Context, rec PhoneNumber, cause error) {
	log := s.log.With(
		zap.String("tenant_id", rec.TenantID),
		zap.String("number", rec.Number),
		zap.String("provider_sid", rec.ProviderSID),
	)
	ctx = context.WithoutCancel(ctx)
	if err := s.provider.ReleaseNumber(ctx, rec.ProviderSID); err != nil {
		log.Error("purchase compensation failed; number still leased", zap.NamedError("cause", cause), zap.Error(err))
		return
	}
	log.Warn("purchase rolled back", zap.Error(cause))
}

// Release deletes the local record and then gives the number back to the
// provider. If the provider call fails the record stays deleted and
// ErrProviderRelease is returned.
func (s *Service) Release(ctx context.Context, tenantID, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	rec, err := s.repo.Delete(ctx, tenantID, id)
	if err != nil {
		return err
	}

	ev := audit.Event{
		TenantID:      tenantID,
		Type:          audit.EventNumberReleased,
		PhoneNumberID: rec.ID,
		AgentID:       deref(rec.AgentID),
		Message:       "released " + rec.Number,
	}
	if err := s.provider.ReleaseNumber(ctx, rec.ProviderSID); err != nil {
		s.log.Error("provider release failed after local delete",
			zap.String("tenant_id", tenantID),
			zap.String("number", rec.Number),
			zap.String("provider_sid", rec.ProviderSID),
			zap.Error(err),
		)
		ev.Metadata = metadata(map[string]string{"provider_error": err.Error()})
		s.audit.Record(ctx, ev)
		return fmt.Errorf("%w: %v", ErrProviderRelease, err)
	}
	s.audit.Record(ctx, ev)
	return nil
}

// UpdateRouting points the number at agentID, or unroutes it when agentID is
// nil. Agents of other tenants are rejected without any change.
func (s *Service) UpdateRouting(ctx context.Context, tenantID, id string, agentID *string) (PhoneNumber, error) {
	if err := checkID(id); err != nil {
		return PhoneNumber{}, err
	}
	current, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return PhoneNumber{}, err
	}
	agentID, err = s.checkAgent(ctx, tenantID, agentID)
	if err != nil {
		return PhoneNumber{}, err
	}

	now := s.clock().UTC()
	if err := s.repo.SetAgent(ctx, tenantID, id, agentID, now); err != nil {
		return PhoneNumber{}, err
	}

	s.audit.Record(ctx, audit.Event{
		TenantID:      tenantID,
		Type:          audit.EventNumberRoutingChanged,
		PhoneNumberID: id,
		AgentID:       deref(agentID),
		Message:       "routing changed for " + current.Number,
		Metadata:      metadata(map[string]string{"previous_agent_id": deref(current.AgentID), "agent_id": deref(agentID)}),
	})

	current.AgentID = agentID
	current.UpdatedAt = now
	return current, nil
}

// ConfigureWebhook pushes the voice webhook URL to the provider again, for
// numbers whose configuration drifted.
func (s *Service) ConfigureWebhook(ctx context.Context, tenantID, id string) (PhoneNumber, error) {
	if err := checkID(id); err != nil {
		return PhoneNumber{}, err
	}
	rec, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return PhoneNumber{}, err
	}
	if s.opts.VoiceURL == "" {
		return PhoneNumber{}, errors.New("voice webhook url is not configured")
	}
	if err := s.provider.ConfigureWebhook(ctx, rec.ProviderSID, s.opts.VoiceURL); err != nil {
		return PhoneNumber{}, fmt.Errorf("configure webhook: %w", err)
	}
	return rec, nil
}

// checkAgent normalises an optional agent reference and verifies it belongs
// to tenantID. An empty string is treated as no agent.
func (s *Service) checkAgent(ctx context.Context, tenantID string, agentID *string) (*string, error) {
	if agentID == nil || strings.TrimSpace(*agentID) == "" {
		return nil, nil
	}
	id := strings.TrimSpace(*agentID)
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: agent_id must be a uuid", ErrInvalidArgument)
	}
	if _, err := s.agents.Get(ctx, tenantID, id); err != nil {
		if errors.Is(err, agents.ErrNotFound) {
			return nil, ErrCrossTenant
		}
		return nil, fmt.Errorf("lookup agent: %w", err)
	}
	return &id, nil
}

// checkID rejects ids that cannot name a row, so they read as missing
// instead of reaching the uuid column.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func metadata(m map[string]string) string {
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
