package telephony

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"voice-receptionist/internal/config"
	"voice-receptionist/internal/metrics"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// twilioAPI is the subset of the Twilio v2010 REST client the adapter uses.
// *twilioapi.ApiService satisfies it.
type twilioAPI interface {
	ListAvailablePhoneNumberLocal(countryCode string, params *twilioapi.ListAvailablePhoneNumberLocalParams) ([]twilioapi.ApiV2010AvailablePhoneNumberLocal, error)
	CreateIncomingPhoneNumber(params *twilioapi.CreateIncomingPhoneNumberParams) (*twilioapi.ApiV2010IncomingPhoneNumber, error)
	UpdateIncomingPhoneNumber(sid string, params *twilioapi.UpdateIncomingPhoneNumberParams) (*twilioapi.ApiV2010IncomingPhoneNumber, error)
	DeleteIncomingPhoneNumber(sid string, params *twilioapi.DeleteIncomingPhoneNumberParams) error
	ListIncomingPhoneNumber(params *twilioapi.ListIncomingPhoneNumberParams) ([]twilioapi.ApiV2010IncomingPhoneNumber, error)
}

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 30
	webhookMethod      = "POST"
)

// TwilioProvider manages numbers through the Twilio REST API.
type TwilioProvider struct {
	api     twilioAPI
	country string
	metrics *metrics.Metrics
}

func NewTwilioProvider(cfg config.TwilioConfig, m *metrics.Metrics) (*TwilioProvider, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("telephony: twilio credentials are required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newTwilioProvider(client.Api, cfg.CountryCode, m), nil
}

func newTwilioProvider(api twilioAPI, country string, m *metrics.Metrics) *TwilioProvider {
	if country == "" {
		country = "GB"
	}
	return &TwilioProvider{api: api, country: country, metrics: m}
}

func (p *TwilioProvider) Name() string { return "twilio" }

// HealthCheck lists at most one owned number, which exercises credentials and
// connectivity without side effects.
func (p *TwilioProvider) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &twilioapi.ListIncomingPhoneNumberParams{}
	params.SetPageSize(1)
	params.SetLimit(1)
	_, err := p.api.ListIncomingPhoneNumber(params)
	p.metrics.ObserveProvider("health_check", err)
	if err != nil {
		return fmt.Errorf("twilio health check: %w", err)
	}
	return nil
}

// SearchNumbers finds local numbers with voice and SMS enabled.
func (p *TwilioProvider) SearchNumbers(ctx context.Context, q SearchQuery) ([]AvailableNumber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	country := q.CountryISO2
	if country == "" {
		country = p.country
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	params := &twilioapi.ListAvailablePhoneNumberLocalParams{}
	params.SetVoiceEnabled(true)
	params.SetSmsEnabled(true)
	params.SetLimit(limit)
	if q.AreaCode != "" {
		code, err := strconv.Atoi(q.AreaCode)
		if err != nil || code <= 0 {
			return nil, fmt.Errorf("telephony: area code must be numeric, got %q", q.AreaCode)
		}
		params.SetAreaCode(code)
	}

	found, err := p.api.ListAvailablePhoneNumberLocal(country, params)
	p.metrics.ObserveProvider("search_numbers", err)
	if err != nil {
		return nil, fmt.Errorf("twilio search numbers: %w", err)
	}

	out := make([]AvailableNumber, 0, len(found))
	for _, n := range found {
		out = append(out, AvailableNumber{
			Number:       deref(n.PhoneNumber),
			FriendlyName: deref(n.FriendlyName),
			Locality:     deref(n.Locality),
			Region:       deref(n.Region),
			PostalCode:   deref(n.PostalCode),
		})
	}
	return out, nil
}

func (p *TwilioProvider) BuyNumber(ctx context.Context, req BuyNumberRequest) (BuyNumberResult, error) {
	if err := ctx.Err(); err != nil {
		return BuyNumberResult{}, err
	}
	if req.Number == "" || req.VoiceURL == "" {
		return BuyNumberResult{}, errors.New("telephony: number and voice url are required")
	}

	params := &twilioapi.CreateIncomingPhoneNumberParams{}
	params.SetPhoneNumber(req.Number)
	params.SetVoiceUrl(req.VoiceURL)
	params.SetVoiceMethod(webhookMethod)
	if req.StatusCallbackURL != "" {
		params.SetStatusCallback(req.StatusCallbackURL)
		params.SetStatusCallbackMethod(webhookMethod)
	}

	n, err := p.api.CreateIncomingPhoneNumber(params)
	p.metrics.ObserveProvider("buy_number", err)
	if err != nil {
		return BuyNumberResult{}, fmt.Errorf("twilio buy number: %w", err)
	}
	if n == nil || deref(n.Sid) == "" {
		return BuyNumberResult{}, errors.New("twilio buy number: empty response")
	}

	number := deref(n.PhoneNumber)
	if number == "" {
		number = req.Number
	}
	return BuyNumberResult{Number: number, ProviderSID: deref(n.Sid), FriendlyName: deref(n.FriendlyName)}, nil
}

func (p *TwilioProvider) ConfigureWebhook(ctx context.Context, providerSID, voiceURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if providerSID == "" || voiceURL == "" {
		return errors.New("telephony: provider sid and voice url are required")
	}
	params := &twilioapi.UpdateIncomingPhoneNumberParams{}
	params.SetVoiceUrl(voiceURL)
	params.SetVoiceMethod(webhookMethod)

	_, err := p.api.UpdateIncomingPhoneNumber(providerSID, params)
	p.metrics.ObserveProvider("configure_webhook", err)
	if err != nil {
		return fmt.Errorf("twilio configure webhook: %w", err)
	}
	return nil
}

func (p *TwilioProvider) ReleaseNumber(ctx context.Context, providerSID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if providerSID == "" {
		return errors.New("telephony: provider sid is required")
	}
	err := p.api.DeleteIncomingPhoneNumber(providerSID, &twilioapi.DeleteIncomingPhoneNumberParams{})
	p.metrics.ObserveProvider("release_number", err)
	if err != nil {
		return fmt.Errorf("twilio release number: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
