package telephony

import "context"

// Provider is the provider-agnostic number management surface used by
// business logic. No provider SDK calls happen outside the adapters.
type Provider interface {
	Name() string
	HealthCheck(ctx context.Context) error

	SearchNumbers(ctx context.Context, q SearchQuery) ([]AvailableNumber, error)
	BuyNumber(ctx context.Context, req BuyNumberRequest) (BuyNumberResult, error)
	// ConfigureWebhook points an owned number's voice webhook at voiceURL.
	ConfigureWebhook(ctx context.Context, providerSID, voiceURL string) error
	ReleaseNumber(ctx context.Context, providerSID string) error
}

type SearchQuery struct {
	CountryISO2 string
	// AreaCode is the national area code without the trunk prefix, e.g. "20".
	AreaCode string
	Limit    int
}

type AvailableNumber struct {
	Number       string `json:"phone_number"`
	FriendlyName string `json:"friendly_name"`
	Locality     string `json:"locality,omitempty"`
	Region       string `json:"region,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
}

type BuyNumberRequest struct {
	TenantID string
	// Number is the E.164 number to lease.
	Number string
	// VoiceURL receives call-setup webhooks for the number.
	VoiceURL string
	// StatusCallbackURL receives call status updates. Optional.
	StatusCallbackURL string
}

type BuyNumberResult struct {
	Number       string
	ProviderSID  string
	FriendlyName string
}
