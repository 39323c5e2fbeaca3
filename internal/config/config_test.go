package config

import (
	"strings"
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:    AppConfig{Env: "local", Port: 8080, PublicBaseURL: "https://voice.example.co.uk"},
		DB:     DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "receptionist"},
		Redis:  RedisConfig{Addr: "localhost:6379"},
		Auth:   AuthConfig{JWTSecret: "secret"},
		Twilio: TwilioConfig{AccountSID: "AC123", AuthToken: "token", ValidateSignatures: true},
		Voice:  VoiceConfig{APIKey: "vk_test"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"APP_ENV", "REDIS_ADDR", "JWT_SECRET", "TWILIO_ACCOUNT_SID", "VOICE_AI_API_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %q", want, err.Error())
		}
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.Auth.JWTSecret = strings.Repeat("s", 32)
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "DB_SSLMODE") {
		t.Fatalf("expected DB_SSLMODE error, got %v", err)
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Twilio.VoiceURL != "https://voice.example.co.uk/webhooks/twilio/voice" {
		t.Fatalf("unexpected derived voice url %q", c.Twilio.VoiceURL)
	}
	if c.Twilio.StatusCallbackURL != "https://voice.example.co.uk/webhooks/twilio/status" {
		t.Fatalf("unexpected derived status url %q", c.Twilio.StatusCallbackURL)
	}
	if c.Twilio.CountryCode != "GB" {
		t.Fatalf("expected GB default, got %q", c.Twilio.CountryCode)
	}
	if c.Voice.Endpoint != defaultVoiceEndpoint {
		t.Fatalf("expected default voice endpoint, got %q", c.Voice.Endpoint)
	}
	if c.Webhook.Timeout != 4*time.Second || c.Analytics.CacheTTL != time.Minute {
		t.Fatalf("unexpected defaults: webhook=%s analytics=%s", c.Webhook.Timeout, c.Analytics.CacheTTL)
	}
}

func TestValidate_DatabaseURLSkipsDiscreteFields(t *testing.T) {
	c := validLocal()
	c.DB = DBConfig{URL: "postgres://u:p@db:5432/receptionist"}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.PostgresDSN() != c.DB.URL {
		t.Fatalf("expected DATABASE_URL to be used verbatim")
	}
}

func TestValidate_RejectsNonWebsocketVoiceEndpoint(t *testing.T) {
	c := validLocal()
	c.Voice.Endpoint = "https://api.vapi.ai"
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "VOICE_AI_ENDPOINT") {
		t.Fatalf("expected voice endpoint error, got %v", err)
	}
}

func TestValidate_ProductionKeepsSignatureChecks(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.DB.SSLMode = "require"
	c.Auth.JWTSecret = strings.Repeat("s", 32)
	c.Twilio.ValidateSignatures = false
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "TWILIO_VALIDATE_SIGNATURES") {
		t.Fatalf("expected signature error, got %v", err)
	}
}

func TestLoad_ParsesEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/receptionist")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("TWILIO_VOICE_URL", "https://voice.example.co.uk/webhooks/twilio/voice")
	t.Setenv("VOICE_AI_API_KEY", "vk_test")
	t.Setenv("WEBHOOK_TIMEOUT", "2s")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.App.Port != 9090 || c.Webhook.Timeout != 2*time.Second {
		t.Fatalf("unexpected config: %+v", c)
	}
	if !c.Twilio.ValidateSignatures {
		t.Fatalf("signature validation should default on")
	}
}

func TestLoad_ReportsBadDuration(t *testing.T) {
	t.Setenv("WEBHOOK_TIMEOUT", "soon")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "WEBHOOK_TIMEOUT") {
		t.Fatalf("expected duration error, got %v", err)
	}
}

func TestWebhookBaseURL_FallsBackToVoiceURLOrigin(t *testing.T) {
	c := validLocal()
	c.App.PublicBaseURL = ""
	c.Twilio.VoiceURL = "https://hooks.example.co.uk/webhooks/twilio/voice?x=1"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := c.WebhookBaseURL(); got != "https://hooks.example.co.uk" {
		t.Fatalf("unexpected base url %q", got)
	}
	if c.Twilio.StatusCallbackURL != "https://hooks.example.co.uk/webhooks/twilio/status" {
		t.Fatalf("unexpected status url %q", c.Twilio.StatusCallbackURL)
	}
}
