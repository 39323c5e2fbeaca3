package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process.
// No business logic should depend on raw environment variables.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Twilio    TwilioConfig
	Voice     VoiceConfig
	Webhook   WebhookConfig
	Analytics AnalyticsConfig
}

type AppConfig struct {
	Env      string
	Port     int
	LogLevel string
	// PublicBaseURL is the externally reachable origin, used to build webhook URLs.
	PublicBaseURL string
}

type DBConfig struct {
	// URL takes precedence over the discrete fields when set.
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode      string
	MaxOpenConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	// CountryCode is the ISO country used for number search.
	CountryCode string
	// VoiceURL is pushed to purchased numbers; it must match the URL Twilio
	// signs requests against.
	VoiceURL string
	// StatusCallbackURL receives call completion callbacks.
	StatusCallbackURL  string
	ValidateSignatures bool
}

type VoiceConfig struct {
	Endpoint    string
	APIKey      string
	AssistantID string
}

type WebhookConfig struct {
	Timeout time.Duration
}

type AnalyticsConfig struct {
	CacheTTL time.Duration
}

const (
	defaultVoiceEndpoint   = "wss://api.vapi.ai/call"
	defaultWebhookTimeout  = 4 * time.Second
	defaultAnalyticsTTL    = time.Minute
	defaultTwilioCountry   = "GB"
	voiceWebhookPath       = "/webhooks/twilio/voice"
	statusWebhookPath      = "/webhooks/twilio/status"
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real env vars win over it.
func Load() (Config, error) {
	_ = godotenv.Load()

	c := Config{}
	var parseErrs []error
	intVar := func(key string, def int) int {
		n, err := optionalInt(key, def)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		return n
	}
	durVar := func(key string) time.Duration {
		d, err := optionalDuration(key)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		return d
	}

	c.App.Env = env("APP_ENV")
	c.App.Port = intVar("APP_PORT", 8080)
	c.App.LogLevel = env("LOG_LEVEL")
	c.App.PublicBaseURL = strings.TrimRight(env("PUBLIC_BASE_URL"), "/")

	c.DB.URL = env("DATABASE_URL")
	c.DB.Host = env("DB_HOST")
	c.DB.Port = intVar("DB_PORT", 5432)
	c.DB.User = env("DB_USER")
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = env("DB_NAME")
	c.DB.SSLMode = env("DB_SSLMODE")
	c.DB.MaxOpenConns = intVar("DB_MAX_OPEN_CONNS", 0)

	c.Redis.Addr = env("REDIS_ADDR")
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	c.Redis.DB = intVar("REDIS_DB", 0)

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = env("JWT_ISSUER")
	c.Auth.JWTAudience = env("JWT_AUDIENCE")
	c.Auth.AccessTokenTTL = durVar("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = durVar("JWT_REFRESH_TTL")

	c.Twilio.AccountSID = env("TWILIO_ACCOUNT_SID")
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Twilio.CountryCode = env("TWILIO_COUNTRY_CODE")
	c.Twilio.VoiceURL = env("TWILIO_VOICE_URL")
	c.Twilio.StatusCallbackURL = env("TWILIO_STATUS_CALLBACK_URL")
	c.Twilio.ValidateSignatures = env("TWILIO_VALIDATE_SIGNATURES") != "false"

	c.Voice.Endpoint = env("VOICE_AI_ENDPOINT")
	c.Voice.APIKey = os.Getenv("VOICE_AI_API_KEY")
	c.Voice.AssistantID = env("VOICE_AI_ASSISTANT_ID")

	c.Webhook.Timeout = durVar("WEBHOOK_TIMEOUT")
	c.Analytics.CacheTTL = durVar("ANALYTICS_CACHE_TTL")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate applies defaults and reports every missing or invalid setting in
// one error.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.URL == "" {
		if c.DB.Host == "" {
			errs = append(errs, errors.New("DATABASE_URL or DB_HOST is required"))
		}
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required"))
		}
		if c.DB.SSLMode == "" {
			if c.IsProduction() {
				errs = append(errs, errors.New("DB_SSLMODE is required in production"))
			} else {
				c.DB.SSLMode = "disable"
			}
		}
		if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	}

	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required"))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if c.IsProduction() && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes in production"))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = defaultAccessTokenTTL
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = defaultRefreshTokenTTL
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.Twilio.AccountSID == "" {
		errs = append(errs, errors.New("TWILIO_ACCOUNT_SID is required"))
	}
	if c.Twilio.AuthToken == "" {
		errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required"))
	}
	if c.Twilio.CountryCode == "" {
		c.Twilio.CountryCode = defaultTwilioCountry
	}
	if c.Twilio.VoiceURL == "" && c.App.PublicBaseURL != "" {
		c.Twilio.VoiceURL = c.App.PublicBaseURL + voiceWebhookPath
	}
	if c.Twilio.VoiceURL == "" {
		errs = append(errs, errors.New("TWILIO_VOICE_URL or PUBLIC_BASE_URL is required"))
	} else if !isAbsoluteURL(c.Twilio.VoiceURL, "http", "https") {
		errs = append(errs, fmt.Errorf("TWILIO_VOICE_URL must be an absolute http(s) URL, got %q", c.Twilio.VoiceURL))
	}
	if c.Twilio.StatusCallbackURL == "" {
		if base := c.WebhookBaseURL(); base != "" {
			c.Twilio.StatusCallbackURL = base + statusWebhookPath
		}
	}
	if c.Twilio.StatusCallbackURL != "" && !isAbsoluteURL(c.Twilio.StatusCallbackURL, "http", "https") {
		errs = append(errs, fmt.Errorf("TWILIO_STATUS_CALLBACK_URL must be an absolute http(s) URL, got %q", c.Twilio.StatusCallbackURL))
	}
	if c.IsProduction() && !c.Twilio.ValidateSignatures {
		errs = append(errs, errors.New("TWILIO_VALIDATE_SIGNATURES cannot be disabled in production"))
	}

	if c.Voice.Endpoint == "" {
		c.Voice.Endpoint = defaultVoiceEndpoint
	}
	if !isAbsoluteURL(c.Voice.Endpoint, "ws", "wss") {
		errs = append(errs, fmt.Errorf("VOICE_AI_ENDPOINT must be an absolute ws(s) URL, got %q", c.Voice.Endpoint))
	}
	if c.Voice.APIKey == "" {
		errs = append(errs, errors.New("VOICE_AI_API_KEY is required"))
	}

	if c.Webhook.Timeout <= 0 {
		c.Webhook.Timeout = defaultWebhookTimeout
	}
	if c.Analytics.CacheTTL <= 0 {
		c.Analytics.CacheTTL = defaultAnalyticsTTL
	}

	return joinErrors(errs)
}

// WebhookBaseURL is the origin Twilio signs webhook requests against:
// PUBLIC_BASE_URL when set, otherwise the origin of the voice URL.
func (c Config) WebhookBaseURL() string {
	if c.App.PublicBaseURL != "" {
		return c.App.PublicBaseURL
	}
	u, err := url.Parse(c.Twilio.VoiceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// PostgresDSN must not be logged; it contains secrets.
func (c Config) PostgresDSN() string {
	if c.DB.URL != "" {
		return c.DB.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func optionalInt(key string, def int) (int, error) {
	v := env(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalDuration(key string) (time.Duration, error) {
	v := env(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration, got %q", key, v)
	}
	return d, nil
}

func isAbsoluteURL(raw string, schemes ...string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return true
		}
	}
	return false
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
