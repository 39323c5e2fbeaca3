package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"voice-receptionist/internal/agents"
	"voice-receptionist/internal/audit"
	"voice-receptionist/internal/auth"
	"voice-receptionist/internal/calls"
	"voice-receptionist/internal/config"
	"voice-receptionist/internal/httpapi"
	"voice-receptionist/internal/metrics"
	"voice-receptionist/internal/numbers"
	"voice-receptionist/internal/reporting"
	"voice-receptionist/internal/routing"
	"voice-receptionist/internal/telephony"
	"voice-receptionist/internal/tenants"
	"voice-receptionist/internal/voice"
	"voice-receptionist/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app is the fully wired process: HTTP handlers plus what the operational
// routes need.
type app struct {
	auth    *auth.Manager
	api     httpapi.Handlers
	webhook telephony.WebhookHandler
	metrics *metrics.Metrics
	health  map[string]httpapi.HealthCheck
	twilio  config.TwilioConfig
	baseURL string
}

func buildApp(cfg config.Config, db *sql.DB, rdb *redis.Client, log *zap.Logger) (*app, error) {
	m := metrics.New()

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	bridge, err := voice.NewBridge(cfg.Voice)
	if err != nil {
		return nil, err
	}
	provider, err := telephony.NewTwilioProvider(cfg.Twilio, m)
	if err != nil {
		return nil, err
	}

	auditSvc := audit.NewService(audit.NewPostgresRepo(db), log.Named("audit"))
	callRepo := calls.NewPostgresRepo(db)
	agentRepo := agents.NewPostgresRepo(db)
	agentSvc := agents.NewService(agentRepo, auditSvc, log.Named("agents"))

	numberSvc := numbers.NewService(
		numbers.NewPostgresRepo(db),
		provider,
		agentRepo,
		numbers.NewRedisLock(rdb, 0, log),
		auditSvc,
		log.Named("numbers"),
		numbers.Options{
			CountryISO2:       cfg.Twilio.CountryCode,
			VoiceURL:          cfg.Twilio.VoiceURL,
			StatusCallbackURL: cfg.Twilio.StatusCallbackURL,
		},
	)

	return &app{
		auth: authManager,
		api: httpapi.Handlers{
			Auth:      authManager,
			Tenants:   tenants.NewService(tenants.NewPostgresRepo(db)),
			Agents:    agentSvc,
			Numbers:   numberSvc,
			Calls:     calls.NewService(callRepo),
			Reporting: reporting.NewService(callRepo, agentRepo, reporting.NewRedisCache(rdb), cfg.Analytics.CacheTTL, log.Named("reporting")),
		},
		webhook: telephony.WebhookHandler{
			Router:  routing.NewRouter(routing.NewPostgresStore(db), callRepo, bridge, log.Named("routing")),
			Calls:   calls.NewService(callRepo),
			Metrics: m,
			Timeout: cfg.Webhook.Timeout,
		},
		metrics: m,
		health: map[string]httpapi.HealthCheck{
			"postgres": func(ctx context.Context) error { return utils.HealthCheck(ctx, db, 2*time.Second) },
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			"twilio":   provider.HealthCheck,
		},
		twilio:  cfg.Twilio,
		baseURL: cfg.WebhookBaseURL(),
	}, nil
}
