package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/munilab/ai-gateway/internal/config"
	"github.com/munilab/ai-gateway/internal/gateway"
	"github.com/munilab/ai-gateway/internal/identity"
	"github.com/munilab/ai-gateway/internal/monitoring"
	"github.com/munilab/ai-gateway/internal/notify"
	"github.com/munilab/ai-gateway/internal/provider"
	"github.com/munilab/ai-gateway/internal/quota"
	"github.com/munilab/ai-gateway/internal/store"
	"github.com/munilab/ai-gateway/internal/tier"
	"github.com/munilab/ai-gateway/internal/tokens"
	"github.com/munilab/ai-gateway/internal/usage"
)

// app is a fully wired gateway plus everything that must be released on
// shutdown, in reverse order of creation.
type app struct {
	gw      *gateway.Gateway
	store   *store.Store
	closers []func(ctx context.Context) error
}

func (a *app) onClose(f func(ctx context.Context) error) {
	a.closers = append(a.closers, f)
}

// close releases resources. Errors are logged, not returned.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.Warn().Err(err).Msg("shutdown step failed")
		}
	}
	a.closers = nil
}

// buildApp wires every component from cfg. cfg must already be valid. On
// failure everything opened so far is released.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	gw, err := a.wire(ctx, cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	a.gw = gw
	return a, nil
}

func (a *app) wire(ctx context.Context, cfg *config.Config) (*gateway.Gateway, error) {
	metrics := monitoring.NewMetricsCollector()
	var checks []gateway.HealthCheck

	// ===== STORAGE =====
	if cfg.HasSQLStorage() {
		st, err := store.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		a.store = st
		a.onClose(func(context.Context) error { return st.Close() })
		if err := st.Migrate(ctx); err != nil {
			return nil, err
		}
		checks = append(checks, gateway.HealthCheck{Name: "storage", Check: st.Ping})
	}

	// ===== QUOTA =====
	var counters quota.Store
	switch cfg.Quota.Backend {
	case "sql":
		if a.store == nil {
			return nil, fmt.Errorf("quota backend sql: %w", errNoStorage)
		}
		counters = a.store
		purgeCtx, cancel := context.WithCancel(context.Background())
		go purgeLoop(purgeCtx, a.store, config.DefaultCleanupInterval)
		a.onClose(func(context.Context) error { cancel(); return nil })
	case "redis":
		rs, err := quota.NewRedisStoreFromURL(cfg.Quota.RedisURL)
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return rs.Close() })
		if err := rs.Ping(ctx); err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		counters = rs
		checks = append(checks, gateway.HealthCheck{Name: "quota", Check: rs.Ping})
	default:
		ms := quota.NewMemoryStore()
		a.onClose(func(context.Context) error { ms.Stop(); return nil })
		counters = ms
	}
	controller := quota.NewController(quota.NewPolicy(cfg.Quota.Limits), counters)

	// ===== IDENTITY AND TIERS =====
	var auth identity.Authenticator
	if cfg.Auth.JWTSecret != "" {
		auth = identity.NewJWTAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
	} else {
		log.Warn().Msg("auth.jwt_secret not set, every caller is treated as anonymous")
	}

	var tiers tier.Resolver
	if a.store != nil {
		tiers = tier.NewChain(tier.RoleStrategy{Roles: a.store}, tier.ProfileStrategy{Profiles: a.store})
	} else {
		dir := tier.NewStaticDirectory(cfg.Directory.Roles, cfg.Directory.Profiles)
		tiers = tier.NewChain(tier.RoleStrategy{Roles: dir}, tier.ProfileStrategy{Profiles: dir})
	}

	// ===== USAGE =====
	var recorder usage.Recorder = usage.NewMemoryRecorder()
	if a.store != nil {
		recorder = a.store
	}

	// ===== NOTIFICATIONS =====
	var notifier *notify.Notifier
	if cfg.Notify.Enabled {
		sender, err := newSender(ctx, cfg.Notify)
		if err != nil {
			return nil, err
		}
		d := notify.NewDispatcher(sender, notify.DispatcherConfig{
			Workers:   cfg.Notify.Workers,
			QueueSize: cfg.Notify.QueueSize,
			Timeout:   cfg.Notify.Timeout,
		}, metrics)
		a.onClose(d.Close)
		notifier = notify.NewNotifier(d)
	}

	// ===== PROVIDER =====
	deps := gateway.Deps{
		Config:   cfg,
		Identity: identity.NewResolver(auth),
		Tiers:    tiers,
		Quota:    controller,
		Usage:    usage.NewService(recorder),
		Notifier: notifier,
		Tokens:   tokens.New(cfg.Tokens),
		Metrics:  metrics,
		Checks:   checks,
	}
	client, err := provider.NewClient(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}
	deps.Provider = client

	// ===== TELEMETRY =====
	tracker, err := monitoring.NewTracker(monitoring.TelemetryConfig{
		Enabled:     cfg.Monitoring.TelemetryEnabled,
		LogPath:     cfg.Monitoring.TelemetryPath,
		LogToStdout: cfg.Monitoring.LogToStdout,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	deps.Tracker = tracker

	return gateway.New(deps)
}

// newSender builds the configured notification sender.
func newSender(ctx context.Context, cfg config.NotifyConfig) (notify.Sender, error) {
	switch cfg.Sender {
	case "webhook":
		return notify.NewWebhookSender(cfg.WebhookURL, &http.Client{Timeout: cfg.Timeout}), nil
	case "ses":
		s, err := notify.NewSESSender(ctx, cfg.SES)
		if err != nil {
			return nil, fmt.Errorf("ses sender: %w", err)
		}
		return s, nil
	default:
		return notify.LogSender{}, nil
	}
}

// purgeLoop deletes SQL counters older than the quota key TTL.
func purgeLoop(ctx context.Context, st *store.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purgeOldCounters(ctx, st, time.Now())
		}
	}
}

func purgeOldCounters(ctx context.Context, st *store.Store, now time.Time) {
	cutoff := quota.Day(now.Add(-config.DefaultQuotaKeyTTL))
	n, err := st.PurgeRateLimitsBefore(ctx, cutoff)
	if err != nil {
		log.Warn().Err(err).Msg("failed to purge old quota counters")
		return
	}
	if n > 0 {
		log.Debug().Int64("rows", n).Str("before", cutoff).Msg("purged old quota counters")
	}
}
