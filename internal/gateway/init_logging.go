// Package gateway - init_logging.go records the startup configuration.
package gateway

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/munilab/ai-gateway/internal/config"
	"github.com/munilab/ai-gateway/internal/monitoring"
	"github.com/munilab/ai-gateway/internal/quota"
	"github.com/munilab/ai-gateway/internal/utils"
)

// BuildInitEvent summarizes cfg without secrets.
func BuildInitEvent(cfg *config.Config, policy quota.Policy) *monitoring.InitEvent {
	ev := &monitoring.InitEvent{
		Timestamp:        time.Now().UTC(),
		Event:            "gateway_init",
		ServerPort:       cfg.Server.Port,
		ProviderEndpoint: cfg.Provider.Endpoint,
		ProviderModel:    cfg.Provider.Model,
		HasProviderKey:   cfg.Provider.APIKey != "",
		QuotaBackend:     cfg.Quota.Backend,
		StorageDriver:    cfg.Storage.Driver,
		JWTEnabled:       cfg.Auth.JWTSecret != "",
		Limits:           policy.Limits(),
	}
	if cfg.Notify.Enabled {
		ev.NotifySender = cfg.Notify.Sender
	}
	return ev
}

// LogInit writes the startup summary to the log and the telemetry tracker.
func (g *Gateway) LogInit() {
	ev := BuildInitEvent(g.cfg, g.quota.Policy())
	log.Info().
		Int("port", ev.ServerPort).
		Str("provider", ev.ProviderEndpoint).
		Str("model", ev.ProviderModel).
		Str("provider_key", utils.MaskKey(g.cfg.Provider.APIKey)).
		Str("quota_backend", ev.QuotaBackend).
		Str("storage", ev.StorageDriver).
		Str("notify", ev.NotifySender).
		Bool("jwt", ev.JWTEnabled).
		Interface("limits", ev.Limits).
		Msg("gateway initialized")
	g.tracker.RecordInit(ev)
}
