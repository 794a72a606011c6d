// Package gateway is the single HTTP boundary in front of the AI provider.
//
// DESIGN: Every AI call from the platform goes through POST /invoke-llm:
//   - identity:  bearer token or session, never fails (identity/)
//   - tier:      admin, staff, citizen or anonymous (tier/)
//   - admission: atomic per-day check-and-increment (quota/)
//   - usage:     best-effort record after admission (usage/)
//   - warning:   one-time threshold notification, detached (notify/)
//   - provider:  single synchronous chat completion (provider/)
//
// Also serves /health and the loopback-only /stats.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/munilab/ai-gateway/internal/config"
	"github.com/munilab/ai-gateway/internal/identity"
	"github.com/munilab/ai-gateway/internal/monitoring"
	"github.com/munilab/ai-gateway/internal/notify"
	"github.com/munilab/ai-gateway/internal/provider"
	"github.com/munilab/ai-gateway/internal/quota"
	"github.com/munilab/ai-gateway/internal/tier"
	"github.com/munilab/ai-gateway/internal/tokens"
	"github.com/munilab/ai-gateway/internal/usage"
)

// Completer sends a chat request to the provider.
type Completer interface {
	Complete(ctx context.Context, req provider.ChatRequest) ([]byte, error)
	Builder() provider.StructuredRequestBuilder
	Model() string
}

// HealthCheck is one dependency probed by /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the collaborators a Gateway needs. Config, Tiers and Quota are
// required. A nil Provider means the provider is not configured and every
// admitted call fails with ProviderNotConfigured.
type Deps struct {
	Config   *config.Config
	Identity *identity.Resolver
	Tiers    tier.Resolver
	Quota    *quota.Controller
	Usage    *usage.Service
	Notifier *notify.Notifier
	Provider Completer
	Tokens   tokens.Estimator
	Metrics  *monitoring.MetricsCollector
	Tracker  *monitoring.Tracker
	Checks   []HealthCheck
}

// Gateway serves the AI endpoint.
type Gateway struct {
	cfg      *config.Config
	identity *identity.Resolver
	tiers    tier.Resolver
	quota    *quota.Controller
	usage    *usage.Service
	notifier *notify.Notifier
	provider Completer
	tokens   tokens.Estimator
	metrics  *monitoring.MetricsCollector
	tracker  *monitoring.Tracker
	checks   []HealthCheck

	ipLimiter *ipRateLimiter
	router    chi.Router
	server    *http.Server
}

// New creates a gateway and its router.
func New(d Deps) (*Gateway, error) {
	if d.Config == nil || d.Tiers == nil || d.Quota == nil {
		return nil, errors.New("gateway: config, tier resolver and quota controller are required")
	}

	g := &Gateway{
		cfg:      d.Config,
		identity: d.Identity,
		tiers:    d.Tiers,
		quota:    d.Quota,
		usage:    d.Usage,
		notifier: d.Notifier,
		provider: d.Provider,
		tokens:   d.Tokens,
		metrics:  d.Metrics,
		tracker:  d.Tracker,
		checks:   d.Checks,
	}
	if g.identity == nil {
		g.identity = identity.NewResolver(nil)
	}
	if g.usage == nil {
		g.usage = usage.NewService(usage.NewMemoryRecorder())
	}
	if g.tokens == nil {
		g.tokens = tokens.CharEstimator{}
	}
	if g.metrics == nil {
		g.metrics = monitoring.NewMetricsCollector()
	}
	g.ipLimiter = newIPRateLimiter(d.Config.Server.IPRateLimit, d.Config.Server.IPRateBurst)

	g.router = g.routes()
	g.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", d.Config.Server.Port),
		Handler:           g.router,
		ReadHeaderTimeout: d.Config.Server.ReadTimeout,
		ReadTimeout:       d.Config.Server.ReadTimeout,
		WriteTimeout:      d.Config.Server.WriteTimeout,
	}
	return g, nil
}

func (g *Gateway) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if g.cfg.Server.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(g.recoverer)
	r.Use(accessLog)
	r.Use(cors)

	r.Get("/health", g.handleHealth)
	r.Get("/stats", g.handleStats)
	r.With(g.ipLimit).Post("/"+EndpointName, g.handleInvoke)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
	})
	return r
}

// Handler returns the HTTP handler, e.g. for httptest.
func (g *Gateway) Handler() http.Handler { return g.router }

// Metrics returns the gateway's metrics collector.
func (g *Gateway) Metrics() *monitoring.MetricsCollector { return g.metrics }

// Start listens until Shutdown is called.
func (g *Gateway) Start() error {
	log.Info().Str("addr", g.server.Addr).Msg("gateway listening")
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops background work.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.ipLimiter.Stop()
	return g.server.Shutdown(ctx)
}

// uptime is used by /health.
func (g *Gateway) uptime() time.Duration {
	return time.Since(g.metrics.StartedAt()).Truncate(time.Second)
}
