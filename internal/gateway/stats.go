// Package gateway - stats.go exposes health and aggregated metrics as JSON.
//
// GET /health probes configured dependencies. GET /stats returns the
// operational counters and is restricted to loopback callers.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// healthCheckTimeout bounds all dependency probes together.
const healthCheckTimeout = 2 * time.Second

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status             string            `json:"status"`
	Time               string            `json:"time"`
	Uptime             string            `json:"uptime"`
	ProviderConfigured bool              `json:"provider_configured"`
	Checks             map[string]string `json:"checks,omitempty"`
}

// handleHealth returns gateway health status.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:             "ok",
		Time:               time.Now().UTC().Format(time.RFC3339),
		Uptime:             g.uptime().String(),
		ProviderConfigured: g.provider != nil,
	}

	if len(g.checks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp.Checks = make(map[string]string, len(g.checks))
		for _, c := range g.checks {
			if err := c.Check(ctx); err != nil {
				log.Warn().Err(err).Str("check", c.Name).Msg("health check failed")
				resp.Checks[c.Name] = "error"
				resp.Status = "degraded"
				continue
			}
			resp.Checks[c.Name] = "ok"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleStats returns aggregated metrics as JSON.
// Restricted to localhost to prevent external access to operational metrics.
func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r.RemoteAddr) {
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "forbidden"})
		return
	}
	writeJSON(w, http.StatusOK, g.metrics.FullStats())
}
