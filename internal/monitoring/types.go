// Package monitoring - types.go defines shared types.
//
// DESIGN: Event and config types used by both gateway/ and monitoring/.
// Defined here once to avoid import cycles.
package monitoring

import "time"

// =============================================================================
// EVENT TYPES - Structured data for telemetry recording
// =============================================================================

// Outcome classifies how a gateway call ended.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeQuotaExceeded Outcome = "quota_exceeded"
	OutcomeUpstreamError Outcome = "upstream_error"
	OutcomeInternalError Outcome = "internal_error"
	OutcomeIPThrottled   Outcome = "ip_throttled"
)

// RequestEvent captures one call through the gateway.
type RequestEvent struct {
	RequestID        string    `json:"request_id"`
	Timestamp        time.Time `json:"timestamp"`
	Endpoint         string    `json:"endpoint"`
	ClientIP         string    `json:"client_ip"`
	IdentityKind     string    `json:"identity_kind"` // user, session
	Tier             string    `json:"tier"`
	DailyLimit       int       `json:"daily_limit"`
	Used             int       `json:"used"`
	Structured       bool      `json:"structured"`
	MessageCount     int       `json:"message_count"`
	Model            string    `json:"model,omitempty"`
	StatusCode       int       `json:"status_code"`
	UpstreamStatus   int       `json:"upstream_status,omitempty"`
	Outcome          Outcome   `json:"outcome"`
	ErrorKind        string    `json:"error_kind,omitempty"`
	EstimatedTokens  int       `json:"estimated_tokens"`
	TotalTokens      int       `json:"total_tokens,omitempty"`
	ForwardLatencyMs int64     `json:"forward_latency_ms"`
	TotalLatencyMs   int64     `json:"total_latency_ms"`
}

// InitEvent captures gateway startup configuration without secrets.
type InitEvent struct {
	Timestamp        time.Time      `json:"timestamp"`
	Event            string         `json:"event"`
	ServerPort       int            `json:"server_port"`
	ProviderEndpoint string         `json:"provider_endpoint"`
	ProviderModel    string         `json:"provider_model"`
	HasProviderKey   bool           `json:"has_provider_key"`
	QuotaBackend     string         `json:"quota_backend"`
	StorageDriver    string         `json:"storage_driver"`
	NotifySender     string         `json:"notify_sender,omitempty"`
	JWTEnabled       bool           `json:"jwt_enabled"`
	Limits           map[string]int `json:"limits"`
}

// =============================================================================
// CONFIG TYPES
// =============================================================================

// TelemetryConfig contains telemetry configuration.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	LogPath     string `yaml:"log_path"`
	LogToStdout bool   `yaml:"log_to_stdout"`
}

// LoggerConfig contains logging configuration.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console, auto
	Output string `yaml:"output"` // stdout, stderr, or file path
}
