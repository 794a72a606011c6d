// Package config loads and validates the gateway configuration.
//
// DESIGN: One YAML file, expanded with ${VAR:-default} references before
// parsing, layered over Default(). Validate() is the single place that
// decides whether the process may start. A missing provider credential is
// a startup failure, never a per-request surprise.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Provider   ProviderConfig   `yaml:"provider"`
	Auth       AuthConfig       `yaml:"auth"`
	Quota      QuotaConfig      `yaml:"quota"`
	Storage    StorageConfig    `yaml:"storage"`
	Directory  DirectoryConfig  `yaml:"directory"`
	Notify     NotifyConfig     `yaml:"notify"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Tokens     TokensConfig     `yaml:"tokens"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// IPRateLimit is requests per second per client IP. Zero disables it.
	IPRateLimit float64 `yaml:"ip_rate_limit"`
	IPRateBurst int     `yaml:"ip_rate_burst"`
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxy bool `yaml:"trust_proxy"`
}

// ProviderConfig describes the OpenAI-compatible chat completion upstream.
type ProviderConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	// Timeout of zero means the gateway imposes none.
	Timeout time.Duration `yaml:"timeout"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	// JWTSecret is the HS256 signing secret. Empty means every bearer token
	// is treated as invalid and callers fall back to session identities.
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
}

// QuotaConfig selects the counter backend and per-tier daily limits.
type QuotaConfig struct {
	// Backend is one of memory, sql, redis.
	Backend  string     `yaml:"backend"`
	RedisURL string     `yaml:"redis_url"`
	Limits   TierLimits `yaml:"limits"`
}

// TierLimits holds daily call limits. Admin is always unlimited.
type TierLimits struct {
	Staff     int `yaml:"staff"`
	Citizen   int `yaml:"citizen"`
	Anonymous int `yaml:"anonymous"`
}

// StorageConfig selects the relational store.
type StorageConfig struct {
	// Driver is one of sqlite, postgres, none.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// DirectoryConfig seeds role and profile lookups when no relational store
// is configured.
type DirectoryConfig struct {
	Roles    map[string][]string `yaml:"roles"`    // user id -> roles
	Profiles map[string]string   `yaml:"profiles"` // email -> user type
}

// NotifyConfig controls threshold warnings.
type NotifyConfig struct {
	Enabled bool `yaml:"enabled"`
	// Sender is one of log, webhook, ses.
	Sender     string        `yaml:"sender"`
	WebhookURL string        `yaml:"webhook_url"`
	Workers    int           `yaml:"workers"`
	QueueSize  int           `yaml:"queue_size"`
	Timeout    time.Duration `yaml:"timeout"`
	SES        SESConfig     `yaml:"ses"`
}

// SESConfig configures the Amazon SES email sender.
type SESConfig struct {
	Region string `yaml:"region"`
	From   string `yaml:"from"`
}

// MonitoringConfig controls logging and telemetry.
type MonitoringConfig struct {
	LogLevel         string `yaml:"log_level"`
	LogFormat        string `yaml:"log_format"`
	LogOutput        string `yaml:"log_output"`
	TelemetryEnabled bool   `yaml:"telemetry_enabled"`
	TelemetryPath    string `yaml:"telemetry_path"`
	LogToStdout      bool   `yaml:"log_to_stdout"`
}

// TokensConfig selects how usage records estimate token counts.
type TokensConfig struct {
	// Estimator is chars or tiktoken.
	Estimator string `yaml:"estimator"`
	Encoding  string `yaml:"encoding"`
}

// Default returns a configuration that runs locally with in-memory state.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         DefaultPort,
			ReadTimeout:  DefaultServerReadTimeout,
			WriteTimeout: DefaultServerWriteTimeout,
			IPRateBurst:  DefaultRateLimit,
		},
		Provider: ProviderConfig{
			Endpoint: DefaultProviderEndpoint,
			Model:    DefaultProviderModel,
		},
		Quota: QuotaConfig{
			Backend: "memory",
			Limits: TierLimits{
				Staff:     DefaultStaffDailyLimit,
				Citizen:   DefaultCitizenDailyLimit,
				Anonymous: DefaultAnonymousDailyLimit,
			},
		},
		Storage: StorageConfig{Driver: "none"},
		Notify: NotifyConfig{
			Sender:    "log",
			Workers:   DefaultNotifyWorkers,
			QueueSize: DefaultNotifyQueueSize,
			Timeout:   DefaultNotifyTimeout,
		},
		Monitoring: MonitoringConfig{
			LogLevel:  "info",
			LogFormat: "auto",
			LogOutput: "stdout",
		},
		Tokens: TokensConfig{
			Estimator: "chars",
			Encoding:  DefaultTokenEncoding,
		},
	}
}

// Load reads path, expands env references and layers it over Default().
func Load(path string) (*Config, error) {
	// #nosec G304 -- path is an operator-supplied CLI flag
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes over Default(). It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	expanded := ExpandEnvWithDefaults(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem that must stop the process from starting.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Provider.APIKey) == "" {
		errs = append(errs, errors.New("provider.api_key is required"))
	}
	if strings.TrimSpace(c.Provider.Endpoint) == "" {
		errs = append(errs, errors.New("provider.endpoint is required"))
	}
	if c.Provider.Timeout < 0 {
		errs = append(errs, errors.New("provider.timeout must not be negative"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	l := c.Quota.Limits
	if l.Staff < 0 || l.Citizen < 0 || l.Anonymous < 0 {
		errs = append(errs, errors.New("quota.limits must not be negative"))
	}

	switch c.Storage.Driver {
	case "none", "":
	case "sqlite", "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required for driver %q", c.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}

	switch c.Quota.Backend {
	case "memory":
	case "sql":
		if !c.HasSQLStorage() {
			errs = append(errs, errors.New("quota.backend sql requires storage.driver sqlite or postgres"))
		}
	case "redis":
		if c.Quota.RedisURL == "" {
			errs = append(errs, errors.New("quota.redis_url is required for backend redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown quota.backend %q", c.Quota.Backend))
	}

	if c.Notify.Enabled {
		switch c.Notify.Sender {
		case "log":
		case "webhook":
			if c.Notify.WebhookURL == "" {
				errs = append(errs, errors.New("notify.webhook_url is required for sender webhook"))
			}
		case "ses":
			if c.Notify.SES.From == "" {
				errs = append(errs, errors.New("notify.ses.from is required for sender ses"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown notify.sender %q", c.Notify.Sender))
		}
	}

	switch c.Tokens.Estimator {
	case "chars", "tiktoken":
	default:
		errs = append(errs, fmt.Errorf("unknown tokens.estimator %q", c.Tokens.Estimator))
	}

	return errors.Join(errs...)
}

// HasSQLStorage reports whether a relational store is configured.
func (c *Config) HasSQLStorage() bool {
	return c.Storage.Driver == "sqlite" || c.Storage.Driver == "postgres"
}
