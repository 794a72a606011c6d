// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: Values referenced from more than one package live here so that the
// gateway, stores and CLI agree on them.
package config

import "time"

// =============================================================================
// TOKEN ESTIMATION
// =============================================================================

// TokenEstimateRatio is the approximate number of characters per token.
// Used when the tiktoken estimator is disabled or fails to load.
const TokenEstimateRatio = 4

// DefaultTokenEncoding is the tiktoken encoding used for usage estimates.
const DefaultTokenEncoding = "cl100k_base"

// =============================================================================
// QUOTA DEFAULTS
// =============================================================================

// Unlimited marks a tier without a daily cap.
const Unlimited = -1

// UnlimitedRemaining is reported as "remaining" for unlimited tiers.
const UnlimitedRemaining = 999999

// DefaultStaffDailyLimit is the daily call budget for municipal staff.
const DefaultStaffDailyLimit = 200

// DefaultCitizenDailyLimit is the daily call budget for signed-in citizens.
const DefaultCitizenDailyLimit = 50

// DefaultAnonymousDailyLimit is the daily call budget per anonymous session.
const DefaultAnonymousDailyLimit = 10

// DefaultQuotaKeyTTL keeps a day's counter around long enough to cover
// every timezone before it expires.
const DefaultQuotaKeyTTL = 48 * time.Hour

// =============================================================================
// THRESHOLD NOTIFICATION
// =============================================================================

// WarnBandLow is the inclusive lower bound of the warning band.
const WarnBandLow = 0.80

// WarnBandHigh is the exclusive upper bound of the warning band.
const WarnBandHigh = 0.85

// DefaultNotifyWorkers is the number of background dispatch workers.
const DefaultNotifyWorkers = 2

// DefaultNotifyQueueSize bounds pending notifications.
const DefaultNotifyQueueSize = 256

// DefaultNotifyTimeout bounds a single dispatch attempt.
const DefaultNotifyTimeout = 15 * time.Second

// =============================================================================
// CLEANUP AND MAINTENANCE
// =============================================================================

// DefaultCleanupInterval is the frequency for background cleanup goroutines.
const DefaultCleanupInterval = 5 * time.Minute

// =============================================================================
// RATE LIMITING
// =============================================================================

// DefaultRateLimit is requests per second per IP.
const DefaultRateLimit = 100

// MaxRateLimitBuckets prevents memory exhaustion from too many IP buckets.
const MaxRateLimitBuckets = 10000

// =============================================================================
// HTTP AND NETWORKING
// =============================================================================

// DefaultPort is the gateway listen port.
const DefaultPort = 8787

// DefaultDialTimeout is the TCP dial timeout.
const DefaultDialTimeout = 30 * time.Second

// DefaultServerReadTimeout bounds reading a request.
const DefaultServerReadTimeout = 30 * time.Second

// DefaultServerWriteTimeout for the HTTP server. Provider calls have no
// timeout of their own by default, so this is generous.
const DefaultServerWriteTimeout = 10 * time.Minute

// DefaultShutdownTimeout is how long in-flight requests get to drain.
const DefaultShutdownTimeout = 10 * time.Second

// MaxRequestBodySize is the maximum allowed request body (10MB).
const MaxRequestBodySize = 10 * 1024 * 1024

// MaxResponseSize is the maximum allowed upstream response body (50MB).
const MaxResponseSize = 50 * 1024 * 1024

// MaxErrorBodyLogLen limits error response body in logs to prevent bloat.
const MaxErrorBodyLogLen = 500

// =============================================================================
// PROVIDER
// =============================================================================

// DefaultProviderEndpoint is the OpenAI-compatible chat completions URL.
const DefaultProviderEndpoint = "https://api.openai.com/v1/chat/completions"

// DefaultProviderModel is the chat model requested when none is configured.
const DefaultProviderModel = "gpt-4o-mini"
