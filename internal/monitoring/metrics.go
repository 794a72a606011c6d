// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - requests/successes: Gateway calls and 2xx replies
//   - admission:          Admitted, quota-denied and IP-throttled calls
//   - upstream:           Provider failures by class
//   - notifications:      Threshold warnings dispatched, dropped, failed
//   - tokens:             Estimated prompt tokens and provider-reported totals
//
// Exposed on the loopback-only /stats endpoint.
package monitoring

import (
	"fmt"
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	startedAt time.Time

	requests  atomic.Int64
	successes atomic.Int64

	admitted    atomic.Int64
	quotaDenied atomic.Int64
	ipThrottled atomic.Int64

	upstreamRateLimited atomic.Int64
	upstreamBilling     atomic.Int64
	upstreamFailures    atomic.Int64
	internalErrors      atomic.Int64
	usageWriteFailures  atomic.Int64

	notifySent    atomic.Int64
	notifyDropped atomic.Int64
	notifyFailed  atomic.Int64

	estimatedTokens atomic.Int64
	providerTokens  atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{startedAt: time.Now()}
}

// RecordRequest records a finished gateway call.
func (mc *MetricsCollector) RecordRequest(success bool) {
	mc.requests.Add(1)
	if success {
		mc.successes.Add(1)
	}
}

// RecordAdmission records an admission decision.
func (mc *MetricsCollector) RecordAdmission(allowed bool) {
	if allowed {
		mc.admitted.Add(1)
		return
	}
	mc.quotaDenied.Add(1)
}

// RecordIPThrottled records a call rejected by the per-IP limiter.
func (mc *MetricsCollector) RecordIPThrottled() { mc.ipThrottled.Add(1) }

// RecordUpstreamRateLimit records a provider 429.
func (mc *MetricsCollector) RecordUpstreamRateLimit() { mc.upstreamRateLimited.Add(1) }

// RecordUpstreamBilling records a provider 402.
func (mc *MetricsCollector) RecordUpstreamBilling() { mc.upstreamBilling.Add(1) }

// RecordUpstreamFailure records any other provider or transport failure.
func (mc *MetricsCollector) RecordUpstreamFailure() { mc.upstreamFailures.Add(1) }

// RecordInternalError records a failure not attributable to the provider.
func (mc *MetricsCollector) RecordInternalError() { mc.internalErrors.Add(1) }

// RecordUsageWriteFailure records a usage record that could not be stored.
func (mc *MetricsCollector) RecordUsageWriteFailure() { mc.usageWriteFailures.Add(1) }

// RecordNotificationSent records a delivered threshold warning.
func (mc *MetricsCollector) RecordNotificationSent() { mc.notifySent.Add(1) }

// RecordNotificationDropped records a warning dropped on a full queue.
func (mc *MetricsCollector) RecordNotificationDropped() { mc.notifyDropped.Add(1) }

// RecordNotificationFailed records a warning whose sender returned an error.
func (mc *MetricsCollector) RecordNotificationFailed() { mc.notifyFailed.Add(1) }

// RecordTokens records estimated prompt tokens and the provider total.
func (mc *MetricsCollector) RecordTokens(estimated, providerTotal int) {
	mc.estimatedTokens.Add(int64(estimated))
	mc.providerTokens.Add(int64(providerTotal))
}

// StartedAt returns when the metrics collector was created.
func (mc *MetricsCollector) StartedAt() time.Time { return mc.startedAt }

// FullStats returns all metrics in a structured format for the /stats endpoint.
func (mc *MetricsCollector) FullStats() StatsResponse {
	uptime := time.Since(mc.startedAt)
	requests := mc.requests.Load()
	successes := mc.successes.Load()

	return StatsResponse{
		Uptime:        formatDuration(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		StartedAt:     mc.startedAt.Format(time.RFC3339),
		Requests: RequestStats{
			Total:      requests,
			Successful: successes,
			Failed:     requests - successes,
		},
		Admission: AdmissionStats{
			Admitted:    mc.admitted.Load(),
			QuotaDenied: mc.quotaDenied.Load(),
			IPThrottled: mc.ipThrottled.Load(),
		},
		Errors: ErrorStats{
			UpstreamRateLimited: mc.upstreamRateLimited.Load(),
			UpstreamBilling:     mc.upstreamBilling.Load(),
			UpstreamFailures:    mc.upstreamFailures.Load(),
			Internal:            mc.internalErrors.Load(),
			UsageWriteFailures:  mc.usageWriteFailures.Load(),
		},
		Notifications: NotificationStats{
			Sent:    mc.notifySent.Load(),
			Dropped: mc.notifyDropped.Load(),
			Failed:  mc.notifyFailed.Load(),
		},
		Tokens: TokenStats{
			Estimated: mc.estimatedTokens.Load(),
			Provider:  mc.providerTokens.Load(),
		},
	}
}

// StatsResponse is the structured response for the /stats endpoint.
type StatsResponse struct {
	Uptime        string            `json:"uptime"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	StartedAt     string            `json:"started_at"`
	Requests      RequestStats      `json:"requests"`
	Admission     AdmissionStats    `json:"admission"`
	Errors        ErrorStats        `json:"errors"`
	Notifications NotificationStats `json:"notifications"`
	Tokens        TokenStats        `json:"tokens"`
}

// RequestStats holds request count metrics.
type RequestStats struct {
	Total      int64 `json:"total"`
	Successful int64 `json:"successful"`
	Failed     int64 `json:"failed"`
}

// AdmissionStats holds quota admission metrics.
type AdmissionStats struct {
	Admitted    int64 `json:"admitted"`
	QuotaDenied int64 `json:"quota_denied"`
	IPThrottled int64 `json:"ip_throttled"`
}

// ErrorStats holds failure counts by class.
type ErrorStats struct {
	UpstreamRateLimited int64 `json:"upstream_rate_limited"`
	UpstreamBilling     int64 `json:"upstream_billing"`
	UpstreamFailures    int64 `json:"upstream_failures"`
	Internal            int64 `json:"internal"`
	UsageWriteFailures  int64 `json:"usage_write_failures"`
}

// NotificationStats holds threshold warning metrics.
type NotificationStats struct {
	Sent    int64 `json:"sent"`
	Dropped int64 `json:"dropped"`
	Failed  int64 `json:"failed"`
}

// TokenStats holds token counters.
type TokenStats struct {
	Estimated int64 `json:"estimated"`
	Provider  int64 `json:"provider"`
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
