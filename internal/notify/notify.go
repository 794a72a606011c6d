// Package notify sends a one-time warning as a caller nears its daily quota.
//
// DESIGN: Every admitted call whose usage fraction lies in [0.80, 0.85)
// warns. The half-open band is the only debounce: calls below 0.80 or at
// 0.85 and above never warn. Because each call moves the fraction by
// 1/limit, small limits can step over the band entirely (limit 3: 0.67 to
// 1.0) and those callers are never warned.
// Delivery runs on a bounded Dispatcher; the request path only enqueues and
// never waits.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/munilab/ai-gateway/internal/config"
	"github.com/munilab/ai-gateway/internal/quota"
)

// InBand reports whether used/limit falls in the warning band. Unlimited
// and zero limits never warn.
func InBand(used, limit int) bool {
	if limit <= 0 {
		return false
	}
	f := float64(used) / float64(limit)
	return f >= config.WarnBandLow && f < config.WarnBandHigh
}

// Warning is one threshold notification.
type Warning struct {
	Email      string    `json:"email"`
	UserID     string    `json:"user_id,omitempty"`
	Tier       string    `json:"tier"`
	Used       int       `json:"used"`
	DailyLimit int       `json:"daily_limit"`
	Remaining  int       `json:"remaining"`
	Day        string    `json:"day"`
	CreatedAt  time.Time `json:"created_at"`
}

// Subject returns the email subject line.
func (w Warning) Subject() string {
	return "You are approaching your daily AI assistant limit"
}

// Body returns the plain-text message. The percentage is left out when the
// limit is not positive.
func (w Warning) Body() string {
	if w.DailyLimit <= 0 {
		return fmt.Sprintf(
			"You have used %d daily AI requests. %d remain today. The limit resets at 00:00 UTC.",
			w.Used, w.Remaining,
		)
	}
	pct := 100 * w.Used / w.DailyLimit
	return fmt.Sprintf(
		"You have used %d of your %d daily AI requests (%d%%). %d remain today. The limit resets at 00:00 UTC.",
		w.Used, w.DailyLimit, pct, w.Remaining,
	)
}

// Sender delivers a warning.
type Sender interface {
	Name() string
	Send(ctx context.Context, w Warning) error
}

// Submitter accepts warnings for background delivery.
type Submitter interface {
	Submit(w Warning) bool
}

// Notifier decides whether an admission decision warrants a warning.
type Notifier struct {
	out Submitter
	now func() time.Time
}

// NewNotifier creates a notifier that submits to out.
func NewNotifier(out Submitter) *Notifier {
	return &Notifier{out: out, now: time.Now}
}

// Check submits a warning when d is an admitted call inside the band and
// the caller has an email. It reports whether a warning was submitted.
func (n *Notifier) Check(email, userID string, d quota.Decision) bool {
	if n == nil || n.out == nil || email == "" || !d.Allowed || d.Unlimited() {
		return false
	}
	if !InBand(d.Used, d.DailyLimit) {
		return false
	}
	now := n.now()
	return n.out.Submit(Warning{
		Email:      email,
		UserID:     userID,
		Tier:       string(d.Tier),
		Used:       d.Used,
		DailyLimit: d.DailyLimit,
		Remaining:  d.Remaining,
		Day:        quota.Day(now),
		CreatedAt:  now.UTC(),
	})
}
