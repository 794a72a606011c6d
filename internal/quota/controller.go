package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/munilab/ai-gateway/internal/config"
	"github.com/munilab/ai-gateway/internal/tier"
)

// ErrStoreUnavailable wraps any failure of the counter store.
var ErrStoreUnavailable = errors.New("quota store unavailable")

// Store holds per-(identity, day) counters.
type Store interface {
	// AdmitOrDeny atomically increments the counter for (key, day) if it is
	// below limit. It returns the counter value after the operation and
	// whether the increment happened.
	AdmitOrDeny(ctx context.Context, key, day string, limit int) (used int, allowed bool, err error)
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	Tier       tier.AccessTier
	DailyLimit int
	Used       int
	Remaining  int
}

// Unlimited reports whether the decision came from an uncapped tier.
func (d Decision) Unlimited() bool { return d.DailyLimit == config.Unlimited }

// Day formats the UTC calendar day that counters are bucketed by.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Controller admits or rejects calls.
type Controller struct {
	policy Policy
	store  Store
	now    func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates an admission controller.
func NewController(policy Policy, store Store, opts ...Option) *Controller {
	c := &Controller{policy: policy, store: store, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the controller's policy.
func (c *Controller) Policy() Policy { return c.policy }

// TryAdmit checks and consumes one call for identityKey. endpoint is only
// used for logging; counters are shared across endpoints.
func (c *Controller) TryAdmit(ctx context.Context, identityKey string, t tier.AccessTier, endpoint string) (Decision, error) {
	limit := c.policy.DailyLimit(t)
	d := Decision{Tier: t, DailyLimit: limit}

	switch {
	case limit == config.Unlimited:
		d.Allowed = true
		d.Remaining = config.UnlimitedRemaining
		return d, nil
	case limit <= 0:
		return d, nil
	}

	day := Day(c.now())
	used, allowed, err := c.store.AdmitOrDeny(ctx, identityKey, day, limit)
	if err != nil {
		return Decision{Tier: t, DailyLimit: limit}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	d.Allowed = allowed
	d.Used = used
	if remaining := limit - used; remaining > 0 {
		d.Remaining = remaining
	}

	log.Debug().
		Str("endpoint", endpoint).
		Str("tier", string(t)).
		Str("day", day).
		Int("used", used).
		Int("limit", limit).
		Bool("allowed", allowed).
		Msg("quota check")
	return d, nil
}
