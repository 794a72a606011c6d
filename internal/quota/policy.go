// Package quota decides whether a caller may make another call today.
//
// DESIGN: Policy maps a tier to a daily limit. Controller.TryAdmit turns
// (identity key, tier) into a Decision with exactly one atomic store call:
//   - admin:        always allowed, the store is never consulted
//   - limit 0:      always denied, the store is never consulted
//   - finite limit: Store.AdmitOrDeny for (key, UTC day)
//
// A store error is returned to the caller, which must treat it as a denial.
package quota

import (
	"github.com/munilab/ai-gateway/internal/config"
	"github.com/munilab/ai-gateway/internal/tier"
)

// Policy maps access tiers to daily limits. Read-only once built.
type Policy struct {
	limits map[tier.AccessTier]int
}

// NewPolicy builds a policy. Admin is always unlimited.
func NewPolicy(l config.TierLimits) Policy {
	return Policy{limits: map[tier.AccessTier]int{
		tier.Admin:     config.Unlimited,
		tier.Staff:     l.Staff,
		tier.Citizen:   l.Citizen,
		tier.Anonymous: l.Anonymous,
	}}
}

// DailyLimit returns the limit for t. Unknown tiers get the anonymous limit.
func (p Policy) DailyLimit(t tier.AccessTier) int {
	if l, ok := p.limits[t]; ok {
		return l
	}
	return p.limits[tier.Anonymous]
}

// Unlimited reports whether t has no daily cap.
func (p Policy) Unlimited(t tier.AccessTier) bool {
	return p.DailyLimit(t) == config.Unlimited
}

// Limits returns a copy keyed by tier name, for logs and telemetry.
func (p Policy) Limits() map[string]int {
	out := make(map[string]int, len(p.limits))
	for t, l := range p.limits {
		out[string(t)] = l
	}
	return out
}
