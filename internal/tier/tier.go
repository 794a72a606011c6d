// Package tier maps a caller identity to an access tier.
//
// DESIGN: Tier resolution is a chain of strategies tried in priority order:
//  1. RoleStrategy    - role rows keyed by user id
//  2. ProfileStrategy - profile user type keyed by email
//
// A strategy with no entry for the caller defers to the next one. Lookup
// errors are logged and treated as "no entry", so a degraded directory
// yields the least-privileged tier the request's inputs allow, never a
// failed request.
package tier

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// AccessTier is the caller's privilege class.
type AccessTier string

const (
	Admin     AccessTier = "admin"
	Staff     AccessTier = "staff"
	Citizen   AccessTier = "citizen"
	Anonymous AccessTier = "anonymous"
)

// All lists tiers from most to least privileged.
var All = []AccessTier{Admin, Staff, Citizen, Anonymous}

// Valid reports whether t is a known tier.
func (t AccessTier) Valid() bool {
	switch t {
	case Admin, Staff, Citizen, Anonymous:
		return true
	}
	return false
}

// Subject is the identity data tier resolution may use.
type Subject struct {
	UserID string
	Email  string
}

// Resolver yields the tier for a subject. It never fails.
type Resolver interface {
	Resolve(ctx context.Context, s Subject) AccessTier
}

// Strategy is one source of tier information. ok is false when the source
// holds no entry for the subject.
type Strategy interface {
	Name() string
	Lookup(ctx context.Context, s Subject) (t AccessTier, ok bool, err error)
}

// Chain tries strategies in order and returns the first match.
type Chain struct {
	strategies []Strategy
}

// NewChain composes strategies in priority order.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// Resolve implements Resolver.
func (c *Chain) Resolve(ctx context.Context, s Subject) AccessTier {
	if s.UserID == "" && s.Email == "" {
		return Anonymous
	}
	for _, st := range c.strategies {
		t, ok, err := st.Lookup(ctx, s)
		if err != nil {
			log.Warn().Err(err).Str("strategy", st.Name()).Msg("tier lookup failed, trying next source")
			continue
		}
		if ok {
			return t
		}
	}
	return Citizen
}

// FromRoles maps role names to a tier: any admin wins, then any staff role,
// otherwise citizen. ok is false for an empty role set.
func FromRoles(roles []string) (AccessTier, bool) {
	if len(roles) == 0 {
		return "", false
	}
	best := Citizen
	for _, r := range roles {
		switch normalize(r) {
		case "admin":
			return Admin, true
		case "staff", "municipality_staff":
			best = Staff
		}
	}
	return best, true
}

// FromUserType maps a profile user type to a tier.
func FromUserType(userType string) AccessTier {
	t, _ := FromRoles([]string{userType})
	return t
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
