package tier

import (
	"context"
	"fmt"
	"strings"
)

// RoleLookup returns every role recorded for a user id.
type RoleLookup interface {
	RolesByUserID(ctx context.Context, userID string) ([]string, error)
}

// ProfileLookup returns the user type recorded on a profile.
type ProfileLookup interface {
	UserTypeByEmail(ctx context.Context, email string) (userType string, found bool, err error)
}

// RoleStrategy resolves tiers from role rows keyed by user id.
type RoleStrategy struct {
	Roles RoleLookup
}

func (RoleStrategy) Name() string { return "roles" }

// Lookup implements Strategy.
func (s RoleStrategy) Lookup(ctx context.Context, sub Subject) (AccessTier, bool, error) {
	if sub.UserID == "" || s.Roles == nil {
		return "", false, nil
	}
	roles, err := s.Roles.RolesByUserID(ctx, sub.UserID)
	if err != nil {
		return "", false, fmt.Errorf("loading roles: %w", err)
	}
	t, ok := FromRoles(roles)
	return t, ok, nil
}

// ProfileStrategy resolves tiers from the profile user type keyed by email.
type ProfileStrategy struct {
	Profiles ProfileLookup
}

func (ProfileStrategy) Name() string { return "profiles" }

// Lookup implements Strategy.
func (s ProfileStrategy) Lookup(ctx context.Context, sub Subject) (AccessTier, bool, error) {
	if sub.Email == "" || s.Profiles == nil {
		return "", false, nil
	}
	userType, found, err := s.Profiles.UserTypeByEmail(ctx, sub.Email)
	if err != nil {
		return "", false, fmt.Errorf("loading profile: %w", err)
	}
	if !found {
		return "", false, nil
	}
	return FromUserType(userType), true, nil
}

// StaticDirectory serves roles and profiles from memory. It backs tier
// lookups when no relational store is configured.
type StaticDirectory struct {
	roles    map[string][]string
	profiles map[string]string
}

// NewStaticDirectory copies the given maps. Emails match case-insensitively.
func NewStaticDirectory(roles map[string][]string, profiles map[string]string) *StaticDirectory {
	d := &StaticDirectory{
		roles:    make(map[string][]string, len(roles)),
		profiles: make(map[string]string, len(profiles)),
	}
	for id, rs := range roles {
		d.roles[id] = append([]string(nil), rs...)
	}
	for email, ut := range profiles {
		d.profiles[strings.ToLower(email)] = ut
	}
	return d
}

// RolesByUserID implements RoleLookup.
func (d *StaticDirectory) RolesByUserID(_ context.Context, userID string) ([]string, error) {
	return d.roles[userID], nil
}

// UserTypeByEmail implements ProfileLookup.
func (d *StaticDirectory) UserTypeByEmail(_ context.Context, email string) (string, bool, error) {
	ut, ok := d.profiles[strings.ToLower(email)]
	return ut, ok, nil
}
