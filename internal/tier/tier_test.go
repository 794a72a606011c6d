package tier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failingDirectory struct{}

func (failingDirectory) RolesByUserID(context.Context, string) ([]string, error) {
	return nil, errors.New("connection refused")
}

func (failingDirectory) UserTypeByEmail(context.Context, string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}

type countingRoles struct {
	calls int
	roles []string
}

func (c *countingRoles) RolesByUserID(context.Context, string) ([]string, error) {
	c.calls++
	return c.roles, nil
}

func TestFromRoles(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  AccessTier
		ok    bool
	}{
		{"empty", nil, "", false},
		{"admin wins", []string{"citizen", "staff", "admin"}, Admin, true},
		{"staff", []string{"citizen", "staff"}, Staff, true},
		{"municipality staff", []string{"municipality_staff"}, Staff, true},
		{"case insensitive", []string{" Admin "}, Admin, true},
		{"unknown role is citizen", []string{"startup_founder"}, Citizen, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromRoles(tt.roles)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChain_Resolve(t *testing.T) {
	dir := NewStaticDirectory(
		map[string][]string{
			"u-admin":   {"admin"},
			"u-staff":   {"municipality_staff"},
			"u-citizen": {"citizen"},
		},
		map[string]string{
			"Clerk@City.gov":  "staff",
			"boss@city.gov":   "admin",
			"person@mail.com": "citizen",
		},
	)
	chain := NewChain(RoleStrategy{Roles: dir}, ProfileStrategy{Profiles: dir})

	tests := []struct {
		name string
		sub  Subject
		want AccessTier
	}{
		{"no id no email", Subject{}, Anonymous},
		{"admin by role", Subject{UserID: "u-admin"}, Admin},
		{"staff by role", Subject{UserID: "u-staff", Email: "boss@city.gov"}, Staff},
		{"role entry beats profile", Subject{UserID: "u-citizen", Email: "boss@city.gov"}, Citizen},
		{"no role falls to profile", Subject{UserID: "u-new", Email: "clerk@city.gov"}, Staff},
		{"profile admin", Subject{UserID: "u-new", Email: "boss@city.gov"}, Admin},
		{"email only", Subject{Email: "person@mail.com"}, Citizen},
		{"unknown user defaults to citizen", Subject{UserID: "u-unknown"}, Citizen},
		{"unknown email defaults to citizen", Subject{Email: "nobody@x.org"}, Citizen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chain.Resolve(context.Background(), tt.sub))
		})
	}
}

func TestChain_LookupErrorsAreTolerated(t *testing.T) {
	chain := NewChain(RoleStrategy{Roles: failingDirectory{}}, ProfileStrategy{Profiles: failingDirectory{}})

	assert.Equal(t, Citizen, chain.Resolve(context.Background(), Subject{UserID: "u1", Email: "a@b.c"}))
	assert.Equal(t, Anonymous, chain.Resolve(context.Background(), Subject{}))
}

func TestChain_RoleErrorFallsThroughToProfile(t *testing.T) {
	profiles := NewStaticDirectory(nil, map[string]string{"clerk@city.gov": "staff"})
	chain := NewChain(RoleStrategy{Roles: failingDirectory{}}, ProfileStrategy{Profiles: profiles})

	assert.Equal(t, Staff, chain.Resolve(context.Background(), Subject{UserID: "u1", Email: "clerk@city.gov"}))
}

func TestRoleStrategy_SkipsWithoutUserID(t *testing.T) {
	roles := &countingRoles{roles: []string{"admin"}}
	chain := NewChain(RoleStrategy{Roles: roles})

	assert.Equal(t, Citizen, chain.Resolve(context.Background(), Subject{Email: "a@b.c"}))
	assert.Equal(t, 0, roles.calls)
}

func TestAccessTier_Valid(t *testing.T) {
	for _, tr := range All {
		assert.True(t, tr.Valid())
	}
	assert.False(t, AccessTier("superuser").Valid())
}
