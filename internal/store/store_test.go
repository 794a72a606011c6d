package store

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munilab/ai-gateway/internal/config"
	"github.com/munilab/ai-gateway/internal/quota"
	"github.com/munilab/ai-gateway/internal/tier"
	"github.com/munilab/ai-gateway/internal/usage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "gateway.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "x")
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, SQLite, s.Dialect())
}

func TestAdmitOrDeny(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		used, ok, err := s.AdmitOrDeny(ctx, "user:u1", "2026-04-01", 3)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, i, used)
	}

	used, ok, err := s.AdmitOrDeny(ctx, "user:u1", "2026-04-01", 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, used)

	used, ok, err = s.AdmitOrDeny(ctx, "user:u1", "2026-04-02", 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, used)

	got, err := s.Used(ctx, "user:u1", "2026-04-01")
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	got, err = s.Used(ctx, "user:nobody", "2026-04-01")
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestAdmitOrDeny_Concurrent(t *testing.T) {
	s := openTestStore(t)
	const limit = 10

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < limit+15; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.AdmitOrDeny(context.Background(), "session:s", "2026-04-01", limit)
			if err == nil && ok {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), admitted.Load())
	used, err := s.Used(context.Background(), "session:s", "2026-04-01")
	require.NoError(t, err)
	assert.Equal(t, limit, used)
}

func TestStore_BacksQuotaController(t *testing.T) {
	s := openTestStore(t)
	c := quota.NewController(quota.NewPolicy(config.TierLimits{Staff: 5, Citizen: 2, Anonymous: 1}), s)

	d, err := c.TryAdmit(context.Background(), "user:u1", tier.Citizen, "invoke-llm")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestPurgeRateLimitsBefore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, _, err := s.AdmitOrDeny(ctx, "k", "2026-01-01", 5)
	require.NoError(t, err)
	_, _, err = s.AdmitOrDeny(ctx, "k", "2026-04-01", 5)
	require.NoError(t, err)

	n, err := s.PurgeRateLimitsBefore(ctx, "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRecordUsage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	svc := usage.NewService(s)

	require.NoError(t, svc.Record(ctx, usage.Record{
		IdentityKey: "user:u1",
		UserID:      "u1",
		Email:       "u1@city.gov",
		Tier:        "citizen",
		Endpoint:    "invoke-llm",
		TokensUsed:  42,
	}))
	require.NoError(t, svc.Record(ctx, usage.Record{
		IdentityKey: "session:anon_1",
		SessionID:   "anon_1",
		Tier:        "anonymous",
		Endpoint:    "invoke-llm",
	}))

	since := time.Now().Add(-time.Hour)
	n, err := s.CountUsage(ctx, "user:u1", since)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.CountUsage(ctx, "user:u2", since)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDirectory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AssignRole(ctx, "u1", "staff"))
	require.NoError(t, s.AssignRole(ctx, "u1", "admin"))
	require.NoError(t, s.AssignRole(ctx, "u1", "admin"))
	require.NoError(t, s.UpsertProfile(ctx, "Clerk@City.gov", "citizen"))
	require.NoError(t, s.UpsertProfile(ctx, "clerk@city.gov", "municipality_staff"))

	roles, err := s.RolesByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"staff", "admin"}, roles)

	roles, err = s.RolesByUserID(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, roles)

	ut, found, err := s.UserTypeByEmail(ctx, "CLERK@city.gov")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "municipality_staff", ut)

	_, found, err = s.UserTypeByEmail(ctx, "nobody@city.gov")
	require.NoError(t, err)
	assert.False(t, found)

	chain := tier.NewChain(tier.RoleStrategy{Roles: s}, tier.ProfileStrategy{Profiles: s})
	assert.Equal(t, tier.Admin, chain.Resolve(ctx, tier.Subject{UserID: "u1"}))
	assert.Equal(t, tier.Staff, chain.Resolve(ctx, tier.Subject{UserID: "u9", Email: "clerk@city.gov"}))
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: Postgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y < $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y < ?"))

	lite := &Store{dialect: SQLite}
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
}
