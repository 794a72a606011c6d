package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munilab/ai-gateway/internal/config"
	"github.com/munilab/ai-gateway/internal/gateway"
	"github.com/munilab/ai-gateway/internal/identity"
	"github.com/munilab/ai-gateway/internal/quota"
	"github.com/munilab/ai-gateway/internal/store"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr string
	}{
		{"empty", nil, options{ttl: 24 * time.Hour}, ""},
		{"all serve flags", []string{"-c", "gw.yaml", "-p", "9000", "-d"},
			options{configPath: "gw.yaml", port: 9000, debug: true, ttl: 24 * time.Hour}, ""},
		{"long forms", []string{"--config", "gw.yaml", "--port", "9001", "--debug"},
			options{configPath: "gw.yaml", port: 9001, debug: true, ttl: 24 * time.Hour}, ""},
		{"token flags", []string{"--sub", "u1", "--email", "a@b.c", "--ttl", "1h"},
			options{subject: "u1", email: "a@b.c", ttl: time.Hour}, ""},
		{"missing value", []string{"-c"}, options{}, "requires a value"},
		{"bad port", []string{"-p", "70000"}, options{}, "invalid port"},
		{"bad ttl", []string{"--ttl", "soon"}, options{}, "invalid ttl"},
		{"unknown option", []string{"--verbose"}, options{}, "unknown option"},
		{"stray argument", []string{"extra"}, options{}, "unexpected argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFlags(tt.args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseFlags([]string{"-p", "1", "--help"})
	assert.ErrorIs(t, err, errHelp)
}

func TestLoadConfig_BuiltinDefaultReadsEnv(t *testing.T) {
	t.Setenv(configEnvVar, "")
	t.Setenv("AI_PROVIDER_API_KEY", "sk-from-env")
	t.Setenv("AI_GATEWAY_LIMIT_CITIZEN", "7")
	t.Setenv("AI_GATEWAY_QUOTA_BACKEND", "")

	cfg, err := loadConfig(options{port: 9100, debug: true})
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.Provider.APIKey)
	assert.Equal(t, config.DefaultProviderEndpoint, cfg.Provider.Endpoint)
	assert.Equal(t, 7, cfg.Quota.Limits.Citizen)
	assert.Equal(t, config.DefaultStaffDailyLimit, cfg.Quota.Limits.Staff)
	assert.Equal(t, "memory", cfg.Quota.Backend)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Monitoring.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingKeyFailsValidation(t *testing.T) {
	t.Setenv(configEnvVar, "")
	t.Setenv("AI_PROVIDER_API_KEY", "")

	cfg, err := loadConfig(options{})
	require.NoError(t, err)
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider.api_key")
}

func TestLoadConfig_FileFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider:\n  api_key: k\nserver:\n  port: 9200\n"), 0600))
	t.Setenv(configEnvVar, path)

	cfg, err := loadConfig(options{})
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.Server.Port)
}

// =============================================================================
// WIRING
// =============================================================================

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	}))
	t.Cleanup(upstream.Close)

	cfg := config.Default()
	cfg.Provider.Endpoint = upstream.URL
	cfg.Provider.APIKey = "sk-test"
	cfg.Auth.JWTSecret = "wiring-secret"
	return cfg
}

func invoke(t *testing.T, a *app, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/invoke-llm", strings.NewReader(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	a.gw.Handler().ServeHTTP(rr, req)
	return rr
}

func TestBuildApp_MemoryBackends(t *testing.T) {
	cfg := testConfig(t)
	cfg.Directory.Roles = map[string][]string{"u-staff": {"staff"}}
	require.NoError(t, cfg.Validate())

	a, err := buildApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.close)

	rr := invoke(t, a, `{"prompt":"hi","session_id":"s1"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `"hello"`, strings.TrimSpace(rr.Body.String()))
	assert.Equal(t, "anonymous", rr.Header().Get(gateway.HeaderRateLimitTier))

	tok, err := mintToken(cfg.Auth, options{subject: "u-staff", ttl: time.Hour}, time.Now())
	require.NoError(t, err)
	rr = invoke(t, a, `{"prompt":"hi"}`, tok)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "staff", rr.Header().Get(gateway.HeaderRateLimitTier))

	health := httptest.NewRecorder()
	a.gw.Handler().ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestBuildApp_SQLiteBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.DSN = filepath.Join(t.TempDir(), "gateway.db")
	cfg.Quota.Backend = "sql"
	cfg.Quota.Limits.Anonymous = 1
	cfg.Directory.Roles = map[string][]string{"u-admin": {"admin"}}
	cfg.Directory.Profiles = map[string]string{"Staff@City.example": "municipality_staff"}
	require.NoError(t, cfg.Validate())

	roles, profiles, err := migrate(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, roles)
	assert.Equal(t, 1, profiles)

	a, err := buildApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.close)
	require.NotNil(t, a.store)

	admin, err := mintToken(cfg.Auth, options{subject: "u-admin", ttl: time.Hour}, time.Now())
	require.NoError(t, err)
	rr := invoke(t, a, `{"prompt":"hi"}`, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "admin", rr.Header().Get(gateway.HeaderRateLimitTier))

	staff, err := mintToken(cfg.Auth, options{subject: "u-2", email: "staff@city.example", ttl: time.Hour}, time.Now())
	require.NoError(t, err)
	rr = invoke(t, a, `{"prompt":"hi"}`, staff)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "staff", rr.Header().Get(gateway.HeaderRateLimitTier))

	assert.Equal(t, http.StatusOK, invoke(t, a, `{"prompt":"hi","session_id":"s-sql"}`, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, invoke(t, a, `{"prompt":"hi","session_id":"s-sql"}`, "").Code)

	ctx := context.Background()
	used, err := a.store.Used(ctx, "session:s-sql", quota.Day(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 1, used)

	n, err := a.store.CountUsage(ctx, "session:s-sql", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBuildApp_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Quota.Backend = "redis"
	cfg.Quota.RedisURL = "redis://" + mr.Addr()
	cfg.Quota.Limits.Anonymous = 2
	require.NoError(t, cfg.Validate())

	a, err := buildApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.close)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, invoke(t, a, `{"prompt":"hi","session_id":"s-redis"}`, "").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, invoke(t, a, `{"prompt":"hi","session_id":"s-redis"}`, "").Code)

	v, err := mr.Get("quota:" + quota.Day(time.Now()) + ":session:s-redis")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestBuildApp_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.Quota.Backend = "redis"
	cfg.Quota.RedisURL = "redis://" + addr

	_, err := buildApp(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestBuildApp_NotificationsEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Notify.Enabled = true
	cfg.Notify.Sender = "webhook"
	cfg.Notify.WebhookURL = "http://127.0.0.1:1/hook"
	require.NoError(t, cfg.Validate())

	a, err := buildApp(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, a.closers)
	a.close()
	assert.Empty(t, a.closers)
}

func TestMigrate_RequiresStorage(t *testing.T) {
	_, _, err := migrate(context.Background(), config.Default())
	assert.ErrorIs(t, err, errNoStorage)
}

func TestMintToken(t *testing.T) {
	auth := config.AuthConfig{JWTSecret: "s3cret", Issuer: "platform", Audience: "gateway"}
	now := time.Now()

	tok, err := mintToken(auth, options{subject: "u-1", email: "u1@example.org", ttl: time.Hour}, now)
	require.NoError(t, err)

	p, err := identity.NewJWTAuthenticator(auth.JWTSecret, auth.Issuer, auth.Audience).Authenticate(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", p.UserID)
	assert.Equal(t, "u1@example.org", p.Email)

	expired, err := mintToken(auth, options{subject: "u-1", ttl: time.Minute}, now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = identity.NewJWTAuthenticator(auth.JWTSecret, auth.Issuer, auth.Audience).Authenticate(context.Background(), expired)
	assert.Error(t, err)

	_, err = mintToken(config.AuthConfig{}, options{subject: "u-1", ttl: time.Hour}, now)
	assert.Error(t, err)
	_, err = mintToken(auth, options{ttl: time.Hour}, now)
	assert.Error(t, err)
}

func TestPurgeOldCounters(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "purge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	for _, day := range []string{"2026-03-01", "2026-03-10"} {
		_, _, err := st.AdmitOrDeny(ctx, "user:u1", day, 5)
		require.NoError(t, err)
	}

	purgeOldCounters(ctx, st, now)

	old, err := st.Used(ctx, "user:u1", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, 0, old)
	today, err := st.Used(ctx, "user:u1", "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, 1, today)
}
