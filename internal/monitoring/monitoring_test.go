package monitoring

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollector_FullStats(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordRequest(true)
	mc.RecordRequest(false)
	mc.RecordRequest(false)
	mc.RecordAdmission(true)
	mc.RecordAdmission(false)
	mc.RecordIPThrottled()
	mc.RecordUpstreamRateLimit()
	mc.RecordUpstreamBilling()
	mc.RecordUpstreamFailure()
	mc.RecordInternalError()
	mc.RecordUsageWriteFailure()
	mc.RecordNotificationSent()
	mc.RecordNotificationDropped()
	mc.RecordNotificationFailed()
	mc.RecordTokens(120, 300)

	s := mc.FullStats()
	assert.Equal(t, RequestStats{Total: 3, Successful: 1, Failed: 2}, s.Requests)
	assert.Equal(t, AdmissionStats{Admitted: 1, QuotaDenied: 1, IPThrottled: 1}, s.Admission)
	assert.Equal(t, ErrorStats{UpstreamRateLimited: 1, UpstreamBilling: 1, UpstreamFailures: 1, Internal: 1, UsageWriteFailures: 1}, s.Errors)
	assert.Equal(t, NotificationStats{Sent: 1, Dropped: 1, Failed: 1}, s.Notifications)
	assert.Equal(t, TokenStats{Estimated: 120, Provider: 300}, s.Tokens)
	assert.NotEmpty(t, s.StartedAt)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "5m", formatDuration(5*time.Minute))
	assert.Equal(t, "2h 3m", formatDuration(2*time.Hour+3*time.Minute))
	assert.Equal(t, "1d 1h 0m", formatDuration(25*time.Hour))
}

func TestTracker_WritesJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "requests.jsonl")

	tr, err := NewTracker(TelemetryConfig{Enabled: true, LogPath: path})
	require.NoError(t, err)

	tr.RecordRequest(&RequestEvent{RequestID: "r1", Tier: "citizen", Outcome: OutcomeSuccess, StatusCode: 200})
	tr.RecordRequest(&RequestEvent{RequestID: "r2", Tier: "anonymous", Outcome: OutcomeQuotaExceeded, StatusCode: 429})
	tr.RecordInit(&InitEvent{Event: "gateway_init", ServerPort: 8787})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var events []RequestEvent
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev RequestEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 2)
	assert.Equal(t, OutcomeQuotaExceeded, events[1].Outcome)
	assert.Equal(t, 2, tr.RequestCount())

	_, err = os.Stat(filepath.Join(dir, "logs", "init.jsonl"))
	assert.NoError(t, err)
}

func TestTracker_DisabledIsNoop(t *testing.T) {
	tr, err := NewTracker(TelemetryConfig{Enabled: false, LogPath: filepath.Join(t.TempDir(), "x.jsonl")})
	require.NoError(t, err)
	tr.RecordRequest(&RequestEvent{RequestID: "r1"})
	assert.Equal(t, 0, tr.RequestCount())

	var nilTracker *Tracker
	nilTracker.RecordRequest(&RequestEvent{})
}

func TestParseLevel(t *testing.T) {
	lvl, err := parseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)

	lvl, err = parseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	_, err = parseLevel("verbose")
	assert.Error(t, err)
}

func TestSetupLogger_File(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	path := filepath.Join(t.TempDir(), "gw.log")
	closer, err := SetupLogger(LoggerConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	require.NoError(t, closer.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
