// Package monitoring - telemetry.go records events to JSONL files.
//
// DESIGN: Tracker appends one JSON object per line:
//   - RequestEvent: every gateway call, whatever its outcome
//   - InitEvent:    startup configuration, to init.jsonl next to the log
//
// Events are appended immediately so the file can be tailed.
package monitoring

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// Tracker handles telemetry event recording to file and stdout.
type Tracker struct {
	config         TelemetryConfig
	requestLogPath string
	initLogPath    string
	requestCount   int
	mu             sync.Mutex
}

// NewTracker creates a new telemetry tracker.
func NewTracker(cfg TelemetryConfig) (*Tracker, error) {
	t := &Tracker{config: cfg}
	if !cfg.Enabled || cfg.LogPath == "" {
		return t, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0750); err != nil {
		return nil, err
	}
	t.requestLogPath = cfg.LogPath
	t.initLogPath = filepath.Join(filepath.Dir(cfg.LogPath), "init.jsonl")
	return t, nil
}

// appendJSONL appends a single JSON object as a line to the file.
func appendJSONL(path string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	// #nosec G304 -- telemetry path comes from operator config
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = f.Write(data)
	return err
}

// RecordRequest records a request event.
func (t *Tracker) RecordRequest(event *RequestEvent) {
	if t == nil || !t.config.Enabled || event == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.config.LogToStdout {
		log.Info().
			Str("request_id", event.RequestID).
			Str("tier", event.Tier).
			Str("outcome", string(event.Outcome)).
			Int("status", event.StatusCode).
			Int64("latency_ms", event.TotalLatencyMs).
			Msg("telemetry")
	}

	if t.requestLogPath != "" {
		if err := appendJSONL(t.requestLogPath, event); err != nil {
			log.Error().Err(err).Str("path", t.requestLogPath).Msg("telemetry: failed to write request event")
		} else {
			t.requestCount++
		}
	}
}

// RecordInit records a gateway initialization event.
func (t *Tracker) RecordInit(event *InitEvent) {
	if t == nil || !t.config.Enabled || t.initLogPath == "" || event == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := appendJSONL(t.initLogPath, event); err != nil {
		log.Error().Err(err).Str("path", t.initLogPath).Msg("telemetry: failed to write init event")
	}
}

// RequestCount returns how many request events were written.
func (t *Tracker) RequestCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.requestCount
}
