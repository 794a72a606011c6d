// Package usage records one row per admitted gateway call.
//
// DESIGN: Records are append-only and written only after admission
// succeeds. They never touch quota counters. A failed write is logged and
// reported to the caller's metrics, but the admitted call proceeds: the
// quota has already been consumed and rolling it back is not attempted.
package usage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Record is one admitted call.
type Record struct {
	ID          string
	IdentityKey string
	UserID      string
	Email       string
	SessionID   string
	Tier        string
	Endpoint    string
	TokensUsed  int
	Timestamp   time.Time
}

// Recorder persists usage records.
type Recorder interface {
	RecordUsage(ctx context.Context, r Record) error
}

// Service fills in record defaults and logs write failures.
type Service struct {
	rec Recorder
	now func() time.Time
}

// NewService wraps a recorder.
func NewService(rec Recorder) *Service {
	return &Service{rec: rec, now: time.Now}
}

// Record writes r. The error is returned for metrics only; callers must
// not fail the request on it.
func (s *Service) Record(ctx context.Context, r Record) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = s.now().UTC()
	}
	if err := s.rec.RecordUsage(ctx, r); err != nil {
		log.Error().
			Err(err).
			Str("identity", r.IdentityKey).
			Str("endpoint", r.Endpoint).
			Msg("usage record write failed, continuing")
		return err
	}
	return nil
}

// MemoryRecorder keeps records in memory. Used when no relational store is
// configured and in tests.
type MemoryRecorder struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryRecorder creates an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// RecordUsage implements Recorder.
func (m *MemoryRecorder) RecordUsage(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

// Records returns a copy of everything recorded.
func (m *MemoryRecorder) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...)
}

// CountFor returns how many records exist for identityKey.
func (m *MemoryRecorder) CountFor(identityKey string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.records {
		if r.IdentityKey == identityKey {
			n++
		}
	}
	return n
}
