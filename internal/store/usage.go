package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/munilab/ai-gateway/internal/usage"
)

// RecordUsage implements usage.Recorder.
func (s *Store) RecordUsage(ctx context.Context, r usage.Record) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
INSERT INTO usage_logs (id, identity_key, user_id, email, session_id, tier, endpoint, tokens_used, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.IdentityKey, nullable(r.UserID), nullable(r.Email), nullable(r.SessionID),
		r.Tier, r.Endpoint, r.TokensUsed, r.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to log usage: %w", err)
	}
	return nil
}

// CountUsage returns how many usage rows exist for identityKey since t.
func (s *Store) CountUsage(ctx context.Context, identityKey string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM usage_logs WHERE identity_key = ? AND created_at >= ?`),
		identityKey, since.UTC(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting usage: %w", err)
	}
	return n, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
