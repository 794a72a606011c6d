package store

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS rate_limits (
    identity_key TEXT    NOT NULL,
    day          TEXT    NOT NULL,
    used         INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (identity_key, day)
)`,
	`CREATE TABLE IF NOT EXISTS usage_logs (
    id           TEXT      PRIMARY KEY,
    identity_key TEXT      NOT NULL,
    user_id      TEXT,
    email        TEXT,
    session_id   TEXT,
    tier         TEXT      NOT NULL,
    endpoint     TEXT      NOT NULL,
    tokens_used  INTEGER   NOT NULL DEFAULT 0,
    created_at   TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_usage_identity ON usage_logs(identity_key, created_at)`,
	`CREATE TABLE IF NOT EXISTS user_roles (
    user_id TEXT NOT NULL,
    role    TEXT NOT NULL,
    PRIMARY KEY (user_id, role)
)`,
	`CREATE TABLE IF NOT EXISTS profiles (
    email     TEXT PRIMARY KEY,
    user_type TEXT NOT NULL
)`,
}

// Migrate creates tables and indexes. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}
