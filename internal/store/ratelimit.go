package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// admitQuery inserts the day's first call or increments an existing counter
// that is still below the limit. When the counter is already at the limit
// the conflict update is skipped and no row is returned.
const admitQuery = `
INSERT INTO rate_limits (identity_key, day, used) VALUES (?, ?, 1)
ON CONFLICT (identity_key, day) DO UPDATE
SET used = rate_limits.used + 1
WHERE rate_limits.used < ?
RETURNING used`

// AdmitOrDeny implements quota.Store with a single conditional upsert.
func (s *Store) AdmitOrDeny(ctx context.Context, key, day string, limit int) (int, bool, error) {
	var used int
	err := s.db.QueryRowContext(ctx, s.rebind(admitQuery), key, day, limit).Scan(&used)
	switch {
	case err == nil:
		return used, true, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, false, fmt.Errorf("incrementing rate limit: %w", err)
	}

	used, err = s.Used(ctx, key, day)
	if err != nil {
		return 0, false, err
	}
	return used, false, nil
}

// Used returns the counter for (key, day), zero when absent.
func (s *Store) Used(ctx context.Context, key, day string) (int, error) {
	var used int
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT used FROM rate_limits WHERE identity_key = ? AND day = ?`),
		key, day,
	).Scan(&used)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading rate limit: %w", err)
	}
	return used, nil
}

// PurgeRateLimitsBefore deletes counters for days before day.
func (s *Store) PurgeRateLimitsBefore(ctx context.Context, day string) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM rate_limits WHERE day < ?`), day)
	if err != nil {
		return 0, fmt.Errorf("purging rate limits: %w", err)
	}
	return res.RowsAffected()
}
