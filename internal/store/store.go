// Package store is the relational backing store for the gateway.
//
// DESIGN: One database/sql handle serves four concerns:
//   - rate_limits: per (identity, UTC day) counters, see AdmitOrDeny
//   - usage_logs:  append-only usage records
//   - user_roles:  role rows keyed by user id, read for tier resolution
//   - profiles:    user type keyed by email, read for tier resolution
//
// SQLite (modernc.org/sqlite, pure Go) serves single-node deployments and
// tests. Postgres goes through the pgx stdlib driver. Queries are written
// with ? placeholders and rebound for Postgres.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect names a supported database.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Store wraps a database handle.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects and pings. It does not create tables; call Migrate.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var (
		d          Dialect
		driverName string
	)
	switch driver {
	case "sqlite":
		d, driverName = SQLite, "sqlite"
	case "postgres":
		d, driverName = Postgres, "pgx"
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if d == SQLite {
		// One writer at a time; concurrent upserts queue here instead of
		// failing with SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, dialect: d}
	if d == SQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting busy timeout: %w", err)
		}
	}
	return s, nil
}

// Dialect returns the connected dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
