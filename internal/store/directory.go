package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// RolesByUserID implements tier.RoleLookup.
func (s *Store) RolesByUserID(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT role FROM user_roles WHERE user_id = ?`), userID)
	if err != nil {
		return nil, fmt.Errorf("querying roles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// UserTypeByEmail implements tier.ProfileLookup.
func (s *Store) UserTypeByEmail(ctx context.Context, email string) (string, bool, error) {
	var userType string
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT user_type FROM profiles WHERE email = ?`),
		strings.ToLower(email),
	).Scan(&userType)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying profile: %w", err)
	}
	return userType, true, nil
}

// AssignRole adds a role row. Assigning an existing role is a no-op.
func (s *Store) AssignRole(ctx context.Context, userID, role string) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO user_roles (user_id, role) VALUES (?, ?) ON CONFLICT (user_id, role) DO NOTHING`),
		userID, role,
	)
	if err != nil {
		return fmt.Errorf("assigning role: %w", err)
	}
	return nil
}

// UpsertProfile sets the user type for an email.
func (s *Store) UpsertProfile(ctx context.Context, email, userType string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
INSERT INTO profiles (email, user_type) VALUES (?, ?)
ON CONFLICT (email) DO UPDATE SET user_type = excluded.user_type`),
		strings.ToLower(email), userType,
	)
	if err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}
	return nil
}
