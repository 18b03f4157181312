package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsStore manages operator-wide settings, currently the internal
// notification email list.
type SettingsStore struct {
	pool *pgxpool.Pool
}

// NewSettingsStore creates a SettingsStore backed by the given pool.
func NewSettingsStore(pool *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

// InternalEmail is one address on the operator notification list.
type InternalEmail struct {
	ID        int64
	Email     string
	CreatedAt time.Time
}

// InternalEmails returns the notification email list, oldest first.
func (s *SettingsStore) InternalEmails(ctx context.Context) ([]InternalEmail, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, email, created_at FROM internal_emails ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing internal emails: %w", err)
	}
	defer rows.Close()

	var out []InternalEmail
	for rows.Next() {
		var e InternalEmail
		if err := rows.Scan(&e.ID, &e.Email, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning internal email row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AddInternalEmail appends an address to the list. Duplicate addresses are
// upserted so the call is idempotent.
func (s *SettingsStore) AddInternalEmail(ctx context.Context, email string) (*InternalEmail, error) {
	var e InternalEmail
	err := s.pool.QueryRow(ctx,
		`INSERT INTO internal_emails (email)
		 VALUES ($1)
		 ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		 RETURNING id, email, created_at`, email).Scan(&e.ID, &e.Email, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting internal email: %w", err)
	}
	return &e, nil
}

// DeleteInternalEmail removes an address. Returns ErrNotFound when absent.
func (s *SettingsStore) DeleteInternalEmail(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM internal_emails WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting internal email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
