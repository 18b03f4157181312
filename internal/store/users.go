package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound reports that a row the caller addressed does not exist.
var ErrNotFound = errors.New("not found")

// UserStore manages user accounts.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a UserStore backed by the given pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// User is an account that can sign in. Admin users have no client; client
// users are scoped to exactly one.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	ClientID     *string
	PasswordSet  bool
	CreatedAt    time.Time
}

// UserListing is a user joined with its client name for the admin view.
type UserListing struct {
	User
	ClientName string
}

const userColumns = `id, email, password_hash, role, client_id, password_set, created_at`

// ByEmail fetches a user by email. Returns ErrNotFound when absent.
func (s *UserStore) ByEmail(ctx context.Context, email string) (*User, error) {
	return s.one(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

// ByID fetches a user by id. Returns ErrNotFound when absent.
func (s *UserStore) ByID(ctx context.Context, id string) (*User, error) {
	return s.one(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *UserStore) one(ctx context.Context, query string, args ...any) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.ClientID, &u.PasswordSet, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

// Create inserts a user and returns it with the generated id.
func (s *UserStore) Create(ctx context.Context, email, passwordHash, role string, clientID *string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, role, client_id, password_set)
		 VALUES ($1, $2, $3, $4, FALSE)
		 RETURNING `+userColumns,
		email, passwordHash, role, clientID).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.ClientID, &u.PasswordSet, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return &u, nil
}

// SetPassword replaces a user's password hash and marks the password as set.
func (s *UserStore) SetPassword(ctx context.Context, id, passwordHash string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, password_set = TRUE WHERE id = $1`,
		id, passwordHash)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkPasswordSet flips the password_set flag without touching the hash.
func (s *UserStore) MarkPasswordSet(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password_set = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("marking password set: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all users with their client names, newest first.
func (s *UserStore) List(ctx context.Context) ([]UserListing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT u.id, u.email, u.password_hash, u.role, u.client_id, u.password_set,
		        u.created_at, COALESCE(c.name, '')
		 FROM users u
		 LEFT JOIN clients c ON c.id = u.client_id
		 ORDER BY u.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var out []UserListing
	for rows.Next() {
		var l UserListing
		if err := rows.Scan(
			&l.ID, &l.Email, &l.PasswordHash, &l.Role, &l.ClientID,
			&l.PasswordSet, &l.CreatedAt, &l.ClientName); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Delete removes a user. Returns ErrNotFound when the id does not exist.
func (s *UserStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
