package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClientStore manages the tenant (client) records.
type ClientStore struct {
	pool *pgxpool.Pool
}

// NewClientStore creates a ClientStore backed by the given pool.
func NewClientStore(pool *pgxpool.Pool) *ClientStore {
	return &ClientStore{pool: pool}
}

// Client is a reseller tenant.
type Client struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// List returns all clients ordered by name.
func (s *ClientStore) List(ctx context.Context) ([]Client, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, created_at FROM clients ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning client row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ByID fetches one client. Returns ErrNotFound when absent.
func (s *ClientStore) ByID(ctx context.Context, id string) (*Client, error) {
	var c Client
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM clients WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying client: %w", err)
	}
	return &c, nil
}
