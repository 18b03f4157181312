package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationStore manages per-client in-app notifications.
type NotificationStore struct {
	pool *pgxpool.Pool
}

// NewNotificationStore creates a NotificationStore backed by the given pool.
func NewNotificationStore(pool *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{pool: pool}
}

// Notification is one in-app message shown to a client.
type Notification struct {
	ID        string
	ClientID  string
	Title     string
	Message   string
	Type      string
	IsRead    bool
	CreatedAt time.Time
}

// Unread returns a client's unread notifications, newest first.
func (s *NotificationStore) Unread(ctx context.Context, clientID string) ([]Notification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, client_id, title, message, type, is_read, created_at
		 FROM notifications
		 WHERE client_id = $1 AND NOT is_read
		 ORDER BY created_at DESC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.ClientID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification row: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Create inserts a notification for a client.
func (s *NotificationStore) Create(ctx context.Context, clientID, title, message, kind string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (client_id, title, message, type)
		 VALUES ($1, $2, $3, $4)`, clientID, title, message, kind)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

// MarkRead flags a notification as read, scoped to the owning client.
func (s *NotificationStore) MarkRead(ctx context.Context, clientID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND client_id = $2`,
		id, clientID)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a notification, scoped to the owning client.
func (s *NotificationStore) Delete(ctx context.Context, clientID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND client_id = $2`, id, clientID)
	if err != nil {
		return fmt.Errorf("deleting notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
