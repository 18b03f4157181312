// Package notifications serves the per-client in-app notification feed.
package notifications

import (
	"context"
	"fmt"

	"github.com/nusacloud/billing-api/internal/scope"
	"github.com/nusacloud/billing-api/internal/store"
)

// Queries is the notification slice of the store.
type Queries interface {
	Unread(ctx context.Context, clientID string) ([]store.Notification, error)
	MarkRead(ctx context.Context, clientID, id string) error
	Delete(ctx context.Context, clientID, id string) error
}

type Service struct {
	queries Queries
}

func NewService(queries Queries) *Service {
	return &Service{queries: queries}
}

// Item is one notification shown in the client dashboard.
type Item struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	CreatedAt string `json:"createdAt"`
}

// Unread lists the caller's unread notifications. Admins have no feed and
// get an empty list.
func (s *Service) Unread(ctx context.Context, role scope.Role, clientID string) ([]Item, error) {
	if role == scope.RoleAdmin {
		return []Item{}, nil
	}
	scoped, err := scope.Resolve(role, clientID, "")
	if err != nil {
		return nil, err
	}
	rows, err := s.queries.Unread(ctx, scoped)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out := make([]Item, 0, len(rows))
	for _, n := range rows {
		out = append(out, Item{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      n.Type,
			CreatedAt: n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out, nil
}

// MarkRead flags one of the caller's notifications as read. A no-op for
// admins.
func (s *Service) MarkRead(ctx context.Context, role scope.Role, clientID, id string) error {
	if role == scope.RoleAdmin {
		return nil
	}
	scoped, err := scope.Resolve(role, clientID, "")
	if err != nil {
		return err
	}
	return s.queries.MarkRead(ctx, scoped, id)
}

// Delete removes one of the caller's notifications. A no-op for admins.
func (s *Service) Delete(ctx context.Context, role scope.Role, clientID, id string) error {
	if role == scope.RoleAdmin {
		return nil
	}
	scoped, err := scope.Resolve(role, clientID, "")
	if err != nil {
		return err
	}
	return s.queries.Delete(ctx, scoped, id)
}
