// Package directory serves the admin back-office views over clients and
// user accounts, plus the client-name lookup used by the dashboard header.
package directory

import (
	"context"
	"fmt"

	"github.com/nusacloud/billing-api/internal/store"
)

// UserQueries is the user slice of the store.
type UserQueries interface {
	List(ctx context.Context) ([]store.UserListing, error)
	Delete(ctx context.Context, id string) error
}

// ClientQueries is the client slice of the store.
type ClientQueries interface {
	List(ctx context.Context) ([]store.Client, error)
	ByID(ctx context.Context, id string) (*store.Client, error)
}

type Service struct {
	users   UserQueries
	clients ClientQueries
}

func NewService(users UserQueries, clients ClientQueries) *Service {
	return &Service{users: users, clients: clients}
}

// ClientInfo is one tenant in the admin client picker.
type ClientInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Clients lists all tenants.
func (s *Service) Clients(ctx context.Context) ([]ClientInfo, error) {
	rows, err := s.clients.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	out := make([]ClientInfo, 0, len(rows))
	for _, c := range rows {
		out = append(out, ClientInfo{ID: c.ID, Name: c.Name})
	}
	return out, nil
}

// UserInfo is one account in the admin user table. Status reflects whether
// the account has finished its password setup.
type UserInfo struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	ClientID   string `json:"clientId,omitempty"`
	ClientName string `json:"clientName,omitempty"`
	Status     string `json:"status"`
	CreatedAt  string `json:"createdAt"`
}

// Users lists all accounts with their client names.
func (s *Service) Users(ctx context.Context) ([]UserInfo, error) {
	rows, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]UserInfo, 0, len(rows))
	for _, u := range rows {
		status := "pending"
		if u.PasswordSet {
			status = "active"
		}
		info := UserInfo{
			ID:         u.ID,
			Email:      u.Email,
			Role:       u.Role,
			ClientName: u.ClientName,
			Status:     status,
			CreatedAt:  u.CreatedAt.Format("2006-01-02"),
		}
		if u.ClientID != nil {
			info.ClientID = *u.ClientID
		}
		out = append(out, info)
	}
	return out, nil
}

// DeleteUser removes an account. store.ErrNotFound maps to 404 upstream.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.users.Delete(ctx, id)
}

// ClientName returns the display name for a client id.
func (s *Service) ClientName(ctx context.Context, clientID string) (string, error) {
	c, err := s.clients.ByID(ctx, clientID)
	if err != nil {
		return "", err
	}
	return c.Name, nil
}
