// Package settings manages operator-wide configuration, currently the
// internal notification email list.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nusacloud/billing-api/internal/store"
)

// ErrInvalidEmail reports a malformed address.
var ErrInvalidEmail = errors.New("invalid email address")

// Queries is the settings slice of the store.
type Queries interface {
	InternalEmails(ctx context.Context) ([]store.InternalEmail, error)
	AddInternalEmail(ctx context.Context, email string) (*store.InternalEmail, error)
	DeleteInternalEmail(ctx context.Context, id int64) error
}

type Service struct {
	queries Queries
}

func NewService(queries Queries) *Service {
	return &Service{queries: queries}
}

// Email is one address on the internal notification list.
type Email struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Emails returns the notification address list.
func (s *Service) Emails(ctx context.Context) ([]Email, error) {
	rows, err := s.queries.InternalEmails(ctx)
	if err != nil {
		return nil, fmt.Errorf("list internal emails: %w", err)
	}
	out := make([]Email, 0, len(rows))
	for _, e := range rows {
		out = append(out, Email{ID: e.ID, Email: e.Email})
	}
	return out, nil
}

// AddEmail appends an address after a light sanity check.
func (s *Service) AddEmail(ctx context.Context, email string) (*Email, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || !strings.Contains(email[at:], ".") {
		return nil, ErrInvalidEmail
	}
	row, err := s.queries.AddInternalEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("add internal email: %w", err)
	}
	return &Email{ID: row.ID, Email: row.Email}, nil
}

// RemoveEmail deletes an address. store.ErrNotFound maps to 404 upstream.
func (s *Service) RemoveEmail(ctx context.Context, id int64) error {
	return s.queries.DeleteInternalEmail(ctx, id)
}
