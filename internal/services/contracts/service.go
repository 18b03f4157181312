// Package contracts manages client contract records, their uploaded
// documents and the derived lifecycle status.
package contracts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/nusacloud/billing-api/internal/scope"
	"github.com/nusacloud/billing-api/internal/storage/blob"
	"github.com/nusacloud/billing-api/internal/store"
)

// ErrInvalidDates reports a contract whose end precedes its start.
var ErrInvalidDates = errors.New("contract end date before start date")

// Status labels derived from the end date.
const (
	StatusActive       = "Active"
	StatusExpiringSoon = "Expiring Soon"
	StatusExpired      = "Expired"
)

// expiryWarningWindow is how close to the end date a contract flips to
// Expiring Soon.
const expiryWarningWindow = 30 * 24 * time.Hour

// Queries is the contract slice of the store.
type Queries interface {
	Create(ctx context.Context, c store.Contract) (*store.Contract, error)
	ByID(ctx context.Context, id string) (*store.Contract, error)
	List(ctx context.Context, f store.ContractFilter) ([]store.ContractListing, int, error)
	Update(ctx context.Context, id string, c store.Contract) (*store.Contract, error)
	Delete(ctx context.Context, id string) error
}

// Service implements the contract operations.
type Service struct {
	queries   Queries
	documents blob.Store
	signTTL   time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(queries Queries, documents blob.Store, signTTL time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if signTTL <= 0 {
		signTTL = time.Minute
	}
	return &Service{queries: queries, documents: documents, signTTL: signTTL, logger: logger, now: time.Now}
}

// Item is one contract with its derived status.
type Item struct {
	ID             string `json:"id"`
	ClientID       string `json:"clientId"`
	ClientName     string `json:"clientName,omitempty"`
	ContractNumber string `json:"contractNumber"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
	Status         string `json:"status"`
	HasDocument    bool   `json:"hasDocument"`
}

// StatusOf derives the lifecycle label for an end date relative to now.
func StatusOf(endDate, now time.Time) string {
	switch {
	case endDate.Before(now):
		return StatusExpired
	case endDate.Sub(now) <= expiryWarningWindow:
		return StatusExpiringSoon
	default:
		return StatusActive
	}
}

// StatusFor derives the lifecycle label from the end date.
func (s *Service) StatusFor(endDate time.Time) string {
	return StatusOf(endDate, s.now())
}

func (s *Service) item(c store.Contract, clientName string) Item {
	return Item{
		ID:             c.ID,
		ClientID:       c.ClientID,
		ClientName:     clientName,
		ContractNumber: c.ContractNumber,
		StartDate:      c.StartDate.Format("2006-01-02"),
		EndDate:        c.EndDate.Format("2006-01-02"),
		Status:         s.StatusFor(c.EndDate),
		HasDocument:    c.FileKey != "",
	}
}

// CreateInput carries a new contract plus its optional document upload.
type CreateInput struct {
	ClientID       string
	ContractNumber string
	StartDate      time.Time
	EndDate        time.Time
	Document       io.Reader
	Filename       string
	ContentType    string
}

// Create stores a contract, uploading the document first so a failed upload
// never leaves a dangling record.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Item, error) {
	if in.EndDate.Before(in.StartDate) {
		return nil, ErrInvalidDates
	}

	fileKey := ""
	if in.Document != nil {
		fileKey = s.documentKey(in.ClientID, in.Filename)
		if _, err := s.documents.Put(ctx, fileKey, in.Document, blob.PutOptions{ContentType: in.ContentType}); err != nil {
			return nil, fmt.Errorf("upload contract document: %w", err)
		}
	}

	created, err := s.queries.Create(ctx, store.Contract{
		ClientID:       in.ClientID,
		ContractNumber: in.ContractNumber,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		FileKey:        fileKey,
	})
	if err != nil {
		if fileKey != "" {
			s.cleanupDocument(ctx, fileKey)
		}
		return nil, err
	}

	item := s.item(*created, "")
	return &item, nil
}

// List returns a page of contracts with derived statuses plus the total row
// count.
func (s *Service) List(ctx context.Context, f store.ContractFilter) ([]Item, int, error) {
	rows, total, err := s.queries.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list contracts: %w", err)
	}
	out := make([]Item, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.item(row.Contract, row.ClientName))
	}
	return out, total, nil
}

// UpdateInput carries the editable contract fields; zero values leave the
// stored value in place.
type UpdateInput struct {
	ContractNumber string
	StartDate      time.Time
	EndDate        time.Time
	Document       io.Reader
	Filename       string
	ContentType    string
}

// Update patches a contract. When a new document arrives the old one is
// removed best-effort after the record is updated.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Item, error) {
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && in.EndDate.Before(in.StartDate) {
		return nil, ErrInvalidDates
	}

	existing, err := s.queries.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fileKey := ""
	if in.Document != nil {
		fileKey = s.documentKey(existing.ClientID, in.Filename)
		if _, err := s.documents.Put(ctx, fileKey, in.Document, blob.PutOptions{ContentType: in.ContentType}); err != nil {
			return nil, fmt.Errorf("upload contract document: %w", err)
		}
	}

	updated, err := s.queries.Update(ctx, id, store.Contract{
		ContractNumber: in.ContractNumber,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		FileKey:        fileKey,
	})
	if err != nil {
		if fileKey != "" {
			s.cleanupDocument(ctx, fileKey)
		}
		return nil, err
	}

	if fileKey != "" && existing.FileKey != "" && existing.FileKey != fileKey {
		s.cleanupDocument(ctx, existing.FileKey)
	}

	item := s.item(*updated, "")
	return &item, nil
}

// Delete removes a contract and, best-effort, its stored document.
func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.queries.ByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.queries.Delete(ctx, id); err != nil {
		return err
	}
	if existing.FileKey != "" {
		s.cleanupDocument(ctx, existing.FileKey)
	}
	return nil
}

// ViewURL returns a signed URL for the contract document after verifying
// the caller may see it.
func (s *Service) ViewURL(ctx context.Context, role scope.Role, callerClientID, contractID string) (string, error) {
	c, err := s.ownedContract(ctx, role, callerClientID, contractID)
	if err != nil {
		return "", err
	}
	return s.documents.SignedURL(ctx, c.FileKey, s.signTTL)
}

// Document streams the contract document after verifying ownership.
func (s *Service) Document(ctx context.Context, role scope.Role, callerClientID, contractID string) (io.ReadCloser, blob.ObjectInfo, error) {
	c, err := s.ownedContract(ctx, role, callerClientID, contractID)
	if err != nil {
		return nil, blob.ObjectInfo{}, err
	}
	return s.documents.Get(ctx, c.FileKey)
}

func (s *Service) ownedContract(ctx context.Context, role scope.Role, callerClientID, contractID string) (*store.Contract, error) {
	c, err := s.queries.ByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if role != scope.RoleAdmin {
		if _, err := scope.Resolve(role, callerClientID, c.ClientID); err != nil {
			return nil, err
		}
	}
	if c.FileKey == "" {
		return nil, blob.ErrNotFound
	}
	return c, nil
}

func (s *Service) documentKey(clientID, filename string) string {
	ext := path.Ext(filename)
	return fmt.Sprintf("contracts/%s/%s%s", clientID, uuid.NewString(), ext)
}

// cleanupDocument removes a stored document; failures are logged, never
// surfaced, since the record change already succeeded.
func (s *Service) cleanupDocument(ctx context.Context, key string) {
	if err := s.documents.Delete(ctx, key); err != nil {
		s.logger.Warn("contract document cleanup failed", "key", key, "error", err)
	}
}
