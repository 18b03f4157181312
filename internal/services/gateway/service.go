// Package gateway manages the managed-gateway side of the business: the
// gateway client roster and their service contracts with contact lists and
// uploaded documents. Everything here is admin-only.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nusacloud/billing-api/internal/services/contracts"
	"github.com/nusacloud/billing-api/internal/storage/blob"
	"github.com/nusacloud/billing-api/internal/store"
)

var (
	// ErrInvalidDates reports a contract whose end precedes its start.
	ErrInvalidDates = errors.New("contract end date before start date")
	// ErrInvalidEmail reports a malformed contact address.
	ErrInvalidEmail = errors.New("invalid contact email address")
)

// Queries is the gateway slice of the store.
type Queries interface {
	Clients(ctx context.Context) ([]store.GatewayClient, error)
	CreateContract(ctx context.Context, c store.GatewayContract) (*store.GatewayContract, error)
	ContractByID(ctx context.Context, id string) (*store.GatewayContractListing, error)
	ListContracts(ctx context.Context, f store.GatewayContractFilter) ([]store.GatewayContractListing, int, error)
	UpdateContract(ctx context.Context, id string, c store.GatewayContract) (*store.GatewayContract, error)
	DeleteContract(ctx context.Context, id string) error
}

// Service implements the gateway client and contract operations.
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

// Client is one gateway customer.
type Client struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
	Sku    string `json:"sku"`
}

// Clients lists the gateway client roster.
func (s *Service) Clients(ctx context.Context) ([]Client, error) {
	rows, err := s.queries.Clients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list gateway clients: %w", err)
	}
	out := make([]Client, 0, len(rows))
	for _, row := range rows {
		out = append(out, Client{ID: row.ID, Name: row.Name, Domain: row.Domain, Sku: row.Sku})
	}
	return out, nil
}

// Item is one gateway contract with its client details and derived status.
type Item struct {
	ID            string   `json:"id"`
	ClientID      string   `json:"clientId"`
	ClientName    string   `json:"clientName,omitempty"`
	Domain        string   `json:"domain,omitempty"`
	Sku           string   `json:"sku,omitempty"`
	StartDate     string   `json:"startDate"`
	EndDate       string   `json:"endDate"`
	Status        string   `json:"status"`
	Notes         string   `json:"notes"`
	ContactEmails []string `json:"contactEmails"`
	HasDocument   bool     `json:"hasDocument"`
}

func (s *Service) item(c store.GatewayContract, clientName, domain, sku string) Item {
	emails := c.ContactEmails
	if emails == nil {
		emails = []string{}
	}
	return Item{
		ID:            c.ID,
		ClientID:      c.GatewayClientID,
		ClientName:    clientName,
		Domain:        domain,
		Sku:           sku,
		StartDate:     c.StartDate.Format("2006-01-02"),
		EndDate:       c.EndDate.Format("2006-01-02"),
		Status:        contracts.StatusOf(c.EndDate, s.now()),
		Notes:         c.Notes,
		ContactEmails: emails,
		HasDocument:   c.FileKey != "",
	}
}

// normalizeEmails lowercases, trims and sanity-checks every contact address.
func normalizeEmails(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		at := strings.Index(e, "@")
		if at <= 0 || at == len(e)-1 || !strings.Contains(e[at:], ".") {
			return nil, fmt.Errorf("%w: %s", ErrInvalidEmail, e)
		}
		out = append(out, e)
	}
	return out, nil
}

// CreateInput carries a new gateway contract plus its optional document.
type CreateInput struct {
	ClientID      string
	StartDate     time.Time
	EndDate       time.Time
	Notes         string
	ContactEmails []string
	Document      io.Reader
	Filename      string
	ContentType   string
}

// Create stores a gateway contract, uploading the document first so a failed
// upload never leaves a dangling record.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Item, error) {
	if in.EndDate.Before(in.StartDate) {
		return nil, ErrInvalidDates
	}
	emails, err := normalizeEmails(in.ContactEmails)
	if err != nil {
		return nil, err
	}

	fileKey := ""
	if in.Document != nil {
		fileKey = s.documentKey(in.StartDate, in.Filename)
		if _, err := s.documents.Put(ctx, fileKey, in.Document, blob.PutOptions{ContentType: in.ContentType}); err != nil {
			return nil, fmt.Errorf("upload gateway contract document: %w", err)
		}
	}

	created, err := s.queries.CreateContract(ctx, store.GatewayContract{
		GatewayClientID: in.ClientID,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		Notes:           in.Notes,
		ContactEmails:   emails,
		FileKey:         fileKey,
	})
	if err != nil {
		if fileKey != "" {
			s.cleanupDocument(ctx, fileKey)
		}
		return nil, err
	}

	item := s.item(*created, "", "", "")
	return &item, nil
}

// Details returns one gateway contract with its client join.
func (s *Service) Details(ctx context.Context, id string) (*Item, error) {
	row, err := s.queries.ContractByID(ctx, id)
	if err != nil {
		return nil, err
	}
	item := s.item(row.GatewayContract, row.ClientName, row.Domain, row.Sku)
	return &item, nil
}

// List returns a page of gateway contracts with derived statuses plus the
// total row count.
func (s *Service) List(ctx context.Context, f store.GatewayContractFilter) ([]Item, int, error) {
	rows, total, err := s.queries.ListContracts(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list gateway contracts: %w", err)
	}
	out := make([]Item, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.item(row.GatewayContract, row.ClientName, row.Domain, row.Sku))
	}
	return out, total, nil
}

// UpdateInput carries the editable gateway contract fields; zero values leave
// the stored value in place. A nil ContactEmails keeps the existing list.
type UpdateInput struct {
	StartDate     time.Time
	EndDate       time.Time
	Notes         string
	ContactEmails []string
	Document      io.Reader
	Filename      string
	ContentType   string
}

// Update patches a gateway contract. When a new document arrives the old one
// is removed best-effort after the record is updated.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Item, error) {
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && in.EndDate.Before(in.StartDate) {
		return nil, ErrInvalidDates
	}
	var emails []string
	if in.ContactEmails != nil {
		var err error
		if emails, err = normalizeEmails(in.ContactEmails); err != nil {
			return nil, err
		}
	}

	existing, err := s.queries.ContractByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fileKey := ""
	if in.Document != nil {
		fileKey = s.documentKey(s.now(), in.Filename)
		if _, err := s.documents.Put(ctx, fileKey, in.Document, blob.PutOptions{ContentType: in.ContentType}); err != nil {
			return nil, fmt.Errorf("upload gateway contract document: %w", err)
		}
	}

	updated, err := s.queries.UpdateContract(ctx, id, store.GatewayContract{
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		Notes:         in.Notes,
		ContactEmails: emails,
		FileKey:       fileKey,
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

	item := s.item(*updated, existing.ClientName, existing.Domain, existing.Sku)
	return &item, nil
}

// Delete removes a gateway contract and, best-effort, its stored document.
func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.queries.ContractByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.queries.DeleteContract(ctx, id); err != nil {
		return err
	}
	if existing.FileKey != "" {
		s.cleanupDocument(ctx, existing.FileKey)
	}
	return nil
}

// ViewURL returns a signed URL for the contract document.
func (s *Service) ViewURL(ctx context.Context, id string) (string, error) {
	c, err := s.storedContract(ctx, id)
	if err != nil {
		return "", err
	}
	return s.documents.SignedURL(ctx, c.FileKey, s.signTTL)
}

// Document streams the contract document.
func (s *Service) Document(ctx context.Context, id string) (io.ReadCloser, blob.ObjectInfo, error) {
	c, err := s.storedContract(ctx, id)
	if err != nil {
		return nil, blob.ObjectInfo{}, err
	}
	return s.documents.Get(ctx, c.FileKey)
}

func (s *Service) storedContract(ctx context.Context, id string) (*store.GatewayContractListing, error) {
	c, err := s.queries.ContractByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.FileKey == "" {
		return nil, blob.ErrNotFound
	}
	return c, nil
}

// documentKey shards gateway documents by contract year.
func (s *Service) documentKey(startDate time.Time, filename string) string {
	year := startDate.Year()
	if year <= 1 {
		year = s.now().Year()
	}
	ext := path.Ext(filename)
	return fmt.Sprintf("contracts/gateway/%d/%s%s", year, uuid.NewString(), ext)
}

// cleanupDocument removes a stored document; failures are logged, never
// surfaced, since the record change already succeeded.
func (s *Service) cleanupDocument(ctx context.Context, key string) {
	if err := s.documents.Delete(ctx, key); err != nil {
		s.logger.Warn("gateway contract document cleanup failed", "key", key, "error", err)
	}
}
