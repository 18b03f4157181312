// Package invoices manages invoice listings, the approval workflow and
// document delivery (signed URLs or streamed downloads, plus PDF render).
package invoices

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/nusacloud/billing-api/internal/format"
	"github.com/nusacloud/billing-api/internal/render"
	"github.com/nusacloud/billing-api/internal/scope"
	"github.com/nusacloud/billing-api/internal/storage/blob"
	"github.com/nusacloud/billing-api/internal/store"
)

var (
	// ErrInvalidStatus reports a transition to an unknown invoice status.
	ErrInvalidStatus = errors.New("unknown invoice status")
	// ErrNoDocument reports an invoice without an uploaded document.
	ErrNoDocument = errors.New("invoice has no document")
)

var validStatuses = map[string]bool{
	"pending":  true,
	"paid":     true,
	"overdue":  true,
	"failed":   true,
	"canceled": true,
}

// Queries is the invoice slice of the store.
type Queries interface {
	ListByClient(ctx context.Context, clientID string) ([]store.Invoice, error)
	ListAdmin(ctx context.Context, f store.InvoiceFilter) ([]store.InvoiceListing, int, error)
	ByID(ctx context.Context, id string) (*store.Invoice, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdateDetails(ctx context.Context, id string, status *string, paymentDate *time.Time, notes *string) error
}

// ClientNamer resolves a client id to its display name.
type ClientNamer interface {
	ClientName(ctx context.Context, clientID string) (string, error)
}

// Service implements the invoice operations.
type Service struct {
	queries   Queries
	documents blob.Store
	renderer  render.Renderer
	formatter *format.Formatter
	clients   ClientNamer
	signTTL   time.Duration
	logger    *slog.Logger
}

func NewService(queries Queries, documents blob.Store, renderer render.Renderer, formatter *format.Formatter, clients ClientNamer, signTTL time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if signTTL <= 0 {
		signTTL = time.Minute
	}
	return &Service{
		queries:   queries,
		documents: documents,
		renderer:  renderer,
		formatter: formatter,
		clients:   clients,
		signTTL:   signTTL,
		logger:    logger,
	}
}

// Item is one invoice shown to a client.
type Item struct {
	ID            string  `json:"id"`
	InvoiceNumber string  `json:"invoiceNumber"`
	Period        string  `json:"period"`
	Amount        string  `json:"amount"`
	RawAmount     float64 `json:"rawAmount"`
	Status        string  `json:"status"`
	HasDocument   bool    `json:"hasDocument"`
}

// ListForClient returns the scoped client's invoices, newest period first.
func (s *Service) ListForClient(ctx context.Context, role scope.Role, callerClientID, requestedClientID string) ([]Item, error) {
	scoped, err := scope.Resolve(role, callerClientID, requestedClientID)
	if err != nil {
		return nil, err
	}
	rows, err := s.queries.ListByClient(ctx, scoped)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	out := make([]Item, 0, len(rows))
	for _, inv := range rows {
		out = append(out, s.item(inv))
	}
	return out, nil
}

func (s *Service) item(inv store.Invoice) Item {
	return Item{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		Period:        inv.PeriodMonth.Format("January 2006"),
		Amount:        s.formatter.Currency(inv.Amount),
		RawAmount:     inv.Amount.InexactFloat64(),
		Status:        inv.Status,
		HasDocument:   inv.FileKey != "",
	}
}

// AdminItem is one invoice row in the admin listing.
type AdminItem struct {
	Item
	ClientID    string `json:"clientId"`
	ClientName  string `json:"clientName"`
	PaymentDate string `json:"paymentDate,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// MonthGroup collects the invoices of one calendar month.
type MonthGroup struct {
	Month    string      `json:"month"`
	Invoices []AdminItem `json:"invoices"`
}

// AdminList is a paginated, month-grouped admin invoice listing.
type AdminList struct {
	Groups     []MonthGroup `json:"groups"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	PerPage    int          `json:"perPage"`
	TotalPages int          `json:"totalPages"`
}

// ListAdmin returns invoices for the back office, grouped by month label.
func (s *Service) ListAdmin(ctx context.Context, f store.InvoiceFilter) (*AdminList, error) {
	rows, total, err := s.queries.ListAdmin(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	perPage := f.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}

	groupIdx := make(map[string]int)
	var groups []MonthGroup
	for _, row := range rows {
		label := row.PeriodMonth.Format("January 2006")
		i, ok := groupIdx[label]
		if !ok {
			i = len(groups)
			groupIdx[label] = i
			groups = append(groups, MonthGroup{Month: label})
		}
		item := AdminItem{
			Item:       s.item(row.Invoice),
			ClientID:   row.ClientID,
			ClientName: row.ClientName,
			Notes:      row.Notes,
		}
		if row.PaymentDate != nil {
			item.PaymentDate = row.PaymentDate.Format("2006-01-02")
		}
		groups[i].Invoices = append(groups[i].Invoices, item)
	}

	// rows arrive period-descending; keep group order aligned with that
	sort.SliceStable(groups, func(i, j int) bool {
		return groupIdx[groups[i].Month] < groupIdx[groups[j].Month]
	})

	totalPages := (total + perPage - 1) / perPage
	return &AdminList{Groups: groups, Total: total, Page: page, PerPage: perPage, TotalPages: totalPages}, nil
}

// UpdateStatus moves an invoice to a new status. Unknown targets are
// rejected; re-applying the current status is accepted.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) error {
	if !validStatuses[status] {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.queries.UpdateStatus(ctx, id, status)
}

// DetailsPatch carries the admin-editable invoice fields. Nil means leave
// unchanged.
type DetailsPatch struct {
	Status      *string
	PaymentDate *time.Time
	Notes       *string
}

// UpdateDetails patches the invoice's status, payment date and notes.
func (s *Service) UpdateDetails(ctx context.Context, id string, patch DetailsPatch) error {
	if patch.Status != nil && !validStatuses[*patch.Status] {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *patch.Status)
	}
	return s.queries.UpdateDetails(ctx, id, patch.Status, patch.PaymentDate, patch.Notes)
}

// ViewURL returns a signed URL for the invoice document after verifying the
// caller may see it. blob.ErrSignedURLUnavailable means the handler should
// stream via Document instead.
func (s *Service) ViewURL(ctx context.Context, role scope.Role, callerClientID, invoiceID string) (string, error) {
	inv, err := s.ownedInvoice(ctx, role, callerClientID, invoiceID)
	if err != nil {
		return "", err
	}
	return s.documents.SignedURL(ctx, inv.FileKey, s.signTTL)
}

// Document streams the invoice document after verifying ownership.
func (s *Service) Document(ctx context.Context, role scope.Role, callerClientID, invoiceID string) (io.ReadCloser, blob.ObjectInfo, error) {
	inv, err := s.ownedInvoice(ctx, role, callerClientID, invoiceID)
	if err != nil {
		return nil, blob.ObjectInfo{}, err
	}
	return s.documents.Get(ctx, inv.FileKey)
}

func (s *Service) ownedInvoice(ctx context.Context, role scope.Role, callerClientID, invoiceID string) (*store.Invoice, error) {
	inv, err := s.queries.ByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if role != scope.RoleAdmin {
		if _, err := scope.Resolve(role, callerClientID, inv.ClientID); err != nil {
			return nil, err
		}
	}
	if inv.FileKey == "" {
		return nil, ErrNoDocument
	}
	return inv, nil
}

var invoiceTemplate = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Invoice {{.InvoiceNumber}}</title></head>
<body>
  <h1>Invoice {{.InvoiceNumber}}</h1>
  <p>Client: {{.ClientName}}</p>
  <p>Period: {{.Period}}</p>
  <p>Status: {{.Status}}</p>
  <h2>Total: {{.Amount}}</h2>
  {{if .Notes}}<p>{{.Notes}}</p>{{end}}
</body>
</html>`))

// GeneratePDF renders the invoice as a PDF via the external renderer. Client
// callers may only render their own invoices.
func (s *Service) GeneratePDF(ctx context.Context, role scope.Role, callerClientID, id string) ([]byte, error) {
	inv, err := s.queries.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role != scope.RoleAdmin {
		if _, err := scope.Resolve(role, callerClientID, inv.ClientID); err != nil {
			return nil, err
		}
	}

	clientName := ""
	if s.clients != nil {
		if name, err := s.clients.ClientName(ctx, inv.ClientID); err != nil {
			s.logger.Warn("resolve client name for invoice pdf", "invoice", id, "error", err)
		} else {
			clientName = name
		}
	}

	var buf bytes.Buffer
	err = invoiceTemplate.Execute(&buf, map[string]string{
		"InvoiceNumber": inv.InvoiceNumber,
		"ClientName":    clientName,
		"Period":        inv.PeriodMonth.Format("January 2006"),
		"Status":        inv.Status,
		"Amount":        s.formatter.Currency(inv.Amount),
		"Notes":         inv.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("render invoice html: %w", err)
	}

	pdf, err := s.renderer.RenderPDF(ctx, buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return pdf, nil
}
