package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// InvoiceStore manages invoice records and their document keys.
type InvoiceStore struct {
	pool *pgxpool.Pool
}

// NewInvoiceStore creates an InvoiceStore backed by the given pool.
func NewInvoiceStore(pool *pgxpool.Pool) *InvoiceStore {
	return &InvoiceStore{pool: pool}
}

// Invoice is one monthly invoice issued to a client.
type Invoice struct {
	ID            string
	ClientID      string
	InvoiceNumber string
	PeriodMonth   time.Time
	Amount        decimal.Decimal
	Status        string
	FileKey       string
	PaymentDate   *time.Time
	Notes         string
	CreatedAt     time.Time
}

// InvoiceListing is an invoice joined with its client name for admin views.
type InvoiceListing struct {
	Invoice
	ClientName string
}

// InvoiceFilter narrows admin invoice listings. Zero values mean "no filter".
type InvoiceFilter struct {
	Status   string
	ClientID string
	Month    int
	Year     int
	Page     int
	PerPage  int
}

const invoiceColumns = `id, client_id, invoice_number, period_month, amount::text,
	status, COALESCE(file_key, ''), payment_date, COALESCE(notes, ''), created_at`

func scanInvoice(row pgx.Row, inv *Invoice) error {
	var amountRaw string
	if err := row.Scan(
		&inv.ID, &inv.ClientID, &inv.InvoiceNumber, &inv.PeriodMonth, &amountRaw,
		&inv.Status, &inv.FileKey, &inv.PaymentDate, &inv.Notes, &inv.CreatedAt); err != nil {
		return err
	}
	var err error
	inv.Amount, err = parseDecimal(amountRaw)
	return err
}

// ListByClient returns a client's invoices, newest period first.
func (s *InvoiceStore) ListByClient(ctx context.Context, clientID string) ([]Invoice, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+invoiceColumns+`
		 FROM invoices
		 WHERE client_id = $1
		 ORDER BY period_month DESC, created_at DESC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("listing client invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := scanInvoice(rows, &inv); err != nil {
			return nil, fmt.Errorf("scanning invoice row: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// ListAdmin returns a page of invoices matching the filter plus the total
// row count, ordered by period then creation time descending.
func (s *InvoiceStore) ListAdmin(ctx context.Context, f InvoiceFilter) ([]InvoiceListing, int, error) {
	var conditions []string
	var args []any

	if f.Status != "" {
		args = append(args, f.Status)
		conditions = append(conditions, fmt.Sprintf("i.status = $%d", len(args)))
	}
	if f.ClientID != "" {
		args = append(args, f.ClientID)
		conditions = append(conditions, fmt.Sprintf("i.client_id = $%d", len(args)))
	}
	if f.Month >= 1 && f.Month <= 12 {
		args = append(args, f.Month)
		conditions = append(conditions, fmt.Sprintf("EXTRACT(MONTH FROM i.period_month) = $%d", len(args)))
	}
	if f.Year > 0 {
		args = append(args, f.Year)
		conditions = append(conditions, fmt.Sprintf("EXTRACT(YEAR FROM i.period_month) = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM invoices i`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting invoices: %w", err)
	}

	perPage := f.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)

	query := `SELECT i.id, i.client_id, i.invoice_number, i.period_month, i.amount::text,
			i.status, COALESCE(i.file_key, ''), i.payment_date, COALESCE(i.notes, ''),
			i.created_at, COALESCE(c.name, '')
		FROM invoices i
		LEFT JOIN clients c ON c.id = i.client_id` + where +
		fmt.Sprintf(` ORDER BY i.period_month DESC, i.created_at DESC LIMIT $%d OFFSET $%d`,
			len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()

	var out []InvoiceListing
	for rows.Next() {
		var (
			l         InvoiceListing
			amountRaw string
		)
		if err := rows.Scan(
			&l.ID, &l.ClientID, &l.InvoiceNumber, &l.PeriodMonth, &amountRaw,
			&l.Status, &l.FileKey, &l.PaymentDate, &l.Notes, &l.CreatedAt,
			&l.ClientName); err != nil {
			return nil, 0, fmt.Errorf("scanning invoice listing: %w", err)
		}
		if l.Amount, err = parseDecimal(amountRaw); err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

// ByID fetches one invoice. Returns ErrNotFound when absent.
func (s *InvoiceStore) ByID(ctx context.Context, id string) (*Invoice, error) {
	var inv Invoice
	err := scanInvoice(s.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id), &inv)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying invoice: %w", err)
	}
	return &inv, nil
}

// UpdateStatus sets an invoice's status. Returns ErrNotFound when absent.
func (s *InvoiceStore) UpdateStatus(ctx context.Context, id, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE invoices SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("updating invoice status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDetails patches the admin-editable invoice fields. Nil pointers
// leave the current value untouched.
func (s *InvoiceStore) UpdateDetails(ctx context.Context, id string, status *string, paymentDate *time.Time, notes *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE invoices SET
			status = COALESCE($2, status),
			payment_date = COALESCE($3, payment_date),
			notes = COALESCE($4, notes)
		 WHERE id = $1`, id, status, paymentDate, notes)
	if err != nil {
		return fmt.Errorf("updating invoice details: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
