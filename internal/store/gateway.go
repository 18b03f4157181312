package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GatewayStore manages the managed-gateway client roster and their contracts,
// which live apart from the GCP billing clients.
type GatewayStore struct {
	pool *pgxpool.Pool
}

// NewGatewayStore creates a GatewayStore backed by the given pool.
func NewGatewayStore(pool *pgxpool.Pool) *GatewayStore {
	return &GatewayStore{pool: pool}
}

// GatewayClient is one managed-gateway customer.
type GatewayClient struct {
	ID        string
	Name      string
	Domain    string
	Sku       string
	CreatedAt time.Time
}

// GatewayContract is a gateway service agreement.
type GatewayContract struct {
	ID              string
	GatewayClientID string
	StartDate       time.Time
	EndDate         time.Time
	Notes           string
	ContactEmails   []string
	FileKey         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// GatewayContractListing is a gateway contract joined with its client.
type GatewayContractListing struct {
	GatewayContract
	ClientName string
	Domain     string
	Sku        string
}

// GatewayContractFilter narrows gateway contract listings. Zero values mean
// "no filter". Month and Year match contracts ending in that month.
type GatewayContractFilter struct {
	Month   int
	Year    int
	Page    int
	PerPage int
}

const gatewayContractColumns = `id, gateway_client_id, start_date, end_date, notes,
	contact_emails, COALESCE(file_key, ''), created_at, updated_at`

// Clients lists every gateway client, newest first.
func (s *GatewayStore) Clients(ctx context.Context) ([]GatewayClient, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, domain, sku, created_at
		 FROM gateway_clients
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing gateway clients: %w", err)
	}
	defer rows.Close()

	var out []GatewayClient
	for rows.Next() {
		var c GatewayClient
		if err := rows.Scan(&c.ID, &c.Name, &c.Domain, &c.Sku, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning gateway client row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateContract inserts a gateway contract and returns it with the generated
// id.
func (s *GatewayStore) CreateContract(ctx context.Context, c GatewayContract) (*GatewayContract, error) {
	var out GatewayContract
	err := s.pool.QueryRow(ctx,
		`INSERT INTO gateway_contracts (gateway_client_id, start_date, end_date, notes, contact_emails, file_key)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		 RETURNING `+gatewayContractColumns,
		c.GatewayClientID, c.StartDate, c.EndDate, c.Notes, c.ContactEmails, c.FileKey).Scan(
		&out.ID, &out.GatewayClientID, &out.StartDate, &out.EndDate, &out.Notes,
		&out.ContactEmails, &out.FileKey, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting gateway contract: %w", err)
	}
	return &out, nil
}

// ContractByID fetches one gateway contract with its client details. Returns
// ErrNotFound when absent.
func (s *GatewayStore) ContractByID(ctx context.Context, id string) (*GatewayContractListing, error) {
	var l GatewayContractListing
	err := s.pool.QueryRow(ctx,
		`SELECT gc.id, gc.gateway_client_id, gc.start_date, gc.end_date, gc.notes,
			gc.contact_emails, COALESCE(gc.file_key, ''), gc.created_at, gc.updated_at,
			c.name, c.domain, c.sku
		 FROM gateway_contracts gc
		 JOIN gateway_clients c ON c.id = gc.gateway_client_id
		 WHERE gc.id = $1`, id).Scan(
		&l.ID, &l.GatewayClientID, &l.StartDate, &l.EndDate, &l.Notes,
		&l.ContactEmails, &l.FileKey, &l.CreatedAt, &l.UpdatedAt,
		&l.ClientName, &l.Domain, &l.Sku)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying gateway contract: %w", err)
	}
	return &l, nil
}

// ListContracts returns a page of gateway contracts matching the filter plus
// the total row count, ordered by end date descending.
func (s *GatewayStore) ListContracts(ctx context.Context, f GatewayContractFilter) ([]GatewayContractListing, int, error) {
	var conditions []string
	var args []any

	if f.Month >= 1 && f.Month <= 12 {
		args = append(args, f.Month)
		conditions = append(conditions, fmt.Sprintf("EXTRACT(MONTH FROM gc.end_date) = $%d", len(args)))
	}
	if f.Year > 0 {
		args = append(args, f.Year)
		conditions = append(conditions, fmt.Sprintf("EXTRACT(YEAR FROM gc.end_date) = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM gateway_contracts gc`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting gateway contracts: %w", err)
	}

	perPage := f.PerPage
	if perPage <= 0 {
		perPage = 15
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)

	query := `SELECT gc.id, gc.gateway_client_id, gc.start_date, gc.end_date, gc.notes,
			gc.contact_emails, COALESCE(gc.file_key, ''), gc.created_at, gc.updated_at,
			c.name, c.domain, c.sku
		FROM gateway_contracts gc
		JOIN gateway_clients c ON c.id = gc.gateway_client_id` + where +
		fmt.Sprintf(` ORDER BY gc.end_date DESC LIMIT $%d OFFSET $%d`,
			len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing gateway contracts: %w", err)
	}
	defer rows.Close()

	var out []GatewayContractListing
	for rows.Next() {
		var l GatewayContractListing
		if err := rows.Scan(
			&l.ID, &l.GatewayClientID, &l.StartDate, &l.EndDate, &l.Notes,
			&l.ContactEmails, &l.FileKey, &l.CreatedAt, &l.UpdatedAt,
			&l.ClientName, &l.Domain, &l.Sku); err != nil {
			return nil, 0, fmt.Errorf("scanning gateway contract row: %w", err)
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

// UpdateContract patches a gateway contract. Empty strings, zero times and a
// nil email list leave the current value untouched.
func (s *GatewayStore) UpdateContract(ctx context.Context, id string, c GatewayContract) (*GatewayContract, error) {
	var out GatewayContract
	err := s.pool.QueryRow(ctx,
		`UPDATE gateway_contracts SET
			start_date = COALESCE(NULLIF($2, '0001-01-01'::date), start_date),
			end_date = COALESCE(NULLIF($3, '0001-01-01'::date), end_date),
			notes = COALESCE(NULLIF($4, ''), notes),
			contact_emails = COALESCE($5, contact_emails),
			file_key = COALESCE(NULLIF($6, ''), file_key),
			updated_at = now()
		 WHERE id = $1
		 RETURNING `+gatewayContractColumns,
		id, c.StartDate, c.EndDate, c.Notes, c.ContactEmails, c.FileKey).Scan(
		&out.ID, &out.GatewayClientID, &out.StartDate, &out.EndDate, &out.Notes,
		&out.ContactEmails, &out.FileKey, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("updating gateway contract: %w", err)
	}
	return &out, nil
}

// DeleteContract removes a gateway contract. Returns ErrNotFound when the id
// does not exist.
func (s *GatewayStore) DeleteContract(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM gateway_contracts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting gateway contract: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
