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

// ContractStore manages client contracts and their document keys.
type ContractStore struct {
	pool *pgxpool.Pool
}

// NewContractStore creates a ContractStore backed by the given pool.
func NewContractStore(pool *pgxpool.Pool) *ContractStore {
	return &ContractStore{pool: pool}
}

// Contract is a reseller agreement with a client.
type Contract struct {
	ID             string
	ClientID       string
	ContractNumber string
	StartDate      time.Time
	EndDate        time.Time
	FileKey        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ContractListing is a contract joined with its client name.
type ContractListing struct {
	Contract
	ClientName string
}

// ContractFilter narrows contract listings. Zero values mean "no filter".
// Month and Year match contracts whose end date falls in that month.
type ContractFilter struct {
	ClientID string
	Month    int
	Year     int
	Page     int
	PerPage  int
}

const contractColumns = `id, client_id, contract_number, start_date, end_date,
	COALESCE(file_key, ''), created_at, updated_at`

// Create inserts a contract and returns it with the generated id.
func (s *ContractStore) Create(ctx context.Context, c Contract) (*Contract, error) {
	var out Contract
	err := s.pool.QueryRow(ctx,
		`INSERT INTO contracts (client_id, contract_number, start_date, end_date, file_key)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		 RETURNING `+contractColumns,
		c.ClientID, c.ContractNumber, c.StartDate, c.EndDate, c.FileKey).Scan(
		&out.ID, &out.ClientID, &out.ContractNumber, &out.StartDate, &out.EndDate,
		&out.FileKey, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting contract: %w", err)
	}
	return &out, nil
}

// ByID fetches one contract. Returns ErrNotFound when absent.
func (s *ContractStore) ByID(ctx context.Context, id string) (*Contract, error) {
	var c Contract
	err := s.pool.QueryRow(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id).Scan(
		&c.ID, &c.ClientID, &c.ContractNumber, &c.StartDate, &c.EndDate,
		&c.FileKey, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying contract: %w", err)
	}
	return &c, nil
}

// List returns a page of contracts matching the filter plus the total row
// count, ordered by end date descending.
func (s *ContractStore) List(ctx context.Context, f ContractFilter) ([]ContractListing, int, error) {
	var conditions []string
	var args []any

	if f.ClientID != "" {
		args = append(args, f.ClientID)
		conditions = append(conditions, fmt.Sprintf("ct.client_id = $%d", len(args)))
	}
	if f.Month >= 1 && f.Month <= 12 {
		args = append(args, f.Month)
		conditions = append(conditions, fmt.Sprintf("EXTRACT(MONTH FROM ct.end_date) = $%d", len(args)))
	}
	if f.Year > 0 {
		args = append(args, f.Year)
		conditions = append(conditions, fmt.Sprintf("EXTRACT(YEAR FROM ct.end_date) = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM contracts ct`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting contracts: %w", err)
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

	query := `SELECT ct.id, ct.client_id, ct.contract_number, ct.start_date, ct.end_date,
			COALESCE(ct.file_key, ''), ct.created_at, ct.updated_at, COALESCE(c.name, '')
		FROM contracts ct
		LEFT JOIN clients c ON c.id = ct.client_id` + where +
		fmt.Sprintf(` ORDER BY ct.end_date DESC LIMIT $%d OFFSET $%d`,
			len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing contracts: %w", err)
	}
	defer rows.Close()

	var out []ContractListing
	for rows.Next() {
		var l ContractListing
		if err := rows.Scan(
			&l.ID, &l.ClientID, &l.ContractNumber, &l.StartDate, &l.EndDate,
			&l.FileKey, &l.CreatedAt, &l.UpdatedAt, &l.ClientName); err != nil {
			return nil, 0, fmt.Errorf("scanning contract row: %w", err)
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

// Update patches a contract's fields. Empty strings and zero times leave the
// current value untouched, except FileKey which replaces when non-empty.
func (s *ContractStore) Update(ctx context.Context, id string, c Contract) (*Contract, error) {
	var out Contract
	err := s.pool.QueryRow(ctx,
		`UPDATE contracts SET
			contract_number = COALESCE(NULLIF($2, ''), contract_number),
			start_date = COALESCE(NULLIF($3, '0001-01-01'::date), start_date),
			end_date = COALESCE(NULLIF($4, '0001-01-01'::date), end_date),
			file_key = COALESCE(NULLIF($5, ''), file_key),
			updated_at = now()
		 WHERE id = $1
		 RETURNING `+contractColumns,
		id, c.ContractNumber, c.StartDate, c.EndDate, c.FileKey).Scan(
		&out.ID, &out.ClientID, &out.ContractNumber, &out.StartDate, &out.EndDate,
		&out.FileKey, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("updating contract: %w", err)
	}
	return &out, nil
}

// Delete removes a contract. Returns ErrNotFound when the id does not exist.
func (s *ContractStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting contract: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
