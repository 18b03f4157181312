package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// BillingStore reads the monthly pre-aggregated billing tables.
type BillingStore struct {
	pool *pgxpool.Pool
}

// NewBillingStore creates a BillingStore backed by the given pool.
func NewBillingStore(pool *pgxpool.Pool) *BillingStore {
	return &BillingStore{pool: pool}
}

// Project is a GCP project owned by a client.
type Project struct {
	ProjectID string
	Name      string
}

// KeyedCost is a single aggregate bucket: a service or project name with its
// summed cost.
type KeyedCost struct {
	Key  string
	Cost decimal.Decimal
}

// MonthlyCost is a per-month aggregate for one grouping key.
type MonthlyCost struct {
	Month time.Time
	Key   string
	Cost  decimal.Decimal
}

// ClientProjects lists the projects belonging to a client, ordered by name.
func (s *BillingStore) ClientProjects(ctx context.Context, clientID string) ([]Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT project_id, COALESCE(name, project_id)
		 FROM projects
		 WHERE client_id = $1
		 ORDER BY name, project_id`, clientID)
	if err != nil {
		return nil, fmt.Errorf("querying client projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ProjectID, &p.Name); err != nil {
			return nil, fmt.Errorf("scanning project row: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ServiceBreakdown returns per-service monthly costs for the given month.
// Rows with a NULL service are the authoritative monthly totals and are
// excluded here.
func (s *BillingStore) ServiceBreakdown(ctx context.Context, clientID string, month time.Time) ([]KeyedCost, error) {
	return s.keyedCosts(ctx,
		`SELECT gcp_services, COALESCE(SUM(cost), 0)::text
		 FROM billing_data
		 WHERE client_id = $1 AND usage_month = $2 AND gcp_services IS NOT NULL
		 GROUP BY gcp_services
		 ORDER BY SUM(cost) DESC`, clientID, month)
}

// ProjectBreakdown returns per-project monthly costs for the given month.
func (s *BillingStore) ProjectBreakdown(ctx context.Context, clientID string, month time.Time) ([]KeyedCost, error) {
	return s.keyedCosts(ctx,
		`SELECT project_id, COALESCE(SUM(cost), 0)::text
		 FROM billing_data
		 WHERE client_id = $1 AND usage_month = $2
		   AND gcp_services IS NOT NULL AND project_id IS NOT NULL
		 GROUP BY project_id
		 ORDER BY SUM(cost) DESC`, clientID, month)
}

func (s *BillingStore) keyedCosts(ctx context.Context, query string, args ...any) ([]KeyedCost, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying keyed costs: %w", err)
	}
	defer rows.Close()

	var out []KeyedCost
	for rows.Next() {
		var (
			kc  KeyedCost
			raw string
		)
		if err := rows.Scan(&kc.Key, &raw); err != nil {
			return nil, fmt.Errorf("scanning keyed cost: %w", err)
		}
		if kc.Cost, err = parseDecimal(raw); err != nil {
			return nil, err
		}
		out = append(out, kc)
	}
	return out, rows.Err()
}

// MonthlyTotal returns the authoritative invoice-grade total for a month: the
// billing_data row recorded without a service split. Zero when absent.
func (s *BillingStore) MonthlyTotal(ctx context.Context, clientID string, month time.Time) (decimal.Decimal, error) {
	var raw string
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(cost), 0)::text
		 FROM billing_data
		 WHERE client_id = $1 AND usage_month = $2 AND gcp_services IS NULL`,
		clientID, month).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("querying monthly total: %w", err)
	}
	return parseDecimal(raw)
}

// MonthlyUsage returns per-month costs between from and to (inclusive),
// grouped by service or by project depending on byProject.
func (s *BillingStore) MonthlyUsage(ctx context.Context, clientID string, from, to time.Time, byProject bool) ([]MonthlyCost, error) {
	keyCol := "gcp_services"
	if byProject {
		keyCol = "project_id"
	}
	query := fmt.Sprintf(
		`SELECT usage_month, %s, COALESCE(SUM(cost), 0)::text
		 FROM billing_data
		 WHERE client_id = $1 AND usage_month >= $2 AND usage_month <= $3
		   AND gcp_services IS NOT NULL AND %s IS NOT NULL
		 GROUP BY usage_month, %s
		 ORDER BY usage_month, %s`, keyCol, keyCol, keyCol, keyCol)

	rows, err := s.pool.Query(ctx, query, clientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying monthly usage: %w", err)
	}
	defer rows.Close()

	var out []MonthlyCost
	for rows.Next() {
		var (
			mc  MonthlyCost
			raw string
		)
		if err := rows.Scan(&mc.Month, &mc.Key, &raw); err != nil {
			return nil, fmt.Errorf("scanning monthly usage row: %w", err)
		}
		if mc.Cost, err = parseDecimal(raw); err != nil {
			return nil, err
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

// MonthlyTotalsByMonth returns authoritative totals per month between from
// and to, keyed by the first day of each month.
func (s *BillingStore) MonthlyTotalsByMonth(ctx context.Context, clientID string, from, to time.Time) (map[time.Time]decimal.Decimal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT usage_month, COALESCE(SUM(cost), 0)::text
		 FROM billing_data
		 WHERE client_id = $1 AND usage_month >= $2 AND usage_month <= $3
		   AND gcp_services IS NULL
		 GROUP BY usage_month`, clientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying monthly totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[time.Time]decimal.Decimal)
	for rows.Next() {
		var (
			month time.Time
			raw   string
		)
		if err := rows.Scan(&month, &raw); err != nil {
			return nil, fmt.Errorf("scanning monthly total row: %w", err)
		}
		d, err := parseDecimal(raw)
		if err != nil {
			return nil, err
		}
		totals[month] = d
	}
	return totals, rows.Err()
}

// Budget holds a client's monthly spend budget and alert threshold.
type Budget struct {
	Value     decimal.Decimal
	Threshold int
}

// ClientBudget returns the stored budget for a client. found is false when
// the client has never set one.
func (s *BillingStore) ClientBudget(ctx context.Context, clientID string) (Budget, bool, error) {
	var (
		raw       *string
		threshold *int
	)
	err := s.pool.QueryRow(ctx,
		`SELECT budget_value::text, budget_threshold FROM clients WHERE id = $1`,
		clientID).Scan(&raw, &threshold)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Budget{}, false, nil
		}
		return Budget{}, false, fmt.Errorf("querying client budget: %w", err)
	}
	if raw == nil {
		return Budget{}, false, nil
	}
	value, err := parseDecimal(*raw)
	if err != nil {
		return Budget{}, false, err
	}
	b := Budget{Value: value}
	if threshold != nil {
		b.Threshold = *threshold
	}
	return b, true, nil
}

// UpdateClientBudget stores a client's budget value and threshold.
func (s *BillingStore) UpdateClientBudget(ctx context.Context, clientID string, b Budget) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE clients SET budget_value = $2::numeric, budget_threshold = $3 WHERE id = $1`,
		clientID, b.Value.String(), b.Threshold)
	if err != nil {
		return fmt.Errorf("updating client budget: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
