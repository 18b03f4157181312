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

// DailyStore reads the per-day billing aggregates (billing_data_daily).
type DailyStore struct {
	pool *pgxpool.Pool
}

// NewDailyStore creates a DailyStore backed by the given pool.
func NewDailyStore(pool *pgxpool.Pool) *DailyStore {
	return &DailyStore{pool: pool}
}

// DatedCost is one raw daily aggregate bucket keyed by service or project.
type DatedCost struct {
	Date time.Time
	Key  string
	Cost decimal.Decimal
}

// ServiceTotals sums one service's cost components over a date range before
// any reconciliation scaling.
type ServiceTotals struct {
	Service    string
	Cost       decimal.Decimal
	Discounts  decimal.Decimal
	Promotions decimal.Decimal
}

// ServiceCosts returns daily per-service costs over [start, end].
func (s *DailyStore) ServiceCosts(ctx context.Context, clientID string, start, end time.Time) ([]DatedCost, error) {
	return s.datedCosts(ctx,
		`SELECT usage_date, service, COALESCE(SUM(cost_before_discount), 0)::text
		 FROM billing_data_daily
		 WHERE client_id = $1 AND usage_date >= $2 AND usage_date <= $3
		 GROUP BY usage_date, service
		 ORDER BY usage_date, service`, clientID, start, end)
}

// ProjectCosts returns daily per-project costs over [start, end].
func (s *DailyStore) ProjectCosts(ctx context.Context, clientID string, start, end time.Time) ([]DatedCost, error) {
	return s.datedCosts(ctx,
		`SELECT usage_date, project_id, COALESCE(SUM(cost_before_discount), 0)::text
		 FROM billing_data_daily
		 WHERE client_id = $1 AND usage_date >= $2 AND usage_date <= $3
		 GROUP BY usage_date, project_id
		 ORDER BY usage_date, project_id`, clientID, start, end)
}

// ProjectServiceCosts returns daily per-service costs for a single project.
func (s *DailyStore) ProjectServiceCosts(ctx context.Context, clientID, projectID string, start, end time.Time) ([]DatedCost, error) {
	return s.datedCosts(ctx,
		`SELECT usage_date, service, COALESCE(SUM(cost_before_discount), 0)::text
		 FROM billing_data_daily
		 WHERE client_id = $1 AND project_id = $2
		   AND usage_date >= $3 AND usage_date <= $4
		 GROUP BY usage_date, service
		 ORDER BY usage_date, service`, clientID, projectID, start, end)
}

func (s *DailyStore) datedCosts(ctx context.Context, query string, args ...any) ([]DatedCost, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying daily costs: %w", err)
	}
	defer rows.Close()

	var out []DatedCost
	for rows.Next() {
		var (
			dc  DatedCost
			raw string
		)
		if err := rows.Scan(&dc.Date, &dc.Key, &raw); err != nil {
			return nil, fmt.Errorf("scanning daily cost row: %w", err)
		}
		if dc.Cost, err = parseDecimal(raw); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

// RawSum returns the summed cost_before_discount over [start, end], the
// denominator of the reconciliation factor.
func (s *DailyStore) RawSum(ctx context.Context, clientID string, start, end time.Time) (decimal.Decimal, error) {
	var raw string
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(cost_before_discount), 0)::text
		 FROM billing_data_daily
		 WHERE client_id = $1 AND usage_date >= $2 AND usage_date <= $3`,
		clientID, start, end).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("querying raw daily sum: %w", err)
	}
	return parseDecimal(raw)
}

// ServiceRangeTotals returns summed cost, discount and promotion amounts per
// service over [start, end], largest cost first.
func (s *DailyStore) ServiceRangeTotals(ctx context.Context, clientID string, start, end time.Time) ([]ServiceTotals, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT
			service,
			COALESCE(SUM(cost_before_discount), 0)::text,
			COALESCE(SUM(discount), 0)::text,
			COALESCE(SUM(promotion), 0)::text
		 FROM billing_data_daily
		 WHERE client_id = $1 AND usage_date >= $2 AND usage_date <= $3
		 GROUP BY service
		 ORDER BY SUM(cost_before_discount) DESC`,
		clientID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying range service totals: %w", err)
	}
	defer rows.Close()

	var out []ServiceTotals
	for rows.Next() {
		var (
			t                              ServiceTotals
			costRaw, discountRaw, promoRaw string
		)
		if err := rows.Scan(&t.Service, &costRaw, &discountRaw, &promoRaw); err != nil {
			return nil, fmt.Errorf("scanning range service totals row: %w", err)
		}
		if t.Cost, err = parseDecimal(costRaw); err != nil {
			return nil, err
		}
		if t.Discounts, err = parseDecimal(discountRaw); err != nil {
			return nil, err
		}
		if t.Promotions, err = parseDecimal(promoRaw); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
