package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// SkuStore reads the per-SKU daily aggregates (sku_usage_data). SKU rows
// already carry final costs, so no reconciliation scaling applies here.
type SkuStore struct {
	pool *pgxpool.Pool
}

// NewSkuStore creates a SkuStore backed by the given pool.
func NewSkuStore(pool *pgxpool.Pool) *SkuStore {
	return &SkuStore{pool: pool}
}

// SkuUsage is one SKU's aggregate over a range: final cost plus the raw
// usage amount and its unit.
type SkuUsage struct {
	Sku         string
	Service     string
	Cost        decimal.Decimal
	UsageAmount decimal.Decimal
	UsageUnit   string
}

// CostTrend returns daily costs for the topN most expensive SKUs over
// [start, end]. projectID narrows to one project when non-empty.
func (s *SkuStore) CostTrend(ctx context.Context, clientID, projectID string, start, end time.Time, topN int) ([]DatedCost, error) {
	var filter strings.Builder
	args := []any{clientID, start, end}
	if projectID != "" {
		args = append(args, projectID)
		fmt.Fprintf(&filter, " AND project_id = $%d", len(args))
	}
	args = append(args, topN)

	query := fmt.Sprintf(
		`WITH top_skus AS (
			SELECT sku_description
			FROM sku_usage_data
			WHERE client_id = $1 AND usage_date >= $2 AND usage_date <= $3%s
			GROUP BY sku_description
			ORDER BY SUM(agg_value) DESC
			LIMIT $%d
		)
		SELECT usage_date, sku_description, COALESCE(SUM(agg_value), 0)::text
		FROM sku_usage_data
		WHERE client_id = $1 AND usage_date >= $2 AND usage_date <= $3%s
		  AND sku_description IN (SELECT sku_description FROM top_skus)
		GROUP BY usage_date, sku_description
		ORDER BY usage_date, sku_description`,
		filter.String(), len(args), filter.String())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sku cost trend: %w", err)
	}
	defer rows.Close()

	var out []DatedCost
	for rows.Next() {
		var (
			dc  DatedCost
			raw string
		)
		if err := rows.Scan(&dc.Date, &dc.Key, &raw); err != nil {
			return nil, fmt.Errorf("scanning sku trend row: %w", err)
		}
		if dc.Cost, err = parseDecimal(raw); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

// Breakdown returns per-SKU totals over [start, end], ordered by cost
// descending. projectID narrows to one project when non-empty.
func (s *SkuStore) Breakdown(ctx context.Context, clientID, projectID string, start, end time.Time) ([]SkuUsage, error) {
	var filter string
	args := []any{clientID, start, end}
	if projectID != "" {
		args = append(args, projectID)
		filter = fmt.Sprintf(" AND project_id = $%d", len(args))
	}

	query := fmt.Sprintf(
		`SELECT
			sku_description,
			MIN(service),
			COALESCE(SUM(agg_value), 0)::text,
			COALESCE(SUM(usage_amount), 0)::text,
			MIN(usage_unit)
		 FROM sku_usage_data
		 WHERE client_id = $1 AND usage_date >= $2 AND usage_date <= $3%s
		 GROUP BY sku_description
		 ORDER BY SUM(agg_value) DESC`, filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sku breakdown: %w", err)
	}
	defer rows.Close()

	var out []SkuUsage
	for rows.Next() {
		var (
			su       SkuUsage
			costRaw  string
			usageRaw string
		)
		if err := rows.Scan(&su.Sku, &su.Service, &costRaw, &usageRaw, &su.UsageUnit); err != nil {
			return nil, fmt.Errorf("scanning sku breakdown row: %w", err)
		}
		if su.Cost, err = parseDecimal(costRaw); err != nil {
			return nil, err
		}
		if su.UsageAmount, err = parseDecimal(usageRaw); err != nil {
			return nil, err
		}
		out = append(out, su)
	}
	return out, rows.Err()
}
