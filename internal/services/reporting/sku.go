package reporting

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nusacloud/billing-api/internal/reports"
)

// SkuTrend is the dense daily matrix of the costliest SKUs. SKU rows carry
// final costs already, so no reconciliation runs here.
type SkuTrend struct {
	StartDate   string        `json:"startDate"`
	EndDate     string        `json:"endDate"`
	Days        []string      `json:"days"`
	Series      []DailySeries `json:"series"`
	DailyTotals []float64     `json:"dailyTotals"`
	GrandTotal  Money         `json:"grandTotal"`
}

// SkuTrend returns daily costs for the top-N most expensive SKUs over the
// resolved range. projectID narrows to one project when non-empty.
func (s *Service) SkuTrend(ctx context.Context, caller Caller, clientID, projectID string, p Params) (*SkuTrend, error) {
	scoped, err := s.resolveScope(caller, clientID)
	if err != nil {
		return nil, err
	}
	started := s.now()
	defer s.record("sku_trend", started)

	r, err := s.resolveRange(p)
	if err != nil {
		return nil, err
	}

	rows, err := s.skus.CostTrend(ctx, scoped, projectID, r.Start(), r.End(), s.trendTopN)
	if err != nil {
		return nil, fmt.Errorf("fetch sku trend: %w", err)
	}

	aggRows := make([]reports.AggregateRow, 0, len(rows))
	for _, row := range rows {
		aggRows = append(aggRows, reports.AggregateRow{Date: row.Date, Key: row.Key, Value: row.Cost})
	}

	days := r.Days()
	dense := reports.BuildDense(aggRows, days, nil)

	keys := dense.Keys()
	series := make([]DailySeries, 0, len(keys))
	dailyTotals := make([]decimal.Decimal, len(days))
	grand := decimal.Zero

	for _, key := range keys {
		values := make([]float64, len(days))
		keyTotal := decimal.Zero
		for i, day := range days {
			v := dense[key][day]
			values[i] = v.InexactFloat64()
			keyTotal = keyTotal.Add(v)
			dailyTotals[i] = dailyTotals[i].Add(v)
		}
		grand = grand.Add(keyTotal)
		series = append(series, DailySeries{Name: key, Values: values, Total: s.money(keyTotal)})
	}

	totals := make([]float64, len(days))
	for i, t := range dailyTotals {
		totals[i] = t.InexactFloat64()
	}

	return &SkuTrend{
		StartDate:   r.StartString(),
		EndDate:     r.EndString(),
		Days:        days,
		Series:      series,
		DailyTotals: totals,
		GrandTotal:  s.money(grand),
	}, nil
}

// SkuBreakdownRow is one SKU's usage and cost over a range.
type SkuBreakdownRow struct {
	Sku     string  `json:"sku"`
	Service string  `json:"service"`
	Usage   string  `json:"usage"`
	Amount  Money   `json:"amount"`
	Share   float64 `json:"share"`
}

// SkuBreakdown is the per-SKU usage/cost table for a range.
type SkuBreakdown struct {
	StartDate string            `json:"startDate"`
	EndDate   string            `json:"endDate"`
	Rows      []SkuBreakdownRow `json:"rows"`
	Total     Money             `json:"total"`
}

// SkuBreakdown returns per-SKU totals with human-readable usage amounts,
// ordered by cost descending.
func (s *Service) SkuBreakdown(ctx context.Context, caller Caller, clientID, projectID string, p Params) (*SkuBreakdown, error) {
	scoped, err := s.resolveScope(caller, clientID)
	if err != nil {
		return nil, err
	}
	started := s.now()
	defer s.record("sku_breakdown", started)

	r, err := s.resolveRange(p)
	if err != nil {
		return nil, err
	}

	rows, err := s.skus.Breakdown(ctx, scoped, projectID, r.Start(), r.End())
	if err != nil {
		return nil, fmt.Errorf("fetch sku breakdown: %w", err)
	}

	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Cost)
	}

	out := make([]SkuBreakdownRow, 0, len(rows))
	for _, row := range rows {
		share := 0.0
		if total.IsPositive() {
			share = row.Cost.Div(total).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
		}
		out = append(out, SkuBreakdownRow{
			Sku:     row.Sku,
			Service: row.Service,
			Usage:   s.formatter.Usage(row.UsageAmount, row.UsageUnit),
			Amount:  s.money(row.Cost),
			Share:   share,
		})
	}

	return &SkuBreakdown{
		StartDate: r.StartString(),
		EndDate:   r.EndString(),
		Rows:      out,
		Total:     s.money(total),
	}, nil
}
