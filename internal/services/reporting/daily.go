package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nusacloud/billing-api/internal/reports"
	"github.com/nusacloud/billing-api/internal/store"
)

// DailySeries is one key's zero-filled values across the range's days.
type DailySeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
	Total  Money     `json:"total"`
}

// DailyBreakdown is a dense day-by-key matrix plus per-day and grand totals.
type DailyBreakdown struct {
	StartDate   string        `json:"startDate"`
	EndDate     string        `json:"endDate"`
	Days        []string      `json:"days"`
	Series      []DailySeries `json:"series"`
	DailyTotals []float64     `json:"dailyTotals"`
	GrandTotal  Money         `json:"grandTotal"`
	Reconciled  bool          `json:"reconciled"`
}

// DailyServiceBreakdown returns per-service daily costs over the resolved
// range, reconciled against the authoritative total on full months.
func (s *Service) DailyServiceBreakdown(ctx context.Context, caller Caller, clientID string, p Params) (*DailyBreakdown, error) {
	return s.dailyBreakdown(ctx, caller, clientID, p, "daily_service_breakdown",
		func(ctx context.Context, scoped string, start, end time.Time) ([]store.DatedCost, error) {
			return s.daily.ServiceCosts(ctx, scoped, start, end)
		})
}

// DailyProjectBreakdown returns per-project daily costs over the resolved
// range, reconciled against the authoritative total on full months.
func (s *Service) DailyProjectBreakdown(ctx context.Context, caller Caller, clientID string, p Params) (*DailyBreakdown, error) {
	return s.dailyBreakdown(ctx, caller, clientID, p, "daily_project_breakdown",
		func(ctx context.Context, scoped string, start, end time.Time) ([]store.DatedCost, error) {
			return s.daily.ProjectCosts(ctx, scoped, start, end)
		})
}

// ProjectDailyBreakdown returns per-service daily costs for one project.
func (s *Service) ProjectDailyBreakdown(ctx context.Context, caller Caller, clientID, projectID string, p Params) (*DailyBreakdown, error) {
	if projectID == "" {
		return nil, ErrProjectRequired
	}
	return s.dailyBreakdown(ctx, caller, clientID, p, "project_daily_breakdown",
		func(ctx context.Context, scoped string, start, end time.Time) ([]store.DatedCost, error) {
			return s.daily.ProjectServiceCosts(ctx, scoped, projectID, start, end)
		})
}


func (s *Service) dailyBreakdown(ctx context.Context, caller Caller, clientID string, p Params, name string,
	fetch func(ctx context.Context, scoped string, start, end time.Time) ([]store.DatedCost, error)) (*DailyBreakdown, error) {
	scoped, err := s.resolveScope(caller, clientID)
	if err != nil {
		return nil, err
	}
	started := s.now()
	defer s.record(name, started)

	r, err := s.resolveRange(p)
	if err != nil {
		return nil, err
	}

	rows, err := fetch(ctx, scoped, r.Start(), r.End())
	if err != nil {
		return nil, fmt.Errorf("fetch daily costs: %w", err)
	}

	factor, err := s.reconciliationFactor(ctx, scoped, r)
	if err != nil {
		return nil, err
	}

	aggRows := make([]reports.AggregateRow, 0, len(rows))
	for _, row := range rows {
		aggRows = append(aggRows, reports.AggregateRow{Date: row.Date, Key: row.Key, Value: row.Cost})
	}

	days := r.Days()
	dense := reports.BuildDense(aggRows, days, nil)
	dense.Scale(factor)

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

	return &DailyBreakdown{
		StartDate:   r.StartString(),
		EndDate:     r.EndString(),
		Days:        days,
		Series:      series,
		DailyTotals: totals,
		GrandTotal:  s.money(grand),
		Reconciled:  !factor.Equal(decimal.NewFromInt(1)),
	}, nil
}

// ServiceTotalsRow is one service's cost/discount/promotion summary.
type ServiceTotalsRow struct {
	Service    string `json:"service"`
	Cost       Money  `json:"cost"`
	Discounts  Money  `json:"discounts"`
	Promotions Money  `json:"promotions"`
	Subtotal   Money  `json:"subtotal"`
}

// RangeTotals is the per-service cost/discount/promotion breakdown of a date
// range plus the summed grand totals.
type RangeTotals struct {
	StartDate  string             `json:"startDate"`
	EndDate    string             `json:"endDate"`
	Breakdown  []ServiceTotalsRow `json:"breakdown"`
	Cost       Money              `json:"cost"`
	Discounts  Money              `json:"discounts"`
	Promotions Money              `json:"promotions"`
	Subtotal   Money              `json:"subtotal"`
	Reconciled bool               `json:"reconciled"`
}

// RangeServiceTotals sums costs, discounts and promotions per service over
// the resolved range, largest cost first. The reconciliation factor applies
// to the raw cost only; discounts and promotions are recorded post-hoc and
// never scaled.
func (s *Service) RangeServiceTotals(ctx context.Context, caller Caller, clientID string, p Params) (*RangeTotals, error) {
	scoped, err := s.resolveScope(caller, clientID)
	if err != nil {
		return nil, err
	}
	started := s.now()
	defer s.record("range_totals", started)

	r, err := s.resolveRange(p)
	if err != nil {
		return nil, err
	}

	rows, err := s.daily.ServiceRangeTotals(ctx, scoped, r.Start(), r.End())
	if err != nil {
		return nil, fmt.Errorf("fetch range totals: %w", err)
	}

	factor, err := s.reconciliationFactor(ctx, scoped, r)
	if err != nil {
		return nil, err
	}

	breakdown := make([]ServiceTotalsRow, 0, len(rows))
	grandCost, grandDiscounts, grandPromotions := decimal.Zero, decimal.Zero, decimal.Zero
	for _, row := range rows {
		cost := row.Cost.Mul(factor)
		subtotal := cost.Sub(row.Discounts).Sub(row.Promotions)
		breakdown = append(breakdown, ServiceTotalsRow{
			Service:    row.Service,
			Cost:       s.money(cost),
			Discounts:  s.money(row.Discounts),
			Promotions: s.money(row.Promotions),
			Subtotal:   s.money(subtotal),
		})
		grandCost = grandCost.Add(cost)
		grandDiscounts = grandDiscounts.Add(row.Discounts)
		grandPromotions = grandPromotions.Add(row.Promotions)
	}

	return &RangeTotals{
		StartDate:  r.StartString(),
		EndDate:    r.EndString(),
		Breakdown:  breakdown,
		Cost:       s.money(grandCost),
		Discounts:  s.money(grandDiscounts),
		Promotions: s.money(grandPromotions),
		Subtotal:   s.money(grandCost.Sub(grandDiscounts).Sub(grandPromotions)),
		Reconciled: !factor.Equal(decimal.NewFromInt(1)),
	}, nil
}
