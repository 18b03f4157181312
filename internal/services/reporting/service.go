// Package reporting assembles the billing dashboards: monthly summaries,
// dense daily matrices, SKU trends and budget tracking. Every report runs
// the same pipeline: resolve tenant scope, resolve the date range, fetch the
// pre-aggregated rows, reconcile full months against the authoritative
// total, then format for presentation.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nusacloud/billing-api/internal/format"
	"github.com/nusacloud/billing-api/internal/reports"
	"github.com/nusacloud/billing-api/internal/scope"
	"github.com/nusacloud/billing-api/internal/store"
	"github.com/nusacloud/billing-api/internal/timeutil"
)

var (
	ErrProjectRequired = errors.New("project id required")
	ErrInvalidGroupBy  = errors.New("group must be service or project")
	ErrInvalidBudget   = errors.New("budget value must be positive and threshold within 1-100")
)

// BillingQueries is the monthly-aggregate slice of the store.
type BillingQueries interface {
	ClientProjects(ctx context.Context, clientID string) ([]store.Project, error)
	ServiceBreakdown(ctx context.Context, clientID string, month time.Time) ([]store.KeyedCost, error)
	ProjectBreakdown(ctx context.Context, clientID string, month time.Time) ([]store.KeyedCost, error)
	MonthlyTotal(ctx context.Context, clientID string, month time.Time) (decimal.Decimal, error)
	MonthlyUsage(ctx context.Context, clientID string, from, to time.Time, byProject bool) ([]store.MonthlyCost, error)
	MonthlyTotalsByMonth(ctx context.Context, clientID string, from, to time.Time) (map[time.Time]decimal.Decimal, error)
	ClientBudget(ctx context.Context, clientID string) (store.Budget, bool, error)
	UpdateClientBudget(ctx context.Context, clientID string, b store.Budget) error
}

// DailyQueries is the daily-aggregate slice of the store.
type DailyQueries interface {
	ServiceCosts(ctx context.Context, clientID string, start, end time.Time) ([]store.DatedCost, error)
	ProjectCosts(ctx context.Context, clientID string, start, end time.Time) ([]store.DatedCost, error)
	ProjectServiceCosts(ctx context.Context, clientID, projectID string, start, end time.Time) ([]store.DatedCost, error)
	RawSum(ctx context.Context, clientID string, start, end time.Time) (decimal.Decimal, error)
	ServiceRangeTotals(ctx context.Context, clientID string, start, end time.Time) ([]store.ServiceTotals, error)
}

// SkuQueries is the SKU-aggregate slice of the store.
type SkuQueries interface {
	CostTrend(ctx context.Context, clientID, projectID string, start, end time.Time, topN int) ([]store.DatedCost, error)
	Breakdown(ctx context.Context, clientID, projectID string, start, end time.Time) ([]store.SkuUsage, error)
}

// MetricsRecorder tracks report query latency. Nil disables recording.
type MetricsRecorder interface {
	RecordReportQuery(report string, duration time.Duration)
}

// Options carries the reporting tunables from config.
type Options struct {
	Timezone        *time.Location
	MaxRangeDays    int
	BudgetDefault   decimal.Decimal
	BudgetThreshold int
	TrendTopN       int
}

// Service exposes the billing report operations shared by the admin and
// client dashboards.
type Service struct {
	billing   BillingQueries
	daily     DailyQueries
	skus      SkuQueries
	formatter *format.Formatter
	metrics   MetricsRecorder

	loc             *time.Location
	maxRangeDays    int
	budgetDefault   decimal.Decimal
	budgetThreshold int
	trendTopN       int

	now func() time.Time
}

func NewService(billing BillingQueries, daily DailyQueries, skus SkuQueries, formatter *format.Formatter, metrics MetricsRecorder, opts Options) *Service {
	loc := timeutil.EnsureLocation(opts.Timezone)
	maxDays := opts.MaxRangeDays
	if maxDays <= 0 {
		maxDays = timeutil.DefaultMaxRangeDays
	}
	budgetDefault := opts.BudgetDefault
	if budgetDefault.LessThanOrEqual(decimal.Zero) {
		budgetDefault = decimal.NewFromInt(1500000)
	}
	threshold := opts.BudgetThreshold
	if threshold <= 0 || threshold > 100 {
		threshold = 80
	}
	topN := opts.TrendTopN
	if topN <= 0 {
		topN = 10
	}
	return &Service{
		billing:         billing,
		daily:           daily,
		skus:            skus,
		formatter:       formatter,
		metrics:         metrics,
		loc:             loc,
		maxRangeDays:    maxDays,
		budgetDefault:   budgetDefault,
		budgetThreshold: threshold,
		trendTopN:       topN,
		now:             time.Now,
	}
}

// Caller identifies the authenticated principal for scope checks.
type Caller struct {
	Role     scope.Role
	ClientID string
}

// Params are the raw date selectors from the request. Start/End win over
// Month/Year; both absent means current month to date.
type Params struct {
	Start *time.Time
	End   *time.Time
	Month int
	Year  int
}

func (s *Service) resolveScope(caller Caller, requestedClientID string) (string, error) {
	return scope.Resolve(caller.Role, caller.ClientID, requestedClientID)
}

func (s *Service) resolveRange(p Params) (timeutil.DateRange, error) {
	return timeutil.ResolveRange(p.Start, p.End, p.Month, p.Year, s.now().In(s.loc), s.maxRangeDays, s.loc)
}

// Money is an amount shown to the user: formatted string plus the raw number
// charts consume.
type Money struct {
	Value    string  `json:"value"`
	RawValue float64 `json:"rawValue"`
}

func (s *Service) money(d decimal.Decimal) Money {
	return Money{Value: s.formatter.Currency(d), RawValue: d.InexactFloat64()}
}

// record wraps a report body with latency metrics.
func (s *Service) record(report string, started time.Time) {
	if s.metrics != nil {
		s.metrics.RecordReportQuery(report, time.Since(started))
	}
}

// reconciliationFactor computes the full-month correction factor for reports
// built from raw daily rows.
func (s *Service) reconciliationFactor(ctx context.Context, clientID string, r timeutil.DateRange) (decimal.Decimal, error) {
	if !r.IsFullMonth() {
		return decimal.NewFromInt(1), nil
	}
	rawSum, err := s.daily.RawSum(ctx, clientID, r.Start(), r.End())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("fetch raw daily sum: %w", err)
	}
	monthlyTotal, err := s.billing.MonthlyTotal(ctx, clientID, r.MonthKey())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("fetch monthly total: %w", err)
	}
	return reports.Factor(rawSum, monthlyTotal, true), nil
}

// ProjectInfo is one GCP project in a client's portfolio.
type ProjectInfo struct {
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
}

// Projects lists the scoped client's projects.
func (s *Service) Projects(ctx context.Context, caller Caller, clientID string) ([]ProjectInfo, error) {
	scoped, err := s.resolveScope(caller, clientID)
	if err != nil {
		return nil, err
	}
	rows, err := s.billing.ClientProjects(ctx, scoped)
	if err != nil {
		return nil, fmt.Errorf("fetch projects: %w", err)
	}
	out := make([]ProjectInfo, 0, len(rows))
	for _, p := range rows {
		out = append(out, ProjectInfo{ProjectID: p.ProjectID, Name: p.Name})
	}
	return out, nil
}

// Summary is the headline card of the dashboard.
type Summary struct {
	Month          string  `json:"month"`
	CurrentTotal   Money   `json:"currentTotal"`
	PreviousTotal  Money   `json:"previousTotal"`
	PercentChange  float64 `json:"percentChange"`
	Projection     Money   `json:"projection"`
	Budget         Money   `json:"budget"`
	BudgetUsedPct  float64 `json:"budgetUsedPct"`
	BudgetAlert    bool    `json:"budgetAlert"`
	ThresholdPct   int     `json:"thresholdPct"`
	DaysElapsed    int     `json:"daysElapsed"`
	DaysInMonth    int     `json:"daysInMonth"`
}

// Summary builds the month-over-month totals, the linear end-of-month
// projection and the budget position for one client.
func (s *Service) Summary(ctx context.Context, caller Caller, clientID string, month, year int) (*Summary, error) {
	scoped, err := s.resolveScope(caller, clientID)
	if err != nil {
		return nil, err
	}
	started := s.now()
	defer s.record("summary", started)

	r, err := s.resolveRange(Params{Month: month, Year: year})
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	monthStart := r.MonthKey()
	prevStart := monthStart.AddDate(0, -1, 0)

	currentTotal, err := s.billing.MonthlyTotal(ctx, scoped, monthStart)
	if err != nil {
		return nil, fmt.Errorf("fetch current total: %w", err)
	}
	previousTotal, err := s.billing.MonthlyTotal(ctx, scoped, prevStart)
	if err != nil {
		return nil, fmt.Errorf("fetch previous total: %w", err)
	}

	change := 0.0
	if previousTotal.IsPositive() {
		change = currentTotal.Sub(previousTotal).
			Div(previousTotal).
			Mul(decimal.NewFromInt(100)).
			Round(2).InexactFloat64()
	}

	daysInMonth := timeutil.MonthEnd(monthStart, s.loc).Day()
	daysElapsed := daysInMonth
	projection := currentTotal
	if monthStart.Year() == now.Year() && monthStart.Month() == now.Month() {
		daysElapsed = now.Day()
		if daysElapsed > 0 && currentTotal.IsPositive() {
			projection = currentTotal.
				Div(decimal.NewFromInt(int64(daysElapsed))).
				Mul(decimal.NewFromInt(int64(daysInMonth)))
		}
	}

	budget, threshold, err := s.effectiveBudget(ctx, scoped)
	if err != nil {
		return nil, err
	}
	usedPct := 0.0
	if budget.IsPositive() {
		usedPct = currentTotal.Div(budget).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}

	return &Summary{
		Month:         monthStart.Format("January 2006"),
		CurrentTotal:  s.money(currentTotal),
		PreviousTotal: s.money(previousTotal),
		PercentChange: change,
		Projection:    s.money(projection),
		Budget:        s.money(budget),
		BudgetUsedPct: usedPct,
		BudgetAlert:   usedPct >= float64(threshold),
		ThresholdPct:  threshold,
		DaysElapsed:   daysElapsed,
		DaysInMonth:   daysInMonth,
	}, nil
}

func (s *Service) effectiveBudget(ctx context.Context, clientID string) (decimal.Decimal, int, error) {
	b, found, err := s.billing.ClientBudget(ctx, clientID)
	if err != nil {
		return decimal.Decimal{}, 0, fmt.Errorf("fetch budget: %w", err)
	}
	if !found || !b.Value.IsPositive() {
		return s.budgetDefault, s.budgetThreshold, nil
	}
	threshold := b.Threshold
	if threshold <= 0 || threshold > 100 {
		threshold = s.budgetThreshold
	}
	return b.Value, threshold, nil
}

// BreakdownRow is one service or project slice of a monthly breakdown.
type BreakdownRow struct {
	Name   string  `json:"name"`
	Amount Money   `json:"amount"`
	Share  float64 `json:"share"`
}

// Breakdown is a monthly per-service or per-project table.
type Breakdown struct {
	Month string         `json:"month"`
	Rows  []BreakdownRow `json:"rows"`
	Total Money          `json:"total"`
}

// ServiceBreakdown returns the per-service monthly costs, largest first.
func (s *Service) ServiceBreakdown(ctx context.Context, caller Caller, clientID string, month, year int) (*Breakdown, error) {
	return s.monthlyBreakdown(ctx, caller, clientID, month, year, "service_breakdown", s.billing.ServiceBreakdown)
}

// ProjectBreakdown returns the per-project monthly costs, largest first.
func (s *Service) ProjectBreakdown(ctx context.Context, caller Caller, clientID string, month, year int) (*Breakdown, error) {
	return s.monthlyBreakdown(ctx, caller, clientID, month, year, "project_breakdown", s.billing.ProjectBreakdown)
}

func (s *Service) monthlyBreakdown(ctx context.Context, caller Caller, clientID string, month, year int, name string,
	fetch func(context.Context, string, time.Time) ([]store.KeyedCost, error)) (*Breakdown, error) {
	scoped, err := s.resolveScope(caller, clientID)
	if err != nil {
		return nil, err
	}
	started := s.now()
	defer s.record(name, started)

	r, err := s.resolveRange(Params{Month: month, Year: year})
	if err != nil {
		return nil, err
	}
	monthStart := r.MonthKey()

	rows, err := fetch(ctx, scoped, monthStart)
	if err != nil {
		return nil, fmt.Errorf("fetch breakdown: %w", err)
	}

	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Cost)
	}

	out := make([]BreakdownRow, 0, len(rows))
	for _, row := range rows {
		share := 0.0
		if total.IsPositive() {
			share = row.Cost.Div(total).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
		}
		out = append(out, BreakdownRow{Name: row.Key, Amount: s.money(row.Cost), Share: share})
	}

	return &Breakdown{
		Month: monthStart.Format("January 2006"),
		Rows:  out,
		Total: s.money(total),
	}, nil
}

// MonthlySeries is one key's costs across the months window.
type MonthlySeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
	Total  Money     `json:"total"`
}

// MonthlyUsage is the N-month grouped matrix plus authoritative totals.
type MonthlyUsage struct {
	Months []string        `json:"months"`
	Series []MonthlySeries `json:"series"`
	Totals []float64       `json:"totals"`
}

// MonthlyUsage returns costs for the trailing months window, grouped by
// service or project, with every month present even when empty.
func (s *Service) MonthlyUsage(ctx context.Context, caller Caller, clientID string, months int, groupBy string) (*MonthlyUsage, error) {
	scoped, err := s.resolveScope(caller, clientID)
	if err != nil {
		return nil, err
	}
	started := s.now()
	defer s.record("monthly_usage", started)

	byProject := false
	switch groupBy {
	case "", "service":
	case "project":
		byProject = true
	default:
		return nil, ErrInvalidGroupBy
	}

	if months <= 0 {
		months = 6
	}
	if months > 24 {
		months = 24
	}

	currentStart := timeutil.MonthStart(s.now().In(s.loc), s.loc)
	firstStart := currentStart.AddDate(0, -(months - 1), 0)

	rows, err := s.billing.MonthlyUsage(ctx, scoped, firstStart, currentStart, byProject)
	if err != nil {
		return nil, fmt.Errorf("fetch monthly usage: %w", err)
	}
	totalsByMonth, err := s.billing.MonthlyTotalsByMonth(ctx, scoped, firstStart, currentStart)
	if err != nil {
		return nil, fmt.Errorf("fetch monthly totals: %w", err)
	}
	// The store keys months by whatever location the driver scanned the DATE
	// into; compare by month label so the reporting timezone never matters.
	totalsIndex := make(map[string]decimal.Decimal, len(totalsByMonth))
	for m, t := range totalsByMonth {
		totalsIndex[m.Format("2006-01")] = totalsIndex[m.Format("2006-01")].Add(t)
	}

	labels := make([]string, 0, months)
	index := make(map[string]int, months)
	for i := 0; i < months; i++ {
		m := firstStart.AddDate(0, i, 0)
		label := m.Format("January 2006")
		index[m.Format("2006-01")] = i
		labels = append(labels, label)
	}

	byKey := make(map[string][]decimal.Decimal)
	var keys []string
	for _, row := range rows {
		i, ok := index[row.Month.Format("2006-01")]
		if !ok {
			continue
		}
		if _, seen := byKey[row.Key]; !seen {
			byKey[row.Key] = make([]decimal.Decimal, months)
			keys = append(keys, row.Key)
		}
		byKey[row.Key][i] = byKey[row.Key][i].Add(row.Cost)
	}
	sort.Strings(keys)

	series := make([]MonthlySeries, 0, len(keys))
	for _, key := range keys {
		values := make([]float64, months)
		total := decimal.Zero
		for i, v := range byKey[key] {
			values[i] = v.InexactFloat64()
			total = total.Add(v)
		}
		series = append(series, MonthlySeries{Name: key, Values: values, Total: s.money(total)})
	}

	totals := make([]float64, months)
	for i := 0; i < months; i++ {
		m := firstStart.AddDate(0, i, 0)
		if t, ok := totalsIndex[m.Format("2006-01")]; ok {
			totals[i] = t.InexactFloat64()
		}
	}

	return &MonthlyUsage{Months: labels, Series: series, Totals: totals}, nil
}

// BudgetInfo is a client's stored budget with presentation fields.
type BudgetInfo struct {
	Amount       Money `json:"amount"`
	ThresholdPct int   `json:"thresholdPct"`
	IsDefault    bool  `json:"isDefault"`
}

// Budget returns the scoped client's budget, falling back to the defaults.
func (s *Service) Budget(ctx context.Context, caller Caller, clientID string) (*BudgetInfo, error) {
	scoped, err := s.resolveScope(caller, clientID)
	if err != nil {
		return nil, err
	}
	b, found, err := s.billing.ClientBudget(ctx, scoped)
	if err != nil {
		return nil, fmt.Errorf("fetch budget: %w", err)
	}
	if !found || !b.Value.IsPositive() {
		return &BudgetInfo{Amount: s.money(s.budgetDefault), ThresholdPct: s.budgetThreshold, IsDefault: true}, nil
	}
	threshold := b.Threshold
	if threshold <= 0 || threshold > 100 {
		threshold = s.budgetThreshold
	}
	return &BudgetInfo{Amount: s.money(b.Value), ThresholdPct: threshold}, nil
}

// UpdateBudget stores a client's budget value and alert threshold.
func (s *Service) UpdateBudget(ctx context.Context, caller Caller, clientID string, value decimal.Decimal, threshold int) (*BudgetInfo, error) {
	scoped, err := s.resolveScope(caller, clientID)
	if err != nil {
		return nil, err
	}
	if !value.IsPositive() || threshold <= 0 || threshold > 100 {
		return nil, ErrInvalidBudget
	}
	if err := s.billing.UpdateClientBudget(ctx, scoped, store.Budget{Value: value, Threshold: threshold}); err != nil {
		return nil, fmt.Errorf("update budget: %w", err)
	}
	return &BudgetInfo{Amount: s.money(value), ThresholdPct: threshold}, nil
}

