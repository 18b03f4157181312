package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nusacloud/billing-api/internal/format"
	"github.com/nusacloud/billing-api/internal/scope"
	"github.com/nusacloud/billing-api/internal/store"
)

type stubBilling struct {
	projects      []store.Project
	services      []store.KeyedCost
	projectCosts  []store.KeyedCost
	monthlyTotals map[string]decimal.Decimal
	totalsByMonth map[time.Time]decimal.Decimal
	usage         []store.MonthlyCost
	budget        *store.Budget
	updatedBudget *store.Budget
	updateErr     error
}

func (s *stubBilling) ClientProjects(context.Context, string) ([]store.Project, error) {
	return s.projects, nil
}

func (s *stubBilling) ServiceBreakdown(context.Context, string, time.Time) ([]store.KeyedCost, error) {
	return s.services, nil
}

func (s *stubBilling) ProjectBreakdown(context.Context, string, time.Time) ([]store.KeyedCost, error) {
	return s.projectCosts, nil
}

func (s *stubBilling) MonthlyTotal(_ context.Context, _ string, month time.Time) (decimal.Decimal, error) {
	if s.monthlyTotals == nil {
		return decimal.Zero, nil
	}
	return s.monthlyTotals[month.Format("2006-01")], nil
}

func (s *stubBilling) MonthlyUsage(context.Context, string, time.Time, time.Time, bool) ([]store.MonthlyCost, error) {
	return s.usage, nil
}

func (s *stubBilling) MonthlyTotalsByMonth(context.Context, string, time.Time, time.Time) (map[time.Time]decimal.Decimal, error) {
	return s.totalsByMonth, nil
}

func (s *stubBilling) ClientBudget(context.Context, string) (store.Budget, bool, error) {
	if s.budget == nil {
		return store.Budget{}, false, nil
	}
	return *s.budget, true, nil
}

func (s *stubBilling) UpdateClientBudget(_ context.Context, _ string, b store.Budget) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updatedBudget = &b
	return nil
}

type stubDaily struct {
	serviceCosts  []store.DatedCost
	projectCosts  []store.DatedCost
	rawSum        decimal.Decimal
	serviceTotals []store.ServiceTotals
}

func (s *stubDaily) ServiceCosts(context.Context, string, time.Time, time.Time) ([]store.DatedCost, error) {
	return s.serviceCosts, nil
}

func (s *stubDaily) ProjectCosts(context.Context, string, time.Time, time.Time) ([]store.DatedCost, error) {
	return s.projectCosts, nil
}

func (s *stubDaily) ProjectServiceCosts(context.Context, string, string, time.Time, time.Time) ([]store.DatedCost, error) {
	return s.serviceCosts, nil
}

func (s *stubDaily) RawSum(context.Context, string, time.Time, time.Time) (decimal.Decimal, error) {
	return s.rawSum, nil
}

func (s *stubDaily) ServiceRangeTotals(context.Context, string, time.Time, time.Time) ([]store.ServiceTotals, error) {
	return s.serviceTotals, nil
}

type stubSkus struct {
	trend     []store.DatedCost
	breakdown []store.SkuUsage
}

func (s *stubSkus) CostTrend(context.Context, string, string, time.Time, time.Time, int) ([]store.DatedCost, error) {
	return s.trend, nil
}

func (s *stubSkus) Breakdown(context.Context, string, string, time.Time, time.Time) ([]store.SkuUsage, error) {
	return s.breakdown, nil
}

func newTestService(billing *stubBilling, daily *stubDaily, skus *stubSkus, now time.Time) *Service {
	svc := NewService(billing, daily, skus, format.NewFormatter(format.Indonesian), nil, Options{
		Timezone: time.UTC,
	})
	svc.now = func() time.Time { return now }
	return svc
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDailyServiceBreakdownReconcilesFullMonth(t *testing.T) {
	// February 2024 is a leap month: 29 days. Raw daily rows sum to 1000
	// while the authoritative monthly total is 1200, so every value gets
	// scaled by 1.2.
	billing := &stubBilling{monthlyTotals: map[string]decimal.Decimal{
		"2024-02": dec("1200"),
	}}
	daily := &stubDaily{
		serviceCosts: []store.DatedCost{
			{Date: day(2024, time.February, 1), Key: "Compute Engine", Cost: dec("600")},
			{Date: day(2024, time.February, 15), Key: "Cloud Storage", Cost: dec("400")},
		},
		rawSum: dec("1000"),
	}
	svc := newTestService(billing, daily, &stubSkus{}, day(2024, time.March, 10))

	got, err := svc.DailyServiceBreakdown(context.Background(), Caller{Role: scope.RoleAdmin}, "c1", Params{Month: 2, Year: 2024})
	require.NoError(t, err)

	require.Len(t, got.Days, 29)
	require.Equal(t, "2024-02-01", got.Days[0])
	require.Equal(t, "2024-02-29", got.Days[28])
	require.True(t, got.Reconciled)

	// sorted key order
	require.Len(t, got.Series, 2)
	require.Equal(t, "Cloud Storage", got.Series[0].Name)
	require.Equal(t, "Compute Engine", got.Series[1].Name)

	// 400 * 1.2 on Feb 15, zero elsewhere
	require.InDelta(t, 480, got.Series[0].Values[14], 0.001)
	require.InDelta(t, 0, got.Series[0].Values[0], 0.001)
	// 600 * 1.2 on Feb 1
	require.InDelta(t, 720, got.Series[1].Values[0], 0.001)

	require.InDelta(t, 1200, got.GrandTotal.RawValue, 0.001)
	require.Equal(t, "Rp 1.200,00", got.GrandTotal.Value)
}

func TestDailyBreakdownPartialRangeSkipsReconciliation(t *testing.T) {
	billing := &stubBilling{monthlyTotals: map[string]decimal.Decimal{
		"2024-02": dec("1200"),
	}}
	daily := &stubDaily{
		serviceCosts: []store.DatedCost{
			{Date: day(2024, time.February, 2), Key: "Compute Engine", Cost: dec("100")},
		},
		rawSum: dec("100"),
	}
	svc := newTestService(billing, daily, &stubSkus{}, day(2024, time.March, 10))

	start := day(2024, time.February, 1)
	end := day(2024, time.February, 10)
	got, err := svc.DailyServiceBreakdown(context.Background(), Caller{Role: scope.RoleAdmin}, "c1", Params{Start: &start, End: &end})
	require.NoError(t, err)

	require.False(t, got.Reconciled)
	require.Len(t, got.Days, 10)
	require.InDelta(t, 100, got.GrandTotal.RawValue, 0.001)
}

func TestDailyBreakdownScopeErrors(t *testing.T) {
	svc := newTestService(&stubBilling{}, &stubDaily{}, &stubSkus{}, day(2024, time.March, 10))
	ctx := context.Background()

	_, err := svc.DailyServiceBreakdown(ctx, Caller{Role: scope.RoleAdmin}, "", Params{})
	require.ErrorIs(t, err, scope.ErrClientRequired)

	_, err = svc.DailyServiceBreakdown(ctx, Caller{Role: scope.RoleClient, ClientID: "c1"}, "c2", Params{})
	require.ErrorIs(t, err, scope.ErrCrossTenant)

	// a client asking for its own data, or for no explicit client, passes
	_, err = svc.DailyServiceBreakdown(ctx, Caller{Role: scope.RoleClient, ClientID: "c1"}, "c1", Params{})
	require.NoError(t, err)
	_, err = svc.DailyServiceBreakdown(ctx, Caller{Role: scope.RoleClient, ClientID: "c1"}, "", Params{})
	require.NoError(t, err)
}

func TestSummaryProjectionAndBudget(t *testing.T) {
	// Mid-March: 300 spent in 10 of 31 days projects to 930.
	billing := &stubBilling{monthlyTotals: map[string]decimal.Decimal{
		"2024-03": dec("300"),
		"2024-02": dec("200"),
	}}
	svc := newTestService(billing, &stubDaily{}, &stubSkus{}, day(2024, time.March, 10))

	got, err := svc.Summary(context.Background(), Caller{Role: scope.RoleClient, ClientID: "c1"}, "", 0, 0)
	require.NoError(t, err)

	require.Equal(t, "March 2024", got.Month)
	require.InDelta(t, 300, got.CurrentTotal.RawValue, 0.001)
	require.InDelta(t, 200, got.PreviousTotal.RawValue, 0.001)
	require.InDelta(t, 50, got.PercentChange, 0.001)
	require.Equal(t, 10, got.DaysElapsed)
	require.Equal(t, 31, got.DaysInMonth)
	require.InDelta(t, 930, got.Projection.RawValue, 0.001)

	// default budget 1,500,000 at threshold 80
	require.InDelta(t, 1500000, got.Budget.RawValue, 0.001)
	require.Equal(t, 80, got.ThresholdPct)
	require.InDelta(t, 0.02, got.BudgetUsedPct, 0.001)
	require.False(t, got.BudgetAlert)
}

func TestSummaryPastMonthProjectsNothing(t *testing.T) {
	billing := &stubBilling{monthlyTotals: map[string]decimal.Decimal{
		"2024-01": dec("500"),
	}}
	svc := newTestService(billing, &stubDaily{}, &stubSkus{}, day(2024, time.March, 10))

	got, err := svc.Summary(context.Background(), Caller{Role: scope.RoleAdmin}, "c1", 1, 2024)
	require.NoError(t, err)

	require.Equal(t, "January 2024", got.Month)
	// a closed month projects to its own total
	require.InDelta(t, 500, got.Projection.RawValue, 0.001)
	require.Equal(t, 31, got.DaysElapsed)
}

func TestSummaryBudgetAlert(t *testing.T) {
	billing := &stubBilling{
		monthlyTotals: map[string]decimal.Decimal{"2024-03": dec("900")},
		budget:        &store.Budget{Value: dec("1000"), Threshold: 80},
	}
	svc := newTestService(billing, &stubDaily{}, &stubSkus{}, day(2024, time.March, 10))

	got, err := svc.Summary(context.Background(), Caller{Role: scope.RoleAdmin}, "c1", 0, 0)
	require.NoError(t, err)
	require.InDelta(t, 90, got.BudgetUsedPct, 0.001)
	require.True(t, got.BudgetAlert)
}

func TestServiceBreakdownShares(t *testing.T) {
	billing := &stubBilling{services: []store.KeyedCost{
		{Key: "Compute Engine", Cost: dec("750")},
		{Key: "Cloud Storage", Cost: dec("250")},
	}}
	svc := newTestService(billing, &stubDaily{}, &stubSkus{}, day(2024, time.March, 10))

	got, err := svc.ServiceBreakdown(context.Background(), Caller{Role: scope.RoleAdmin}, "c1", 3, 2024)
	require.NoError(t, err)

	require.Len(t, got.Rows, 2)
	require.InDelta(t, 75, got.Rows[0].Share, 0.001)
	require.InDelta(t, 25, got.Rows[1].Share, 0.001)
	require.Equal(t, "Rp 1.000,00", got.Total.Value)
}

func TestMonthlyUsageZeroFillsMonths(t *testing.T) {
	billing := &stubBilling{usage: []store.MonthlyCost{
		{Month: day(2024, time.January, 1), Key: "Compute Engine", Cost: dec("100")},
		{Month: day(2024, time.March, 1), Key: "Compute Engine", Cost: dec("300")},
	}}
	svc := newTestService(billing, &stubDaily{}, &stubSkus{}, day(2024, time.March, 10))

	got, err := svc.MonthlyUsage(context.Background(), Caller{Role: scope.RoleAdmin}, "c1", 3, "service")
	require.NoError(t, err)

	require.Equal(t, []string{"January 2024", "February 2024", "March 2024"}, got.Months)
	require.Len(t, got.Series, 1)
	require.InDelta(t, 100, got.Series[0].Values[0], 0.001)
	require.InDelta(t, 0, got.Series[0].Values[1], 0.001)
	require.InDelta(t, 300, got.Series[0].Values[2], 0.001)
	require.InDelta(t, 400, got.Series[0].Total.RawValue, 0.001)
}

func TestMonthlyUsageTotalsSurviveTimezoneSkew(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	// DATE columns scan as UTC midnights no matter which reporting timezone
	// the service runs in; totals must still land on the right months.
	billing := &stubBilling{totalsByMonth: map[time.Time]decimal.Decimal{
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC):  dec("100"),
		time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC): dec("100"),
		time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC):    dec("100"),
	}}
	svc := NewService(billing, &stubDaily{}, &stubSkus{}, format.NewFormatter(format.Indonesian), nil, Options{
		Timezone: jakarta,
	})
	svc.now = func() time.Time { return day(2024, time.March, 10) }

	got, err := svc.MonthlyUsage(context.Background(), Caller{Role: scope.RoleAdmin}, "c1", 3, "service")
	require.NoError(t, err)

	require.Equal(t, []string{"January 2024", "February 2024", "March 2024"}, got.Months)
	for i := range got.Totals {
		require.InDelta(t, 100, got.Totals[i], 0.001)
	}
}

func TestMonthlyUsageRejectsUnknownGroup(t *testing.T) {
	svc := newTestService(&stubBilling{}, &stubDaily{}, &stubSkus{}, day(2024, time.March, 10))
	_, err := svc.MonthlyUsage(context.Background(), Caller{Role: scope.RoleAdmin}, "c1", 3, "region")
	require.ErrorIs(t, err, ErrInvalidGroupBy)
}

func TestUpdateBudgetValidates(t *testing.T) {
	billing := &stubBilling{}
	svc := newTestService(billing, &stubDaily{}, &stubSkus{}, day(2024, time.March, 10))
	ctx := context.Background()
	caller := Caller{Role: scope.RoleAdmin}

	_, err := svc.UpdateBudget(ctx, caller, "c1", dec("0"), 80)
	require.ErrorIs(t, err, ErrInvalidBudget)

	_, err = svc.UpdateBudget(ctx, caller, "c1", dec("2000000"), 101)
	require.ErrorIs(t, err, ErrInvalidBudget)

	got, err := svc.UpdateBudget(ctx, caller, "c1", dec("2000000"), 75)
	require.NoError(t, err)
	require.Equal(t, 75, got.ThresholdPct)
	require.NotNil(t, billing.updatedBudget)
	require.True(t, billing.updatedBudget.Value.Equal(dec("2000000")))
}

func TestUpdateBudgetMissingClient(t *testing.T) {
	billing := &stubBilling{updateErr: store.ErrNotFound}
	svc := newTestService(billing, &stubDaily{}, &stubSkus{}, day(2024, time.March, 10))

	_, err := svc.UpdateBudget(context.Background(), Caller{Role: scope.RoleAdmin}, "ghost", dec("2000000"), 75)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRangeServiceTotals(t *testing.T) {
	billing := &stubBilling{monthlyTotals: map[string]decimal.Decimal{
		"2024-02": dec("1200"),
	}}
	daily := &stubDaily{
		rawSum: dec("1000"),
		serviceTotals: []store.ServiceTotals{
			{Service: "Compute Engine", Cost: dec("800"), Discounts: dec("30"), Promotions: dec("10")},
			{Service: "Cloud Storage", Cost: dec("200"), Discounts: dec("20"), Promotions: dec("10")},
		},
	}
	svc := newTestService(billing, daily, &stubSkus{}, day(2024, time.March, 10))

	got, err := svc.RangeServiceTotals(context.Background(), Caller{Role: scope.RoleAdmin}, "c1", Params{Month: 2, Year: 2024})
	require.NoError(t, err)

	require.True(t, got.Reconciled)

	// raw 1000 against a monthly total of 1200 scales every cost by 1.2;
	// discounts and promotions are never scaled.
	require.Len(t, got.Breakdown, 2)
	require.Equal(t, "Compute Engine", got.Breakdown[0].Service)
	require.InDelta(t, 960, got.Breakdown[0].Cost.RawValue, 0.001)
	require.InDelta(t, 30, got.Breakdown[0].Discounts.RawValue, 0.001)
	require.InDelta(t, 920, got.Breakdown[0].Subtotal.RawValue, 0.001)
	require.Equal(t, "Cloud Storage", got.Breakdown[1].Service)
	require.InDelta(t, 240, got.Breakdown[1].Cost.RawValue, 0.001)
	require.InDelta(t, 210, got.Breakdown[1].Subtotal.RawValue, 0.001)

	require.InDelta(t, 1200, got.Cost.RawValue, 0.001)
	require.InDelta(t, 50, got.Discounts.RawValue, 0.001)
	require.InDelta(t, 20, got.Promotions.RawValue, 0.001)
	require.InDelta(t, 1130, got.Subtotal.RawValue, 0.001)
}

func TestSkuBreakdownFormatsUsage(t *testing.T) {
	skus := &stubSkus{breakdown: []store.SkuUsage{
		{Sku: "N2 Instance Core", Service: "Compute Engine", Cost: dec("900"), UsageAmount: dec("7200"), UsageUnit: "seconds"},
		{Sku: "Standard Storage", Service: "Cloud Storage", Cost: dec("100"), UsageAmount: dec("1073741824"), UsageUnit: "bytes"},
	}}
	svc := newTestService(&stubBilling{}, &stubDaily{}, skus, day(2024, time.March, 10))

	got, err := svc.SkuBreakdown(context.Background(), Caller{Role: scope.RoleAdmin}, "c1", "", Params{Month: 2, Year: 2024})
	require.NoError(t, err)

	require.Len(t, got.Rows, 2)
	require.Equal(t, "2.00 hour", got.Rows[0].Usage)
	require.Equal(t, "1.00 GiB", got.Rows[1].Usage)
	require.InDelta(t, 90, got.Rows[0].Share, 0.001)
	require.Equal(t, "Rp 1.000,00", got.Total.Value)
}

func TestSkuTrendDenseDays(t *testing.T) {
	skus := &stubSkus{trend: []store.DatedCost{
		{Date: day(2024, time.February, 1), Key: "N2 Instance Core", Cost: dec("10")},
		{Date: day(2024, time.February, 29), Key: "N2 Instance Core", Cost: dec("20")},
	}}
	svc := newTestService(&stubBilling{}, &stubDaily{}, skus, day(2024, time.March, 10))

	got, err := svc.SkuTrend(context.Background(), Caller{Role: scope.RoleAdmin}, "c1", "", Params{Month: 2, Year: 2024})
	require.NoError(t, err)

	require.Len(t, got.Days, 29)
	require.Len(t, got.Series, 1)
	require.InDelta(t, 10, got.Series[0].Values[0], 0.001)
	require.InDelta(t, 20, got.Series[0].Values[28], 0.001)
	require.InDelta(t, 30, got.GrandTotal.RawValue, 0.001)
}

func TestProjectDailyBreakdownRequiresProject(t *testing.T) {
	svc := newTestService(&stubBilling{}, &stubDaily{}, &stubSkus{}, day(2024, time.March, 10))
	_, err := svc.ProjectDailyBreakdown(context.Background(), Caller{Role: scope.RoleAdmin}, "c1", "", Params{})
	require.ErrorIs(t, err, ErrProjectRequired)
}
