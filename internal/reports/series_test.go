package reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, time.February, d, 0, 0, 0, 0, time.UTC)
}

func threeDays() []string {
	return []string{"2024-02-01", "2024-02-02", "2024-02-03"}
}

func TestBuildDense_EmptyRowsYieldEmptySeries(t *testing.T) {
	series := BuildDense(nil, threeDays(), nil)
	require.Empty(t, series)
}

func TestBuildDense_FillsEveryDayForEveryKey(t *testing.T) {
	rows := []AggregateRow{
		{Date: day(1), Key: "Compute Engine", Value: decimal.NewFromInt(100)},
		{Date: day(3), Key: "Cloud Storage", Value: decimal.NewFromInt(40)},
	}

	series := BuildDense(rows, threeDays(), nil)
	require.Len(t, series, 2)
	for _, key := range []string{"Compute Engine", "Cloud Storage"} {
		require.Len(t, series[key], 3, "key %s must cover all days", key)
	}

	require.True(t, series["Compute Engine"]["2024-02-02"].IsZero())
	require.True(t, series["Cloud Storage"]["2024-02-01"].IsZero())
	require.True(t, series["Cloud Storage"]["2024-02-03"].Equal(decimal.NewFromInt(40)))
}

func TestBuildDense_AccumulatesDuplicates(t *testing.T) {
	rows := []AggregateRow{
		{Date: day(2), Key: "Compute Engine", Value: decimal.NewFromInt(10)},
		{Date: day(2), Key: "Compute Engine", Value: decimal.NewFromInt(5)},
	}

	series := BuildDense(rows, threeDays(), nil)
	require.True(t, series["Compute Engine"]["2024-02-02"].Equal(decimal.NewFromInt(15)))
}

func TestBuildDense_IgnoresRowsOutsideRange(t *testing.T) {
	rows := []AggregateRow{
		{Date: day(1), Key: "Compute Engine", Value: decimal.NewFromInt(10)},
		{Date: day(9), Key: "Compute Engine", Value: decimal.NewFromInt(999)},
	}

	series := BuildDense(rows, threeDays(), nil)
	require.True(t, series.Total().Equal(decimal.NewFromInt(10)))
}

func TestBuildDense_PerKeySumsMatchRawRows(t *testing.T) {
	rows := []AggregateRow{
		{Date: day(1), Key: "a", Value: decimal.NewFromFloat(1.5)},
		{Date: day(2), Key: "a", Value: decimal.NewFromFloat(2.5)},
		{Date: day(3), Key: "b", Value: decimal.NewFromInt(7)},
	}

	series := BuildDense(rows, threeDays(), nil)

	sumA := decimal.Zero
	for _, v := range series["a"] {
		sumA = sumA.Add(v)
	}
	require.True(t, sumA.Equal(decimal.NewFromInt(4)))
	require.True(t, series.Total().Equal(decimal.NewFromInt(11)))
}

func TestBuildDense_ExplicitKeysOverrideDerivation(t *testing.T) {
	rows := []AggregateRow{
		{Date: day(1), Key: "unexpected", Value: decimal.NewFromInt(3)},
	}

	series := BuildDense(rows, threeDays(), []string{"wanted"})
	require.Equal(t, []string{"wanted"}, series.Keys())
	require.True(t, series.Total().IsZero())
}

func TestKeys_SortedStableOrder(t *testing.T) {
	rows := []AggregateRow{
		{Date: day(1), Key: "zeta", Value: decimal.NewFromInt(1)},
		{Date: day(1), Key: "alpha", Value: decimal.NewFromInt(1)},
		{Date: day(1), Key: "mid", Value: decimal.NewFromInt(1)},
	}
	series := BuildDense(rows, threeDays(), nil)
	require.Equal(t, []string{"alpha", "mid", "zeta"}, series.Keys())
}

func TestFactor(t *testing.T) {
	raw := decimal.NewFromInt(100)
	authoritative := decimal.NewFromInt(150)

	require.True(t, Factor(raw, authoritative, true).Equal(decimal.NewFromFloat(1.5)))
	require.True(t, Factor(raw, authoritative, false).Equal(decimal.NewFromInt(1)))
	require.True(t, Factor(decimal.Zero, authoritative, true).Equal(decimal.NewFromInt(1)))
	require.True(t, Factor(raw, decimal.Zero, true).Equal(decimal.NewFromInt(1)))
	require.True(t, Factor(raw.Neg(), authoritative, true).Equal(decimal.NewFromInt(1)))
}

func TestScale(t *testing.T) {
	rows := []AggregateRow{
		{Date: day(1), Key: "a", Value: decimal.NewFromInt(10)},
		{Date: day(2), Key: "a", Value: decimal.NewFromInt(20)},
	}
	series := BuildDense(rows, threeDays(), nil)
	series.Scale(decimal.NewFromFloat(1.2))

	require.True(t, series["a"]["2024-02-01"].Equal(decimal.NewFromInt(12)))
	require.True(t, series["a"]["2024-02-02"].Equal(decimal.NewFromInt(24)))
	require.True(t, series["a"]["2024-02-03"].IsZero())
}
