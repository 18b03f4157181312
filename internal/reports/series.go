// Package reports holds the aggregation primitives shared by the billing
// report surfaces: dense day-by-day series with zero-filled gaps, and the
// reconciliation factor applied to full-month raw cost data.
package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// AggregateRow is one (day, group key, value) tuple from the cost/usage
// store. Group keys are service names, project ids or SKU descriptions
// depending on the query.
type AggregateRow struct {
	Date  time.Time
	Key   string
	Value decimal.Decimal
}

// DenseSeries maps group key -> ISO day -> value, with every day of the
// requested range present for every key.
type DenseSeries map[string]map[string]decimal.Decimal

// BuildDense turns sparse aggregate rows into a dense series over dayList.
// When keys is nil the key set is derived from the rows. Duplicate rows for
// the same (key, day) accumulate; rows dated outside dayList are ignored
// rather than rejected, since the store query bounds already constrain them.
func BuildDense(rows []AggregateRow, dayList []string, keys []string) DenseSeries {
	if keys == nil {
		seen := make(map[string]struct{})
		for _, row := range rows {
			if _, ok := seen[row.Key]; !ok {
				seen[row.Key] = struct{}{}
				keys = append(keys, row.Key)
			}
		}
		sort.Strings(keys)
	}

	dayIndex := make(map[string]struct{}, len(dayList))
	for _, day := range dayList {
		dayIndex[day] = struct{}{}
	}

	series := make(DenseSeries, len(keys))
	for _, key := range keys {
		inner := make(map[string]decimal.Decimal, len(dayList))
		for _, day := range dayList {
			inner[day] = decimal.Zero
		}
		series[key] = inner
	}

	for _, row := range rows {
		day := row.Date.Format("2006-01-02")
		if _, ok := dayIndex[day]; !ok {
			continue
		}
		inner, ok := series[row.Key]
		if !ok {
			continue
		}
		inner[day] = inner[day].Add(row.Value)
	}
	return series
}

// Keys returns the series' group keys in ascending order.
func (s DenseSeries) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Scale multiplies every value by the factor, in place.
func (s DenseSeries) Scale(factor decimal.Decimal) {
	if factor.Equal(decimal.NewFromInt(1)) {
		return
	}
	for _, inner := range s {
		for day, value := range inner {
			inner[day] = value.Mul(factor)
		}
	}
}

// Total returns the sum over all keys and days.
func (s DenseSeries) Total() decimal.Decimal {
	total := decimal.Zero
	for _, inner := range s {
		for _, value := range inner {
			total = total.Add(value)
		}
	}
	return total
}

// Sum adds up the values of the provided rows.
func Sum(rows []AggregateRow) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Value)
	}
	return total
}

// Factor computes the reconciliation factor that scales raw daily costs to
// match the authoritative monthly total. Custom (non full-month) ranges are
// never rescaled: the monthly total is only comparable to a complete
// calendar month of raw data. Empty sides yield the neutral factor.
//
// The factor distributes discounts proportionally across daily buckets; the
// scaled figures are a smoothed visualization consistent with the monthly
// total, not individually audited amounts.
func Factor(rawDailySum, monthlyTotal decimal.Decimal, fullMonth bool) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if !fullMonth {
		return one
	}
	if !rawDailySum.IsPositive() || !monthlyTotal.IsPositive() {
		return one
	}
	return monthlyTotal.Div(rawDailySum)
}
