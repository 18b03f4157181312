package timeutil

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrStartAfterEnd = errors.New("start date must not be after end date")
	ErrRangeTooLong  = errors.New("date range too long")
	ErrInvalidMonth  = errors.New("invalid month")
)

// DefaultMaxRangeDays caps explicitly supplied custom ranges. Month-derived
// ranges are exempt because a calendar month can never exceed 31 days.
const DefaultMaxRangeDays = 31

const dayLayout = "2006-01-02"

// DateRange is an inclusive calendar date range normalized to midnight in a
// reporting location. Immutable once constructed.
type DateRange struct {
	start time.Time
	end   time.Time
}

// EnsureLocation returns UTC when loc is nil.
func EnsureLocation(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// TruncateToDay normalizes the timestamp to midnight in the provided zone.
func TruncateToDay(t time.Time, loc *time.Location) time.Time {
	loc = EnsureLocation(loc)
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// MonthStart returns midnight on the first day of the month containing t.
func MonthStart(t time.Time, loc *time.Location) time.Time {
	loc = EnsureLocation(loc)
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}

// MonthEnd returns midnight on the last day of the month containing t,
// leap-year aware (day zero of the following month).
func MonthEnd(t time.Time, loc *time.Location) time.Time {
	loc = EnsureLocation(loc)
	t = t.In(loc)
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, loc)
}

// ResolveRange turns the optional request parameters into one validated
// range. Priority order: explicit start/end pair, then month (+year), then
// the current month-to-date.
func ResolveRange(start, end *time.Time, month, year int, now time.Time, maxDays int, loc *time.Location) (DateRange, error) {
	loc = EnsureLocation(loc)
	if maxDays <= 0 {
		maxDays = DefaultMaxRangeDays
	}
	now = now.In(loc)

	if start != nil && end != nil {
		s := TruncateToDay(*start, loc)
		e := TruncateToDay(*end, loc)
		if s.After(e) {
			return DateRange{}, ErrStartAfterEnd
		}
		if int(e.Sub(s).Hours()/24) >= maxDays {
			return DateRange{}, fmt.Errorf("%w: span must be shorter than %d days", ErrRangeTooLong, maxDays)
		}
		return DateRange{start: s, end: e}, nil
	}

	if month != 0 {
		if month < 1 || month > 12 {
			return DateRange{}, fmt.Errorf("%w: %d", ErrInvalidMonth, month)
		}
		if year == 0 {
			year = now.Year()
		}
		first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
		if first.Month() != time.Month(month) || first.Year() != year {
			return DateRange{}, fmt.Errorf("%w: %d-%02d", ErrInvalidMonth, year, month)
		}
		return DateRange{start: first, end: MonthEnd(first, loc)}, nil
	}

	return DateRange{start: MonthStart(now, loc), end: TruncateToDay(now, loc)}, nil
}

// Start returns the inclusive first day of the range.
func (r DateRange) Start() time.Time { return r.start }

// End returns the inclusive last day of the range.
func (r DateRange) End() time.Time { return r.end }

// NumDays returns the number of calendar days covered, endpoints included.
func (r DateRange) NumDays() int {
	return int(r.end.Sub(r.start).Hours()/24) + 1
}

// Days enumerates every day in the range as ISO "YYYY-MM-DD" strings.
func (r DateRange) Days() []string {
	days := make([]string, 0, r.NumDays())
	for d := r.start; !d.After(r.end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(dayLayout))
	}
	return days
}

// Contains reports whether the day of ts falls within the range.
func (r DateRange) Contains(ts time.Time) bool {
	d := TruncateToDay(ts, r.start.Location())
	return !d.Before(r.start) && !d.After(r.end)
}

// IsFullMonth reports whether the range spans exactly one calendar month.
// Only full-month ranges are eligible for reconciliation against the
// authoritative monthly total.
func (r DateRange) IsFullMonth() bool {
	if r.start.Day() != 1 {
		return false
	}
	return r.end.Equal(MonthEnd(r.start, r.start.Location()))
}

// MonthKey returns the first day of the month containing the range start,
// the key the monthly aggregate tables are bucketed by.
func (r DateRange) MonthKey() time.Time {
	return MonthStart(r.start, r.start.Location())
}

// StartString returns the range start formatted as an ISO date.
func (r DateRange) StartString() string { return r.start.Format(dayLayout) }

// EndString returns the range end formatted as an ISO date.
func (r DateRange) EndString() string { return r.end.Format(dayLayout) }
