package timeutil

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveRange_MonthYearSpansCalendarMonth(t *testing.T) {
	now := date(2025, time.June, 15)

	tests := []struct {
		month   int
		year    int
		wantEnd int
	}{
		{1, 2025, 31},
		{2, 2024, 29}, // leap year
		{2, 2023, 28},
		{4, 2025, 30},
		{12, 2025, 31},
	}

	for _, tt := range tests {
		r, err := ResolveRange(nil, nil, tt.month, tt.year, now, 0, time.UTC)
		if err != nil {
			t.Fatalf("month %d/%d: unexpected error %v", tt.month, tt.year, err)
		}
		if r.Start().Day() != 1 {
			t.Errorf("month %d/%d: start day = %d, want 1", tt.month, tt.year, r.Start().Day())
		}
		if r.End().Day() != tt.wantEnd {
			t.Errorf("month %d/%d: end day = %d, want %d", tt.month, tt.year, r.End().Day(), tt.wantEnd)
		}
		if !r.IsFullMonth() {
			t.Errorf("month %d/%d: expected full-month range", tt.month, tt.year)
		}
	}
}

func TestResolveRange_YearDefaultsToCurrent(t *testing.T) {
	now := date(2024, time.August, 10)
	r, err := ResolveRange(nil, nil, 2, 0, now, 0, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.End(); got.Year() != 2024 || got.Day() != 29 {
		t.Fatalf("end = %v, want 2024-02-29", got)
	}
}

func TestResolveRange_InvalidMonth(t *testing.T) {
	now := date(2025, time.June, 15)
	for _, month := range []int{-1, 13, 99} {
		if _, err := ResolveRange(nil, nil, month, 2025, now, 0, time.UTC); !errors.Is(err, ErrInvalidMonth) {
			t.Errorf("month %d: got %v, want ErrInvalidMonth", month, err)
		}
	}
}

func TestResolveRange_ExplicitRangeValidation(t *testing.T) {
	now := date(2025, time.June, 15)
	start := date(2025, time.May, 10)
	end := date(2025, time.May, 1)

	if _, err := ResolveRange(&start, &end, 0, 0, now, 31, time.UTC); !errors.Is(err, ErrStartAfterEnd) {
		t.Fatalf("got %v, want ErrStartAfterEnd", err)
	}

	start = date(2025, time.May, 1)
	end = date(2025, time.June, 1) // 31-day span, at the limit
	if _, err := ResolveRange(&start, &end, 0, 0, now, 31, time.UTC); !errors.Is(err, ErrRangeTooLong) {
		t.Fatalf("got %v, want ErrRangeTooLong", err)
	}

	end = date(2025, time.May, 31)
	r, err := ResolveRange(&start, &end, 0, 0, now, 31, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.NumDays() != 31 {
		t.Fatalf("NumDays = %d, want 31", r.NumDays())
	}
}

func TestResolveRange_ExplicitRangeTakesPriorityOverMonth(t *testing.T) {
	now := date(2025, time.June, 15)
	start := date(2025, time.March, 3)
	end := date(2025, time.March, 5)

	r, err := ResolveRange(&start, &end, 1, 2020, now, 31, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Start().Equal(start) || !r.End().Equal(end) {
		t.Fatalf("range = %v..%v, want explicit dates", r.Start(), r.End())
	}
}

func TestResolveRange_DefaultsToMonthToDate(t *testing.T) {
	now := time.Date(2025, time.June, 15, 13, 45, 0, 0, time.UTC)
	r, err := ResolveRange(nil, nil, 0, 0, now, 0, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Start().Equal(date(2025, time.June, 1)) {
		t.Errorf("start = %v, want 2025-06-01", r.Start())
	}
	if !r.End().Equal(date(2025, time.June, 15)) {
		t.Errorf("end = %v, want 2025-06-15", r.End())
	}
	if r.IsFullMonth() {
		t.Error("month-to-date range must not count as a full month")
	}
}

func TestDays_EnumeratesEveryDayInclusive(t *testing.T) {
	start := date(2024, time.February, 1)
	end := date(2024, time.February, 29)
	r, err := ResolveRange(&start, &end, 0, 0, start, 31, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	days := r.Days()
	if len(days) != 29 {
		t.Fatalf("len(days) = %d, want 29", len(days))
	}
	if days[0] != "2024-02-01" || days[28] != "2024-02-29" {
		t.Fatalf("days bounds = %s..%s", days[0], days[len(days)-1])
	}
}

func TestContains(t *testing.T) {
	r, err := ResolveRange(nil, nil, 2, 2024, date(2024, time.June, 1), 0, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Contains(time.Date(2024, time.February, 29, 23, 59, 0, 0, time.UTC)) {
		t.Error("expected leap day inside range")
	}
	if r.Contains(date(2024, time.March, 1)) {
		t.Error("expected March 1 outside range")
	}
}

func TestMonthKey(t *testing.T) {
	r, err := ResolveRange(nil, nil, 7, 2025, date(2025, time.January, 1), 0, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.MonthKey(); !got.Equal(date(2025, time.July, 1)) {
		t.Fatalf("MonthKey = %v, want 2025-07-01", got)
	}
}
