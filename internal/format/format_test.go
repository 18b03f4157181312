package format

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestCurrency_IndonesianConvention(t *testing.T) {
	f := NewFormatter(Indonesian)

	tests := []struct {
		amount float64
		want   string
	}{
		{0, "Rp 0,00"},
		{1500, "Rp 1.500,00"},
		{1234567.89, "Rp 1.234.567,89"},
		{-2500.5, "Rp -2.500,50"},
	}
	for _, tt := range tests {
		if got := f.Currency(dec(tt.amount)); got != tt.want {
			t.Errorf("Currency(%v) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestUsage_Bytes(t *testing.T) {
	f := NewFormatter(English)

	tests := []struct {
		amount float64
		want   string
	}{
		{512, "512 bytes"},
		{1536, "1.50 KiB"},
		{3 * 1024 * 1024, "3.00 MiB"},
		{5.5 * 1024 * 1024 * 1024, "5.50 GiB"},
		{2 * 1024 * 1024 * 1024 * 1024, "2.00 TiB"},
	}
	for _, tt := range tests {
		if got := f.Usage(dec(tt.amount), "bytes"); got != tt.want {
			t.Errorf("Usage(%v, bytes) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestUsage_Seconds(t *testing.T) {
	f := NewFormatter(English)

	if got := f.Usage(dec(3661), "seconds"); got != "1.02 hour" {
		t.Errorf("got %q, want 1.02 hour", got)
	}
	if got := f.Usage(dec(90), "seconds"); got != "1.50 minute" {
		t.Errorf("got %q, want 1.50 minute", got)
	}
	if got := f.Usage(dec(42), "seconds"); got != "42.00 seconds" {
		t.Errorf("got %q, want 42.00 seconds", got)
	}
}

func TestUsage_ByteSecondsBeatsSeconds(t *testing.T) {
	f := NewFormatter(English)

	// 2 GiB held for an hour: 2 * 1024^3 * 3600 byte-seconds.
	amount := dec(2 * 1024 * 1024 * 1024 * 3600)
	if got := f.Usage(amount, "byte-seconds"); got != "2.00 gibibyte hour" {
		t.Errorf("got %q, want 2.00 gibibyte hour", got)
	}
}

func TestUsage_RequestsAndPassthrough(t *testing.T) {
	f := NewFormatter(English)

	if got := f.Usage(dec(5000), "requests"); got != "5,000 requests" {
		t.Errorf("got %q, want 5,000 requests", got)
	}
	if got := f.Usage(dec(12.5), "count"); got != "12.50 count" {
		t.Errorf("got %q, want 12.50 count", got)
	}
}

func TestUsage_UnitMatchIsCaseInsensitive(t *testing.T) {
	f := NewFormatter(English)
	if got := f.Usage(dec(2048), "Bytes"); got != "2.00 KiB" {
		t.Errorf("got %q, want 2.00 KiB", got)
	}
}
