// Package format renders monetary amounts and usage quantities for the
// dashboards. Separator conventions are injected through a Locale instead of
// the process-wide C locale the service historically depended on.
package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Locale carries the separator convention and currency prefix used when
// rendering numbers.
type Locale struct {
	CurrencyPrefix string
	ThousandsSep   string
	DecimalSep     string
}

// Indonesian is the default reporting locale: "Rp 1.234.567,89".
var Indonesian = Locale{CurrencyPrefix: "Rp ", ThousandsSep: ".", DecimalSep: ","}

// English is used in tests and exports: "1,234,567.89".
var English = Locale{CurrencyPrefix: "Rp ", ThousandsSep: ",", DecimalSep: "."}

type Formatter struct {
	locale Locale
}

func NewFormatter(locale Locale) *Formatter {
	if locale.ThousandsSep == "" {
		locale = Indonesian
	}
	return &Formatter{locale: locale}
}

var (
	kib = decimal.NewFromInt(1024)
	mib = kib.Mul(kib)
	gib = mib.Mul(kib)
	tib = gib.Mul(kib)

	secondsPerMinute = decimal.NewFromInt(60)
	secondsPerHour   = decimal.NewFromInt(3600)

	// One gibibyte held for one hour.
	gibibyteSeconds = gib.Mul(secondsPerHour)
)

// Currency renders an amount with the locale's currency prefix, thousands
// separators and two decimal places.
func (f *Formatter) Currency(amount decimal.Decimal) string {
	return f.locale.CurrencyPrefix + f.Number(amount, 2)
}

// Usage renders a raw usage quantity according to its unit string. Units are
// matched case-insensitively by substring, mirroring the unit descriptions
// the upstream cost export emits.
func (f *Formatter) Usage(amount decimal.Decimal, unit string) string {
	u := strings.ToLower(unit)
	switch {
	case strings.Contains(u, "byte-seconds"):
		return f.Number(amount.Div(gibibyteSeconds), 2) + " gibibyte hour"
	case strings.Contains(u, "seconds"):
		switch {
		case amount.GreaterThanOrEqual(secondsPerHour):
			return f.Number(amount.Div(secondsPerHour), 2) + " hour"
		case amount.GreaterThanOrEqual(secondsPerMinute):
			return f.Number(amount.Div(secondsPerMinute), 2) + " minute"
		default:
			return f.Number(amount, 2) + " seconds"
		}
	case strings.Contains(u, "bytes"):
		switch {
		case amount.GreaterThanOrEqual(tib):
			return f.Number(amount.Div(tib), 2) + " TiB"
		case amount.GreaterThanOrEqual(gib):
			return f.Number(amount.Div(gib), 2) + " GiB"
		case amount.GreaterThanOrEqual(mib):
			return f.Number(amount.Div(mib), 2) + " MiB"
		case amount.GreaterThanOrEqual(kib):
			return f.Number(amount.Div(kib), 2) + " KiB"
		default:
			return f.Number(amount, 0) + " bytes"
		}
	case strings.Contains(u, "requests"):
		return f.Number(amount, 0) + " requests"
	default:
		return f.Number(amount, 2) + " " + unit
	}
}

// Number renders the amount with the locale's separators and a fixed number
// of decimal places.
func (f *Formatter) Number(amount decimal.Decimal, places int32) string {
	fixed := amount.StringFixed(places)

	neg := strings.HasPrefix(fixed, "-")
	if neg {
		fixed = fixed[1:]
	}

	intPart := fixed
	fracPart := ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, fracPart = fixed[:i], fixed[i+1:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(f.locale.ThousandsSep)
		}
		b.WriteRune(r)
	}
	if fracPart != "" {
		b.WriteString(f.locale.DecimalSep)
		b.WriteString(fracPart)
	}
	return b.String()
}
