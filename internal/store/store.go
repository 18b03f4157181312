// Package store holds the hand-written pgx data access layer. Each domain
// (billing, daily, sku, users, ...) gets its own store struct backed by the
// shared pgxpool. Monetary and usage columns are numeric in Postgres; queries
// cast them to text and the scanners parse them into decimals so no precision
// is lost on the wire.
package store

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// parseDecimal converts a ::text-cast numeric column into a decimal. An empty
// string (possible with outer joins) parses as zero.
func parseDecimal(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse numeric %q: %w", raw, err)
	}
	return d, nil
}
