// Package settings holds tenant-level configuration consumed by the core,
// currently just the tax rate.
package settings

import (
	"context"

	"github.com/shopspring/decimal"
)

// DefaultTaxRate applies when no override is configured.
var DefaultTaxRate = decimal.RequireFromString("0.10")

// TaxSource resolves the current tax rate as a fraction (0.10 = 10%).
type TaxSource interface {
	TaxRate(ctx context.Context) (decimal.Decimal, error)
}

// StaticTaxSource returns a fixed rate. Used in tests and as a fallback when
// no settings store is wired.
type StaticTaxSource struct {
	Rate decimal.Decimal
}

func (s StaticTaxSource) TaxRate(context.Context) (decimal.Decimal, error) {
	return s.Rate, nil
}
