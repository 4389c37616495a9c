package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kopidulu/cafe-pos/internal/domain/settings"
)

const taxRateKey = "tax_rate"

const getSettingSQL = `SELECT value FROM settings WHERE key = $1`

var _ settings.TaxSource = (*SettingsRepository)(nil)

// SettingsRepository resolves tenant settings from the settings table,
// falling back to defaults when a key is absent.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository returns a SettingsRepository that uses the given pool.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// TaxRate returns the configured tax rate fraction, or the default 10% when
// no override is stored.
func (r *SettingsRepository) TaxRate(ctx context.Context) (decimal.Decimal, error) {
	var raw string
	err := r.pool.QueryRow(ctx, getSettingSQL, taxRateKey).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return settings.DefaultTaxRate, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("reading tax rate setting: %w", err)
	}

	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing tax rate setting %q: %w", raw, err)
	}
	return rate, nil
}
