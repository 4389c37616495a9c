package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kopidulu/cafe-pos/internal/domain/discount"
)

const (
	findDiscountByCodeSQL = `SELECT id, code, discount_type, value, min_purchase, max_discount,
			start_date, end_date, usage_limit, usage_count, active
		FROM discounts
		WHERE UPPER(code) = UPPER($1) AND deleted_at IS NULL`

	// incrementDiscountUsageSQL counts a redemption. The WHERE clause enforces
	// the usage limit in the same statement, so concurrent orders cannot
	// oversell a discount: zero rows affected means the limit was hit first.
	incrementDiscountUsageSQL = `UPDATE discounts SET
		usage_count = usage_count + 1,
		updated_at = now(),
		updated_by = $2
		WHERE id = $1 AND deleted_at IS NULL
		  AND (usage_limit IS NULL OR usage_count < usage_limit)`

	// reverseDiscountUsageSQL releases a redemption after a refund. Floored at
	// zero so a double reversal cannot go negative.
	reverseDiscountUsageSQL = `UPDATE discounts SET
		usage_count = GREATEST(usage_count - 1, 0),
		updated_at = now(),
		updated_by = $2
		WHERE id = $1 AND deleted_at IS NULL`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// FindByCode returns the live discount matching code, case-insensitively.
// Missing and inactive codes both map to discount.ErrInvalid so callers
// cannot probe which codes exist.
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (*discount.Discount, error) {
	rows, err := r.pool.Query(ctx, findDiscountByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding discount %q: %w", code, err)
	}

	d, err := pgx.CollectExactlyOneRow(rows, scanDiscount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrInvalid
		}
		return nil, fmt.Errorf("finding discount %q: %w", code, err)
	}
	if !d.Active {
		return nil, discount.ErrInvalid
	}
	return &d, nil
}

func scanDiscount(row pgx.CollectableRow) (discount.Discount, error) {
	var (
		d   discount.Discount
		typ string
	)
	err := row.Scan(&d.ID, &d.Code, &typ, &d.Value, &d.MinPurchase, &d.MaxDiscount,
		&d.StartDate, &d.EndDate, &d.UsageLimit, &d.UsageCount, &d.Active)
	d.Type = discount.Type(typ)
	return d, err
}

// applyDiscountUsage increments a discount's usage count inside the caller's
// transaction, returning discount.ErrExhausted when the limit is already hit.
func applyDiscountUsage(ctx context.Context, db DBTX, discountID, actor string) error {
	tag, err := db.Exec(ctx, incrementDiscountUsageSQL, discountID, actor)
	if err != nil {
		return fmt.Errorf("incrementing discount usage %q: %w", discountID, err)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrExhausted
	}
	return nil
}

// reverseDiscountUsage releases a redemption inside the caller's transaction.
func reverseDiscountUsage(ctx context.Context, db DBTX, discountID, actor string) error {
	if _, err := db.Exec(ctx, reverseDiscountUsageSQL, discountID, actor); err != nil {
		return fmt.Errorf("reversing discount usage %q: %w", discountID, err)
	}
	return nil
}
