package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kopidulu/cafe-pos/internal/domain/customer"
)

const customerExistsSQL = `SELECT EXISTS (
	SELECT 1 FROM customers WHERE id = $1 AND deleted_at IS NULL)`

var _ customer.Registry = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Registry backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// Exists reports whether a live customer row with the given ID exists.
func (r *CustomerRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, customerExistsSQL, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking customer %q: %w", id, err)
	}
	return exists, nil
}
