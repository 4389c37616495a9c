package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kopidulu/cafe-pos/internal/domain/table"
)

const (
	listTablesSQL = `SELECT id, number, capacity, status
		FROM tables WHERE deleted_at IS NULL ORDER BY number`

	getTableByIDSQL = `SELECT id, number, capacity, status
		FROM tables WHERE id = $1 AND deleted_at IS NULL`

	// syncTableSQL recomputes occupancy from the set of active orders
	// referencing the table: zero active orders frees it, otherwise it is
	// occupied. Runs inside every transaction that changes that set.
	syncTableSQL = `UPDATE tables SET
		status = CASE WHEN (
			SELECT COUNT(*) FROM orders
			WHERE table_id = $1
			  AND status NOT IN ('COMPLETED', 'CANCELLED')
			  AND deleted_at IS NULL
		) = 0 THEN 'AVAILABLE' ELSE 'OCCUPIED' END,
		updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`
)

var _ table.Repository = (*TableRepository)(nil)

// TableRepository implements table.Repository backed by PostgreSQL.
type TableRepository struct {
	pool *pgxpool.Pool
}

// NewTableRepository returns a TableRepository that uses the given pool.
func NewTableRepository(pool *pgxpool.Pool) *TableRepository {
	return &TableRepository{pool: pool}
}

// List returns all live tables ordered by number.
func (r *TableRepository) List(ctx context.Context) ([]table.Table, error) {
	rows, err := r.pool.Query(ctx, listTablesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	return pgx.CollectRows(rows, scanTable)
}

// GetByID returns a single table by its identifier.
func (r *TableRepository) GetByID(ctx context.Context, id string) (*table.Table, error) {
	rows, err := r.pool.Query(ctx, getTableByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting table %q: %w", id, err)
	}

	t, err := pgx.CollectExactlyOneRow(rows, scanTable)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, table.ErrNotFound
		}
		return nil, fmt.Errorf("getting table %q: %w", id, err)
	}
	return &t, nil
}

func scanTable(row pgx.CollectableRow) (table.Table, error) {
	var (
		t      table.Table
		status string
	)
	err := row.Scan(&t.ID, &t.Number, &t.Capacity, &status)
	t.Status = table.Status(status)
	return t, err
}

// syncTable recomputes one table's occupancy inside the caller's transaction.
func syncTable(ctx context.Context, db DBTX, tableID string) error {
	if _, err := db.Exec(ctx, syncTableSQL, tableID); err != nil {
		return fmt.Errorf("syncing table %q: %w", tableID, err)
	}
	return nil
}
