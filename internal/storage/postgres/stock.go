package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kopidulu/cafe-pos/internal/domain/audit"
	"github.com/kopidulu/cafe-pos/internal/domain/stock"
)

const (
	// decrementStockSQL guards against negative stock in the statement itself:
	// zero rows affected means there was not enough left.
	decrementStockSQL = `UPDATE products SET
		stock = stock - $2,
		updated_at = now(),
		updated_by = $3
		WHERE id = $1 AND deleted_at IS NULL AND stock >= $2`

	incrementStockSQL = `UPDATE products SET
		stock = stock + $2,
		updated_at = now(),
		updated_by = $3
		WHERE id = $1 AND deleted_at IS NULL`

	insertStockMovementSQL = `INSERT INTO stock_movements
		(id, product_id, direction, quantity, reference, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)`

	listStockMovementsSQL = `SELECT id, product_id, direction, quantity, reference, created_by, created_at
		FROM stock_movements WHERE product_id = $1 ORDER BY created_at DESC`
)

var _ stock.Ledger = (*StockLedger)(nil)

// StockLedger implements stock.Ledger backed by PostgreSQL. Each mutation is
// one transaction covering the product row and its movement entry.
type StockLedger struct {
	pool *pgxpool.Pool
}

// NewStockLedger returns a StockLedger that uses the given pool.
func NewStockLedger(pool *pgxpool.Pool) *StockLedger {
	return &StockLedger{pool: pool}
}

// Decrement removes qty units from a product's stock, recording an OUT
// movement. Returns stock.InsufficientError when not enough stock is left.
func (l *StockLedger) Decrement(ctx context.Context, productID string, qty int, reference string, actor audit.Actor) error {
	return inTx(ctx, l.pool, func(tx pgx.Tx) error {
		return decrementStock(ctx, tx, productID, qty, reference, actor)
	})
}

// Increment adds qty units back to a product's stock, recording a RETURN
// movement.
func (l *StockLedger) Increment(ctx context.Context, productID string, qty int, reference string, actor audit.Actor) error {
	return inTx(ctx, l.pool, func(tx pgx.Tx) error {
		return incrementStock(ctx, tx, productID, qty, reference, actor)
	})
}

// Movements returns a product's ledger entries, newest first.
func (l *StockLedger) Movements(ctx context.Context, productID string) ([]stock.Movement, error) {
	rows, err := l.pool.Query(ctx, listStockMovementsSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("listing stock movements for %q: %w", productID, err)
	}
	return pgx.CollectRows(rows, scanStockMovement)
}

func scanStockMovement(row pgx.CollectableRow) (stock.Movement, error) {
	var (
		m         stock.Movement
		direction string
		createdBy string
	)
	err := row.Scan(&m.ID, &m.ProductID, &direction, &m.Quantity, &m.Reference, &createdBy, &m.CreatedAt)
	m.Direction = stock.Direction(direction)
	m.CreatedBy = audit.Actor(createdBy)
	return m, err
}

// decrementStock runs the guarded decrement plus movement insert inside the
// caller's transaction.
func decrementStock(ctx context.Context, db DBTX, productID string, qty int, reference string, actor audit.Actor) error {
	tag, err := db.Exec(ctx, decrementStockSQL, productID, qty, string(actor))
	if err != nil {
		return fmt.Errorf("decrementing stock for %q: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return &stock.InsufficientError{ProductID: productID, Requested: qty}
	}
	return insertMovement(ctx, db, productID, stock.DirectionOut, qty, reference, actor)
}

// incrementStock restores stock plus movement insert inside the caller's
// transaction.
func incrementStock(ctx context.Context, db DBTX, productID string, qty int, reference string, actor audit.Actor) error {
	if _, err := db.Exec(ctx, incrementStockSQL, productID, qty, string(actor)); err != nil {
		return fmt.Errorf("incrementing stock for %q: %w", productID, err)
	}
	return insertMovement(ctx, db, productID, stock.DirectionReturn, qty, reference, actor)
}

func insertMovement(ctx context.Context, db DBTX, productID string, dir stock.Direction, qty int, reference string, actor audit.Actor) error {
	_, err := db.Exec(ctx, insertStockMovementSQL,
		uuid.NewString(), productID, string(dir), qty, reference, string(actor))
	if err != nil {
		return fmt.Errorf("recording stock movement for %q: %w", productID, err)
	}
	return nil
}
