package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kopidulu/cafe-pos/internal/domain/audit"
	"github.com/kopidulu/cafe-pos/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders
		(id, number, order_type, table_id, customer_id, discount_id,
		 subtotal, discount_amount, tax, total, status, notes, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`

	insertOrderItemSQL = `INSERT INTO order_items
		(id, order_id, product_id, product_name, quantity, unit_price, subtotal, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	getOrderByIDSQL = `SELECT id, number, order_type, table_id, customer_id, discount_id,
			subtotal, discount_amount, tax, total, status, notes, created_by, created_at, updated_at
		FROM orders WHERE id = $1 AND deleted_at IS NULL`

	listOrderItemsSQL = `SELECT id, product_id, product_name, quantity, unit_price, subtotal, notes, status
		FROM order_items WHERE order_id = $1 ORDER BY created_at, id`

	// updateOrderTotalsSQL refuses terminal orders in the statement so an
	// append racing a completion cannot land on a closed order.
	updateOrderTotalsSQL = `UPDATE orders SET
		subtotal = $2, discount_amount = $3, tax = $4, total = $5,
		updated_at = now(), updated_by = $6
		WHERE id = $1 AND deleted_at IS NULL
		  AND status NOT IN ('COMPLETED', 'CANCELLED')`

	// updateOrderStatusSQL carries an optimistic guard on the current status:
	// zero rows affected means another writer transitioned the order first.
	updateOrderStatusSQL = `UPDATE orders SET
		status = $3, updated_at = now(), updated_by = $4
		WHERE id = $1 AND status = $2 AND deleted_at IS NULL
		RETURNING table_id`

	updateOrderItemStatusSQL = `UPDATE order_items SET
		status = $3, updated_at = now()
		WHERE id = $2 AND order_id = $1`
)

var _ order.Store = (*OrderStore)(nil)

// OrderStore implements order.Store backed by PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Create persists the order with its items in one transaction: the per-day
// order number is allocated, discount usage is counted, and the table is
// marked occupied. Any failure rolls back all of it.
func (s *OrderStore) Create(ctx context.Context, o *order.Order) error {
	day := o.CreatedAt
	if day.IsZero() {
		day = time.Now().UTC()
	}

	return inTx(ctx, s.pool, func(tx pgx.Tx) error {
		seq, err := nextSequence(ctx, tx, "order", day)
		if err != nil {
			return err
		}
		o.Number = order.FormatNumber(day, seq)

		_, err = tx.Exec(ctx, insertOrderSQL,
			o.ID, o.Number, string(o.Type), o.TableID, o.CustomerID, o.DiscountID,
			o.Subtotal, o.DiscountAmount, o.Tax, o.Total,
			string(o.Status), o.Notes, string(o.CreatedBy))
		if err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}

		if err := insertItems(ctx, tx, o.ID, o.Items); err != nil {
			return err
		}

		if o.DiscountID != nil {
			if err := applyDiscountUsage(ctx, tx, *o.DiscountID, string(o.CreatedBy)); err != nil {
				return err
			}
		}

		if o.TableID != nil {
			if err := syncTable(ctx, tx, *o.TableID); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID returns the order with its items loaded.
func (s *OrderStore) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := s.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o.Items, err = s.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns orders matching the filter, newest first, items included.
func (s *OrderStore) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	var (
		conds = []string{"deleted_at IS NULL"}
		args  []any
	)
	if f.Status != nil {
		args = append(args, string(*f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Type != nil {
		args = append(args, string(*f.Type))
		conds = append(conds, fmt.Sprintf("order_type = $%d", len(args)))
	}
	if f.Day != nil {
		day := f.Day.Truncate(24 * time.Hour)
		args = append(args, day, day.AddDate(0, 0, 1))
		conds = append(conds, fmt.Sprintf("created_at >= $%d AND created_at < $%d", len(args)-1, len(args)))
	}

	query := `SELECT id, number, order_type, table_id, customer_id, discount_id,
			subtotal, discount_amount, tax, total, status, notes, created_by, created_at, updated_at
		FROM orders WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, err
	}

	for i := range list {
		list[i].Items, err = s.loadItems(ctx, list[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return list, nil
}

// AppendItems adds items and persists the recomputed totals atomically.
func (s *OrderStore) AppendItems(ctx context.Context, orderID string, items []order.OrderItem, totals order.Totals, actor audit.Actor) error {
	return inTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateOrderTotalsSQL, orderID,
			totals.Subtotal, totals.DiscountAmount, totals.Tax, totals.Total, string(actor))
		if err != nil {
			return fmt.Errorf("updating order totals %q: %w", orderID, err)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrConflict
		}
		return insertItems(ctx, tx, orderID, items)
	})
}

// UpdateStatus transitions the order from -> to, resyncing table occupancy
// when the order enters a terminal state.
func (s *OrderStore) UpdateStatus(ctx context.Context, orderID string, from, to order.Status, actor audit.Actor) error {
	return inTx(ctx, s.pool, func(tx pgx.Tx) error {
		var tableID *string
		err := tx.QueryRow(ctx, updateOrderStatusSQL,
			orderID, string(from), string(to), string(actor)).Scan(&tableID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return statusUpdateFailure(ctx, tx, orderID)
			}
			return fmt.Errorf("updating order status %q: %w", orderID, err)
		}

		if to.Terminal() && tableID != nil {
			return syncTable(ctx, tx, *tableID)
		}
		return nil
	})
}

// UpdateItemStatus updates one line item's preparation status.
func (s *OrderStore) UpdateItemStatus(ctx context.Context, orderID, itemID string, status order.ItemStatus, actor audit.Actor) error {
	tag, err := s.pool.Exec(ctx, updateOrderItemStatusSQL, orderID, itemID, string(status))
	if err != nil {
		return fmt.Errorf("updating item status %q: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrItemNotInOrder
	}
	return nil
}

func (s *OrderStore) loadItems(ctx context.Context, orderID string) ([]order.OrderItem, error) {
	rows, err := s.pool.Query(ctx, listOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing items for order %q: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanOrderItem)
}

// statusUpdateFailure tells a stale-status conflict apart from a missing
// order, still inside the transaction.
func statusUpdateFailure(ctx context.Context, db DBTX, orderID string) error {
	var exists bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1 AND deleted_at IS NULL)`,
		orderID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking order %q: %w", orderID, err)
	}
	if !exists {
		return order.ErrNotFound
	}
	return order.ErrConflict
}

func insertItems(ctx context.Context, db DBTX, orderID string, items []order.OrderItem) error {
	for _, it := range items {
		_, err := db.Exec(ctx, insertOrderItemSQL,
			it.ID, orderID, it.ProductID, it.ProductName,
			it.Quantity, it.UnitPrice, it.Subtotal, it.Notes, string(it.Status))
		if err != nil {
			return fmt.Errorf("inserting order item %q: %w", it.ProductID, err)
		}
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o           order.Order
		typ, status string
		createdBy   string
	)
	err := row.Scan(&o.ID, &o.Number, &typ, &o.TableID, &o.CustomerID, &o.DiscountID,
		&o.Subtotal, &o.DiscountAmount, &o.Tax, &o.Total,
		&status, &o.Notes, &createdBy, &o.CreatedAt, &o.UpdatedAt)
	o.Type = order.Type(typ)
	o.Status = order.Status(status)
	o.CreatedBy = audit.Actor(createdBy)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.OrderItem, error) {
	var (
		it     order.OrderItem
		status string
	)
	err := row.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.Quantity,
		&it.UnitPrice, &it.Subtotal, &it.Notes, &status)
	it.Status = order.ItemStatus(status)
	return it, err
}
