package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kopidulu/cafe-pos/internal/domain/audit"
	"github.com/kopidulu/cafe-pos/internal/domain/order"
	"github.com/kopidulu/cafe-pos/internal/domain/payment"
)

const (
	insertTransactionSQL = `INSERT INTO transactions
		(id, number, order_id, payment_method, status, amount, paid_amount, change_amount, notes, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`

	getTransactionSQL = `SELECT id, number, order_id, payment_method, status,
			amount, paid_amount, change_amount, notes, created_by, created_at, updated_at
		FROM transactions WHERE id = $1 AND deleted_at IS NULL`

	// refundTransactionSQL only matches COMPLETED rows, so a repeated refund
	// affects zero rows instead of double-reversing side effects.
	refundTransactionSQL = `UPDATE transactions SET
		status = 'REFUNDED',
		notes = CASE WHEN notes = '' THEN $2 ELSE notes || '; ' || $2 END,
		updated_at = now(), updated_by = $3
		WHERE id = $1 AND status = 'COMPLETED' AND deleted_at IS NULL`

	// confirmOrderSQL skips terminal orders: a cancel committing after the
	// caller's snapshot read makes this affect zero rows, which fails the
	// payment instead of resurrecting the order.
	confirmOrderSQL = `UPDATE orders SET
		status = 'CONFIRMED', updated_at = now(), updated_by = $2
		WHERE id = $1 AND deleted_at IS NULL
		  AND status NOT IN ('CANCELLED', 'COMPLETED')`

	cancelOrderSQL = `UPDATE orders SET
		status = 'CANCELLED', updated_at = now(), updated_by = $2
		WHERE id = $1 AND deleted_at IS NULL`

	getOrderForRefundSQL = `SELECT table_id, discount_id FROM orders
		WHERE id = $1 AND deleted_at IS NULL`

	hasCompletedPaymentSQL = `SELECT EXISTS (SELECT 1 FROM transactions
		WHERE order_id = $1 AND status = 'COMPLETED' AND deleted_at IS NULL)`

	listItemQuantitiesSQL = `SELECT product_id, quantity FROM order_items WHERE order_id = $1`

	dailySummarySQL = `SELECT payment_method, COUNT(*), COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE status = 'COMPLETED' AND deleted_at IS NULL
		  AND created_at >= $1 AND created_at < $2
		GROUP BY payment_method
		ORDER BY payment_method`
)

var _ payment.Store = (*PaymentStore)(nil)

// PaymentStore implements payment.Store backed by PostgreSQL.
type PaymentStore struct {
	pool *pgxpool.Pool
}

// NewPaymentStore returns a PaymentStore that uses the given pool.
func NewPaymentStore(pool *pgxpool.Pool) *PaymentStore {
	return &PaymentStore{pool: pool}
}

// GetTransaction returns one transaction by ID.
func (s *PaymentStore) GetTransaction(ctx context.Context, id string) (*payment.Transaction, error) {
	rows, err := s.pool.Query(ctx, getTransactionSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting transaction %q: %w", id, err)
	}

	t, err := pgx.CollectExactlyOneRow(rows, scanTransaction)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, fmt.Errorf("getting transaction %q: %w", id, err)
	}
	return &t, nil
}

// HasCompletedPayment reports whether the order already has a completed
// transaction.
func (s *PaymentStore) HasCompletedPayment(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, hasCompletedPaymentSQL, orderID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking payments for order %q: %w", orderID, err)
	}
	return exists, nil
}

// CreatePayment records a completed payment in one transaction: the TRX
// number is allocated, the transaction row inserted, the order confirmed,
// stock decremented per line with OUT movements, and table occupancy
// resynced. The partial unique index on completed transactions turns a
// concurrent double payment into ErrAlreadyPaid.
func (s *PaymentStore) CreatePayment(ctx context.Context, t *payment.Transaction, o *order.Order) error {
	day := t.CreatedAt
	if day.IsZero() {
		day = time.Now().UTC()
	}

	err := inTx(ctx, s.pool, func(tx pgx.Tx) error {
		seq, err := nextSequence(ctx, tx, "transaction", day)
		if err != nil {
			return err
		}
		t.Number = payment.FormatNumber(day, seq)

		_, err = tx.Exec(ctx, insertTransactionSQL,
			t.ID, t.Number, t.OrderID, string(t.Method), string(t.Status),
			t.Amount, t.PaidAmount, t.ChangeAmount, t.Notes, string(t.CreatedBy))
		if err != nil {
			return fmt.Errorf("inserting transaction: %w", err)
		}

		tag, err := tx.Exec(ctx, confirmOrderSQL, t.OrderID, string(t.CreatedBy))
		if err != nil {
			return fmt.Errorf("confirming order %q: %w", t.OrderID, err)
		}
		if tag.RowsAffected() == 0 {
			return payment.ErrOrderCancelled
		}

		for _, it := range o.Items {
			if err := decrementStock(ctx, tx, it.ProductID, it.Quantity, t.Number, t.CreatedBy); err != nil {
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
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "uq_transactions_completed_order" {
			return payment.ErrAlreadyPaid
		}
		return err
	}
	return nil
}

// Refund reverses a completed payment in one transaction: the transaction
// flips to REFUNDED, the order is cancelled, stock is restored per line with
// RETURN movements, discount usage is released, and table occupancy resynced.
func (s *PaymentStore) Refund(ctx context.Context, t *payment.Transaction, reason string, actor audit.Actor) error {
	return inTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, refundTransactionSQL, t.ID, reason, string(actor))
		if err != nil {
			return fmt.Errorf("refunding transaction %q: %w", t.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return &payment.RefundNotAllowedError{TransactionID: t.ID, Status: t.Status}
		}

		if _, err := tx.Exec(ctx, cancelOrderSQL, t.OrderID, string(actor)); err != nil {
			return fmt.Errorf("cancelling order %q: %w", t.OrderID, err)
		}

		rows, err := tx.Query(ctx, listItemQuantitiesSQL, t.OrderID)
		if err != nil {
			return fmt.Errorf("listing items for order %q: %w", t.OrderID, err)
		}
		type line struct {
			productID string
			quantity  int
		}
		lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (line, error) {
			var l line
			err := row.Scan(&l.productID, &l.quantity)
			return l, err
		})
		if err != nil {
			return err
		}
		for _, l := range lines {
			if err := incrementStock(ctx, tx, l.productID, l.quantity, t.Number, actor); err != nil {
				return err
			}
		}

		var tableID, discountID *string
		if err := tx.QueryRow(ctx, getOrderForRefundSQL, t.OrderID).Scan(&tableID, &discountID); err != nil {
			return fmt.Errorf("getting order %q: %w", t.OrderID, err)
		}

		if discountID != nil {
			if err := reverseDiscountUsage(ctx, tx, *discountID, string(actor)); err != nil {
				return err
			}
		}
		if tableID != nil {
			if err := syncTable(ctx, tx, *tableID); err != nil {
				return err
			}
		}
		return nil
	})
}

// DailySummary aggregates completed transactions for the calendar day.
func (s *PaymentStore) DailySummary(ctx context.Context, day time.Time) (*payment.DailyReport, error) {
	start := day.Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, 1)

	rows, err := s.pool.Query(ctx, dailySummarySQL, start, end)
	if err != nil {
		return nil, fmt.Errorf("summarizing transactions: %w", err)
	}

	report := payment.DailyReport{Date: start, Total: decimal.Zero}
	methods, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (payment.MethodSummary, error) {
		var (
			m      payment.MethodSummary
			method string
		)
		err := row.Scan(&method, &m.Count, &m.Amount)
		m.Method = payment.Method(method)
		return m, err
	})
	if err != nil {
		return nil, err
	}

	report.Methods = methods
	for _, m := range methods {
		report.Orders += m.Count
		report.Total = report.Total.Add(m.Amount)
	}
	return &report, nil
}

func scanTransaction(row pgx.CollectableRow) (payment.Transaction, error) {
	var (
		t              payment.Transaction
		method, status string
		createdBy      string
	)
	err := row.Scan(&t.ID, &t.Number, &t.OrderID, &method, &status,
		&t.Amount, &t.PaidAmount, &t.ChangeAmount, &t.Notes, &createdBy, &t.CreatedAt, &t.UpdatedAt)
	t.Method = payment.Method(method)
	t.Status = payment.Status(status)
	t.CreatedBy = audit.Actor(createdBy)
	return t, err
}
