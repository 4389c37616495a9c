package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/kopidulu/cafe-pos/internal/domain/audit"
	"github.com/kopidulu/cafe-pos/internal/domain/order"
)

// Method enumerates accepted payment methods.
type Method string

const (
	MethodCash Method = "CASH"
	MethodCard Method = "CARD"
	MethodQRIS Method = "QRIS"
)

// ParseMethod validates a payment method string from the API boundary.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodCash, MethodCard, MethodQRIS:
		return Method(s), nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

// Status is the transaction lifecycle state. Payment is synchronous in this
// model, so transactions are created directly in COMPLETED.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
)

// Sentinel errors for payment operations.
var (
	ErrNotFound       = errors.New("transaction not found")
	ErrOrderCancelled = errors.New("order is cancelled")
	ErrAlreadyPaid    = errors.New("order already has a completed payment")
)

// InsufficientPaymentError carries the shortfall for UI display.
type InsufficientPaymentError struct {
	Total     decimal.Decimal
	Paid      decimal.Decimal
	Shortfall decimal.Decimal
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("paid amount %s is less than order total %s (short %s)",
		e.Paid, e.Total, e.Shortfall)
}

// RefundNotAllowedError indicates a refund was attempted on a transaction
// that is not COMPLETED. Repeating a refund on an already-REFUNDED
// transaction lands here, which is what makes refunds idempotent.
type RefundNotAllowedError struct {
	TransactionID string
	Status        Status
}

func (e *RefundNotAllowedError) Error() string {
	return fmt.Sprintf("transaction %s is %s and cannot be refunded", e.TransactionID, e.Status)
}

// Transaction records a payment against an order. At most one COMPLETED
// transaction exists per order.
type Transaction struct {
	ID           string
	Number       string
	OrderID      string
	Method       Method
	Status       Status
	Amount       decimal.Decimal
	PaidAmount   decimal.Decimal
	ChangeAmount decimal.Decimal
	Notes        string
	CreatedBy    audit.Actor
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MethodSummary aggregates completed transactions for one payment method.
type MethodSummary struct {
	Method Method
	Count  int
	Amount decimal.Decimal
}

// DailyReport summarizes completed transactions for one calendar day.
type DailyReport struct {
	Date    time.Time
	Orders  int
	Total   decimal.Decimal
	Methods []MethodSummary
}

// Store is the persistence contract for the payment processor. CreatePayment
// and Refund are each one atomic unit covering the transaction row, the
// order status, stock mutations with their ledger entries, discount usage,
// and table occupancy.
type Store interface {
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	// HasCompletedPayment reports whether a completed transaction already
	// exists for the order.
	HasCompletedPayment(ctx context.Context, orderID string) (bool, error)
	// CreatePayment inserts the COMPLETED transaction, advances the order to
	// CONFIRMED, decrements stock per item with OUT movements referencing
	// the transaction number, and resyncs table occupancy. Returns
	// ErrAlreadyPaid when a completed transaction already exists for the
	// order, ErrOrderCancelled when the order reached a terminal state in
	// the meantime, and stock.InsufficientError when any decrement would go
	// negative; in every case nothing is persisted.
	CreatePayment(ctx context.Context, t *Transaction, o *order.Order) error
	// Refund flips a COMPLETED transaction to REFUNDED appending the reason
	// to its notes, cancels the order, restores stock per item with RETURN
	// movements, decrements discount usage (never below zero), and resyncs
	// table occupancy.
	Refund(ctx context.Context, t *Transaction, reason string, actor audit.Actor) error
	DailySummary(ctx context.Context, day time.Time) (*DailyReport, error)
}

// FormatNumber renders the transaction number for the given day and per-day
// sequence value, e.g. TRX-20260828-0001.
func FormatNumber(day time.Time, seq int) string {
	return fmt.Sprintf("TRX-%s-%04d", day.Format("20060102"), seq)
}
