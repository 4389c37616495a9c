package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/kopidulu/cafe-pos/internal/domain/audit"
)

// Sentinel errors for order operations.
var (
	ErrNotFound       = errors.New("order not found")
	ErrEmptyItems     = errors.New("items required")
	ErrItemNotInOrder = errors.New("item does not belong to order")
	ErrConflict       = errors.New("order was modified concurrently")
	ErrTableRequired  = errors.New("dine-in orders require a table")
)

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// OrderClosedError indicates a mutation was attempted on a terminal order.
type OrderClosedError struct {
	OrderID string
	Status  Status
}

func (e *OrderClosedError) Error() string {
	return fmt.Sprintf("order %s is %s and cannot be modified", e.OrderID, e.Status)
}

// OrderItem is a single line in an order. UnitPrice is snapshotted when the
// item is added and never re-read from the catalog.
type OrderItem struct {
	ID          string
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
	Notes       string
	Status      ItemStatus
}

// Order aggregates items, money totals, and lifecycle state. Totals are
// recomputed whenever items change.
type Order struct {
	ID             string
	Number         string
	Type           Type
	TableID        *string
	CustomerID     *string
	DiscountID     *string
	Items          []OrderItem
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
	Status         Status
	Notes          string
	CreatedBy      audit.Actor
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Totals is the recomputed money block persisted alongside item changes.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
}

// Filter narrows order listings.
type Filter struct {
	Status *Status
	Type   *Type
	Day    *time.Time
}

// Store is the persistence contract for the workflow engine. Each method is
// one atomic unit: partial effects are never visible, and the table/discount
// side effects named below happen in the same transaction.
type Store interface {
	// Create persists the order and its items, increments discount usage
	// when DiscountID is set (failing with discount.ErrExhausted when the
	// limit was hit concurrently), occupies the table when TableID is set,
	// and fills in Number from the per-day sequence.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	// AppendItems adds items and writes the recomputed totals, guarded
	// against terminal orders.
	AppendItems(ctx context.Context, orderID string, items []OrderItem, totals Totals, actor audit.Actor) error
	// UpdateStatus transitions from -> to with an optimistic guard on the
	// current status, and resyncs table occupancy on terminal entry.
	UpdateStatus(ctx context.Context, orderID string, from, to Status, actor audit.Actor) error
	UpdateItemStatus(ctx context.Context, orderID, itemID string, status ItemStatus, actor audit.Actor) error
}

// FormatNumber renders the human-readable order number for the given day and
// per-day sequence value, e.g. ORD-20260828-0001.
func FormatNumber(day time.Time, seq int) string {
	return fmt.Sprintf("ORD-%s-%04d", day.Format("20060102"), seq)
}
