package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kopidulu/cafe-pos/internal/domain/audit"
	"github.com/kopidulu/cafe-pos/internal/domain/order"
)

// OrderSource loads orders for payment validation.
type OrderSource interface {
	GetByID(ctx context.Context, id string) (*order.Order, error)
}

// PayRequest holds the input for recording a payment.
type PayRequest struct {
	OrderID    string
	Method     Method
	PaidAmount decimal.Decimal
	Notes      string
	Actor      audit.Actor
}

// Service is the payment processor: it converts pending orders into paid
// transactions and reverses all side effects on refund.
type Service struct {
	store  Store
	orders OrderSource
	now    func() time.Time
}

// NewService creates a payment Service.
func NewService(store Store, orders OrderSource) *Service {
	return &Service{store: store, orders: orders, now: time.Now}
}

// Pay validates the order and paid amount, then records a COMPLETED
// transaction atomically with the stock decrements, order confirmation, and
// table sync. At most one completed payment can exist per order, and an
// already-paid order is rejected before the amount is validated.
func (s *Service) Pay(ctx context.Context, req PayRequest) (*Transaction, error) {
	o, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status == order.StatusCancelled {
		return nil, ErrOrderCancelled
	}

	paid, err := s.store.HasCompletedPayment(ctx, o.ID)
	if err != nil {
		return nil, errors.Wrap(err, "check existing payment")
	}
	if paid {
		return nil, ErrAlreadyPaid
	}

	if req.PaidAmount.LessThan(o.Total) {
		return nil, &InsufficientPaymentError{
			Total:     o.Total,
			Paid:      req.PaidAmount,
			Shortfall: o.Total.Sub(req.PaidAmount).Round(2),
		}
	}

	t := &Transaction{
		ID:           uuid.New().String(),
		OrderID:      o.ID,
		Method:       req.Method,
		Status:       StatusCompleted,
		Amount:       o.Total,
		PaidAmount:   req.PaidAmount.Round(2),
		ChangeAmount: req.PaidAmount.Sub(o.Total).Round(2),
		Notes:        req.Notes,
		CreatedBy:    req.Actor.OrDefault(),
	}
	if err := s.store.CreatePayment(ctx, t, o); err != nil {
		return nil, errors.Wrap(err, "create payment")
	}

	return t, nil
}

// Refund reverses a completed payment: the transaction becomes REFUNDED, the
// order CANCELLED, stock is restored, and discount usage decremented, all in
// one unit of work. A transaction that is not COMPLETED is rejected, which
// also rejects repeated refunds.
func (s *Service) Refund(ctx context.Context, transactionID, reason string, actor audit.Actor) (*Transaction, error) {
	t, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if t.Status != StatusCompleted {
		return nil, &RefundNotAllowedError{TransactionID: t.ID, Status: t.Status}
	}

	if err := s.store.Refund(ctx, t, reason, actor.OrDefault()); err != nil {
		return nil, errors.Wrap(err, "refund")
	}

	t.Status = StatusRefunded
	return t, nil
}

// Get returns a single transaction.
func (s *Service) Get(ctx context.Context, id string) (*Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// DailyReport summarizes completed transactions for the given calendar day.
func (s *Service) DailyReport(ctx context.Context, day time.Time) (*DailyReport, error) {
	return s.store.DailySummary(ctx, day)
}
