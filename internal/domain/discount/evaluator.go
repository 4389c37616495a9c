package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Result holds the outcome of a successful validation.
type Result struct {
	Discount    *Discount
	Amount      decimal.Decimal
	FinalAmount decimal.Decimal
}

// Validator validates a discount code against an order amount.
type Validator interface {
	Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (*Result, error)
}

var _ Validator = (*Evaluator)(nil)

// Evaluator validates discount codes against an order amount. Validation is
// read-only; usage bookkeeping happens inside the order-creation and refund
// transactions, not here.
type Evaluator struct {
	repo Repository
	now  func() time.Time
}

// NewEvaluator creates an Evaluator backed by the given Repository.
func NewEvaluator(repo Repository) *Evaluator {
	return &Evaluator{repo: repo, now: time.Now}
}

// Validate checks a code against the order amount as of now. Checks run in
// order: code resolves to an active rule, validity window, usage limit,
// minimum purchase. The first failing check is returned.
func (e *Evaluator) Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (*Result, error) {
	d, err := e.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalid) {
			return nil, ErrInvalid
		}
		return nil, errors.Wrap(err, "lookup discount")
	}

	now := e.now()
	if now.Before(d.StartDate) {
		return nil, ErrNotStarted
	}
	// EndDate is a calendar date; the discount is valid through the whole day.
	if now.After(d.EndDate.AddDate(0, 0, 1)) {
		return nil, ErrExpired
	}

	if d.UsageLimit != nil && d.UsageCount >= *d.UsageLimit {
		return nil, ErrExhausted
	}

	if d.MinPurchase != nil && orderAmount.LessThan(*d.MinPurchase) {
		return nil, &MinPurchaseError{
			Code:        d.Code,
			MinPurchase: *d.MinPurchase,
			OrderAmount: orderAmount,
		}
	}

	amount := Compute(d, orderAmount)
	return &Result{
		Discount:    d,
		Amount:      amount,
		FinalAmount: orderAmount.Sub(amount),
	}, nil
}

// Compute calculates the discount amount for an already-validated rule.
// PERCENTAGE is orderAmount*value/100 capped at MaxDiscount when set;
// FIXED_AMOUNT is the value as-is.
func Compute(d *Discount, orderAmount decimal.Decimal) decimal.Decimal {
	switch d.Type {
	case TypePercentage:
		amount := orderAmount.Mul(d.Value).Div(hundred)
		if d.MaxDiscount != nil && amount.GreaterThan(*d.MaxDiscount) {
			amount = *d.MaxDiscount
		}
		return amount.Round(2)
	case TypeFixedAmount:
		return d.Value.Round(2)
	default:
		return decimal.Zero
	}
}
