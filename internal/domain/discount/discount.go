package discount

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// TypePercentage discounts a percentage of the order amount, optionally
	// capped at MaxDiscount.
	TypePercentage Type = "PERCENTAGE"
	// TypeFixedAmount discounts a flat amount, neither capped nor scaled.
	TypeFixedAmount Type = "FIXED_AMOUNT"
)

var (
	// ErrInvalid is returned when a code does not resolve to an active,
	// live discount.
	ErrInvalid = errors.New("invalid discount code")
	// ErrNotStarted is returned when the validity window has not opened yet.
	ErrNotStarted = errors.New("discount not started")
	// ErrExpired is returned when the validity window has closed.
	ErrExpired = errors.New("discount expired")
	// ErrExhausted is returned when the usage limit has been reached.
	ErrExhausted = errors.New("discount usage limit reached")
)

// MinPurchaseError indicates the order amount is below the discount's
// minimum purchase requirement.
type MinPurchaseError struct {
	Code        string
	MinPurchase decimal.Decimal
	OrderAmount decimal.Decimal
}

func (e *MinPurchaseError) Error() string {
	return fmt.Sprintf("discount %s requires a minimum purchase of %s, order amount is %s",
		e.Code, e.MinPurchase, e.OrderAmount)
}

// Discount is a promo rule. UsageCount is monotonic and never exceeds
// UsageLimit when the limit is set; it is only mutated inside the same
// transaction as the order creation or refund that changes it.
type Discount struct {
	ID          string
	Code        string
	Type        Type
	Value       decimal.Decimal
	MinPurchase *decimal.Decimal
	MaxDiscount *decimal.Decimal
	StartDate   time.Time // calendar date, midnight UTC
	EndDate     time.Time // calendar date, inclusive
	UsageLimit  *int
	UsageCount  int
	Active      bool
}

// Repository provides lookup of discount rules. Lookups are case-insensitive
// on code and must only return live rows; a missing or inactive code yields
// ErrInvalid.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Discount, error)
}

// IsValidationError reports whether err is a business-rule rejection of a
// discount code, as opposed to an infrastructure failure. The order workflow
// uses this to skip the discount instead of failing the whole creation.
func IsValidationError(err error) bool {
	if errors.Is(err, ErrInvalid) || errors.Is(err, ErrNotStarted) ||
		errors.Is(err, ErrExpired) || errors.Is(err, ErrExhausted) {
		return true
	}
	var mpe *MinPurchaseError
	return errors.As(err, &mpe)
}
