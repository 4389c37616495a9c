// Package stock defines the append-only stock movement ledger. Every stock
// change carries a movement row referencing the payment transaction that
// caused it, for audit traceability.
package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/kopidulu/cafe-pos/internal/domain/audit"
)

// Direction tags a movement as a sale (OUT) or a refund restock (RETURN).
type Direction string

const (
	DirectionOut    Direction = "OUT"
	DirectionReturn Direction = "RETURN"
)

// InsufficientError indicates a decrement would drive stock negative.
// Payment-time decrements treat this as a hard error: the order was validated
// at creation time, so a shortfall here means stock drifted underneath it.
type InsufficientError struct {
	ProductID string
	Requested int
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (requested %d)", e.ProductID, e.Requested)
}

// Movement is one ledger entry. Rows are never mutated after insert.
type Movement struct {
	ID        string
	ProductID string
	Direction Direction
	Quantity  int
	Reference string
	CreatedBy audit.Actor
	CreatedAt time.Time
}

// Ledger provides standalone stock mutations and movement history. The
// payment processor performs the same mutations inside its own transaction;
// this interface serves manual adjustments and the audit read path.
type Ledger interface {
	Decrement(ctx context.Context, productID string, qty int, reference string, actor audit.Actor) error
	Increment(ctx context.Context, productID string, qty int, reference string, actor audit.Actor) error
	Movements(ctx context.Context, productID string) ([]Movement, error)
}
