package product

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// InactiveError indicates a product exists but is not sellable.
type InactiveError struct {
	ProductID string
}

func (e *InactiveError) Error() string {
	return fmt.Sprintf("product %s is not active", e.ProductID)
}

// Product is a catalog item. Stock is mutated only through the stock ledger;
// everything else is owned by the catalog module.
type Product struct {
	ID     string
	SKU    string
	Name   string
	Price  decimal.Decimal
	Cost   decimal.Decimal
	Stock  int
	Active bool
}

// Repository is the catalog read contract consumed by the order workflow.
// Implementations must only return live (non-tombstoned) rows.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
