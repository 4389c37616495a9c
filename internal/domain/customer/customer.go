package customer

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a referenced customer does not exist.
var ErrNotFound = errors.New("customer not found")

// Registry is the customer existence contract consumed by the order workflow.
type Registry interface {
	Exists(ctx context.Context, id string) (bool, error)
}
