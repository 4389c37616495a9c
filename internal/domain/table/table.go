package table

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// Status enumerates table occupancy states. AVAILABLE and OCCUPIED are
// derived from the set of active orders referencing the table; RESERVED and
// MAINTENANCE are set manually and block new orders.
type Status string

const (
	StatusAvailable   Status = "AVAILABLE"
	StatusOccupied    Status = "OCCUPIED"
	StatusReserved    Status = "RESERVED"
	StatusMaintenance Status = "MAINTENANCE"
)

// ErrNotFound is returned when a referenced table does not exist.
var ErrNotFound = errors.New("table not found")

// UnavailableError indicates a table cannot take a new order in its current
// status.
type UnavailableError struct {
	TableID string
	Status  Status
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("table %s is %s", e.TableID, e.Status)
}

// Seatable reports whether a new order may be attached to a table in this
// status. OCCUPIED is seatable: a table can carry several open orders.
func (s Status) Seatable() bool {
	return s == StatusAvailable || s == StatusOccupied
}

// Table is a physical table in the cafe.
type Table struct {
	ID       string
	Number   int
	Capacity int
	Status   Status
}

// Repository provides table lookups. Occupancy recomputation happens inside
// the storage transactions that change the active-order set, not here.
type Repository interface {
	List(ctx context.Context) ([]Table, error)
	GetByID(ctx context.Context, id string) (*Table, error)
}
