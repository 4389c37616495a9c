package order

import "fmt"

// Status is the order lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusPreparing Status = "PREPARING"
	StatusReady     Status = "READY"
	StatusServed    Status = "SERVED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// transitions is the full edge table of the order state machine. COMPLETED
// and CANCELLED have no outgoing edges.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusPreparing, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusReady, StatusCancelled},
	StatusPreparing: {StatusReady, StatusServed, StatusCancelled},
	StatusReady:     {StatusServed, StatusCompleted, StatusCancelled},
	StatusServed:    {StatusCompleted},
	StatusCompleted: nil,
	StatusCancelled: nil,
}

// CanTransitionTo reports whether the edge s -> target exists.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus validates a status string from the API boundary.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
		StatusServed, StatusCompleted, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// InvalidTransitionError names the rejected edge.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// Type is the order fulfilment channel.
type Type string

const (
	TypeDineIn   Type = "DINE_IN"
	TypeTakeaway Type = "TAKEAWAY"
	TypeDelivery Type = "DELIVERY"
)

// ParseType validates an order type string. The legacy persistence spelling
// TAKE_AWAY is accepted and normalized to the canonical TAKEAWAY here, at the
// boundary, so the core only ever sees one spelling.
func ParseType(s string) (Type, error) {
	switch s {
	case string(TypeDineIn):
		return TypeDineIn, nil
	case string(TypeTakeaway), "TAKE_AWAY":
		return TypeTakeaway, nil
	case string(TypeDelivery):
		return TypeDelivery, nil
	}
	return "", fmt.Errorf("unknown order type %q", s)
}

// ItemStatus is the per-line fulfilment state, independent of the parent
// order's status. No transition graph is enforced at item granularity.
type ItemStatus string

const (
	ItemPending   ItemStatus = "PENDING"
	ItemPreparing ItemStatus = "PREPARING"
	ItemReady     ItemStatus = "READY"
	ItemServed    ItemStatus = "SERVED"
	ItemCancelled ItemStatus = "CANCELLED"
)

// ParseItemStatus validates an item status string.
func ParseItemStatus(s string) (ItemStatus, error) {
	switch ItemStatus(s) {
	case ItemPending, ItemPreparing, ItemReady, ItemServed, ItemCancelled:
		return ItemStatus(s), nil
	}
	return "", fmt.Errorf("unknown order item status %q", s)
}
