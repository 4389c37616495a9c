package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kopidulu/cafe-pos/internal/domain/audit"
	"github.com/kopidulu/cafe-pos/internal/domain/customer"
	"github.com/kopidulu/cafe-pos/internal/domain/discount"
	"github.com/kopidulu/cafe-pos/internal/domain/product"
	"github.com/kopidulu/cafe-pos/internal/domain/settings"
	"github.com/kopidulu/cafe-pos/internal/domain/table"
)

// ItemRequest is the input for one order line.
type ItemRequest struct {
	ProductID string
	Quantity  int
	Notes     string
}

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	Type         Type
	TableID      *string
	CustomerID   *string
	DiscountCode string
	Notes        string
	Items        []ItemRequest
	Actor        audit.Actor
}

// Service is the order workflow engine: it builds orders from catalog items,
// computes totals, and drives the status state machine.
type Service struct {
	store     Store
	products  product.Repository
	customers customer.Registry
	tables    table.Repository
	discounts discount.Validator
	taxes     settings.TaxSource
	now       func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	store Store,
	products product.Repository,
	customers customer.Registry,
	tables table.Repository,
	discounts discount.Validator,
	taxes settings.TaxSource,
) *Service {
	return &Service{
		store:     store,
		products:  products,
		customers: customers,
		tables:    tables,
		discounts: discounts,
		taxes:     taxes,
		now:       time.Now,
	}
}

// Create validates references, snapshots prices, applies the discount
// best-effort, computes totals, and persists the order atomically. The table
// is occupied and discount usage incremented in the same unit of work.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.Type == TypeDineIn && req.TableID == nil {
		return nil, ErrTableRequired
	}

	if req.TableID != nil {
		t, err := s.tables.GetByID(ctx, *req.TableID)
		if err != nil {
			return nil, errors.Wrap(err, "resolve table")
		}
		if !t.Status.Seatable() {
			return nil, &table.UnavailableError{TableID: t.ID, Status: t.Status}
		}
	}

	if req.CustomerID != nil {
		ok, err := s.customers.Exists(ctx, *req.CustomerID)
		if err != nil {
			return nil, errors.Wrap(err, "resolve customer")
		}
		if !ok {
			return nil, customer.ErrNotFound
		}
	}

	items, subtotal, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	// Discount application is best-effort: a code that fails validation is
	// skipped and the order proceeds at full price. Infrastructure failures
	// still abort.
	discountAmount := decimal.Zero
	var discountID *string
	if req.DiscountCode != "" {
		res, err := s.discounts.Validate(ctx, req.DiscountCode, subtotal)
		switch {
		case err == nil:
			discountAmount = res.Amount
			id := res.Discount.ID
			discountID = &id
		case discount.IsValidationError(err):
			zctx.From(ctx).Debug("skipping invalid discount code",
				zap.String("code", req.DiscountCode),
				zap.Error(err),
			)
		default:
			return nil, errors.Wrap(err, "validate discount")
		}
	}

	totals, err := s.computeTotals(ctx, subtotal, discountAmount)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:             uuid.New().String(),
		Type:           req.Type,
		TableID:        req.TableID,
		CustomerID:     req.CustomerID,
		DiscountID:     discountID,
		Items:          items,
		Subtotal:       totals.Subtotal,
		DiscountAmount: totals.DiscountAmount,
		Tax:            totals.Tax,
		Total:          totals.Total,
		Status:         StatusPending,
		Notes:          req.Notes,
		CreatedBy:      req.Actor.OrDefault(),
	}
	if err := s.store.Create(ctx, o); err != nil {
		// A concurrent order can exhaust the usage limit between validation
		// and the usage increment; the order then retries at full price,
		// keeping the best-effort semantics.
		if o.DiscountID != nil && discount.IsValidationError(err) {
			zctx.From(ctx).Debug("discount exhausted during creation, retrying without it",
				zap.String("code", req.DiscountCode),
				zap.Error(err),
			)
			totals, terr := s.computeTotals(ctx, subtotal, decimal.Zero)
			if terr != nil {
				return nil, terr
			}
			o.DiscountID = nil
			o.DiscountAmount = totals.DiscountAmount
			o.Tax = totals.Tax
			o.Total = totals.Total
			if err := s.store.Create(ctx, o); err != nil {
				return nil, errors.Wrap(err, "create order")
			}
			return o, nil
		}
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// AddItems appends items to an open order, snapshotting prices the same way
// as creation. Totals are recomputed keeping the order's existing discount
// amount; eligibility is not re-evaluated against the new subtotal.
func (s *Service) AddItems(ctx context.Context, orderID string, reqs []ItemRequest, actor audit.Actor) (*Order, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyItems
	}

	o, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, &OrderClosedError{OrderID: o.ID, Status: o.Status}
	}

	items, added, err := s.buildItems(ctx, reqs)
	if err != nil {
		return nil, err
	}

	totals, err := s.computeTotals(ctx, o.Subtotal.Add(added), o.DiscountAmount)
	if err != nil {
		return nil, err
	}

	if err := s.store.AppendItems(ctx, o.ID, items, totals, actor.OrDefault()); err != nil {
		return nil, errors.Wrap(err, "append items")
	}

	o.Items = append(o.Items, items...)
	o.Subtotal = totals.Subtotal
	o.Tax = totals.Tax
	o.Total = totals.Total
	return o, nil
}

// UpdateStatus transitions the order along the state machine, rejecting any
// edge not in the transition table. Entering a terminal state frees the table
// if no other active order references it.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, target Status, actor audit.Actor) (*Order, error) {
	o, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(target) {
		return nil, &InvalidTransitionError{From: o.Status, To: target}
	}

	if err := s.store.UpdateStatus(ctx, o.ID, o.Status, target, actor.OrDefault()); err != nil {
		return nil, errors.Wrap(err, "update status")
	}

	o.Status = target
	return o, nil
}

// Cancel transitions the order to CANCELLED via the state machine.
func (s *Service) Cancel(ctx context.Context, orderID string, actor audit.Actor) (*Order, error) {
	return s.UpdateStatus(ctx, orderID, StatusCancelled, actor)
}

// UpdateItemStatus sets a line item's fulfilment state. Any item status value
// is accepted; the only constraints are that the item belongs to the order
// and the order is not terminal.
func (s *Service) UpdateItemStatus(ctx context.Context, orderID, itemID string, status ItemStatus, actor audit.Actor) (*Order, error) {
	o, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, &OrderClosedError{OrderID: o.ID, Status: o.Status}
	}

	idx := -1
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrItemNotInOrder
	}

	if err := s.store.UpdateItemStatus(ctx, o.ID, itemID, status, actor.OrDefault()); err != nil {
		return nil, errors.Wrap(err, "update item status")
	}

	o.Items[idx].Status = status
	return o, nil
}

// Get returns a single order with its items.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.store.GetByID(ctx, id)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]Order, error) {
	return s.store.List(ctx, f)
}

// buildItems resolves products, requires them active, snapshots prices, and
// returns the items plus their summed subtotal. Any unresolved or inactive
// product aborts the whole batch.
func (s *Service) buildItems(ctx context.Context, reqs []ItemRequest) ([]OrderItem, decimal.Decimal, error) {
	ids := make([]string, len(reqs))
	for i, r := range reqs {
		if r.Quantity <= 0 {
			return nil, decimal.Zero, &InvalidQuantityError{ProductID: r.ProductID}
		}
		ids[i] = r.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	items := make([]OrderItem, len(reqs))
	subtotal := decimal.Zero
	for i, r := range reqs {
		p, ok := byID[r.ProductID]
		if !ok {
			return nil, decimal.Zero, errors.Wrapf(product.ErrNotFound, "product %s", r.ProductID)
		}
		if !p.Active {
			return nil, decimal.Zero, &product.InactiveError{ProductID: p.ID}
		}

		lineSubtotal := p.Price.Mul(decimal.NewFromInt(int64(r.Quantity))).Round(2)
		items[i] = OrderItem{
			ID:          uuid.New().String(),
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    r.Quantity,
			UnitPrice:   p.Price,
			Subtotal:    lineSubtotal,
			Notes:       r.Notes,
			Status:      ItemPending,
		}
		subtotal = subtotal.Add(lineSubtotal)
	}

	return items, subtotal, nil
}

// computeTotals derives tax and total from a subtotal and discount amount
// using the configured tax rate.
func (s *Service) computeTotals(ctx context.Context, subtotal, discountAmount decimal.Decimal) (Totals, error) {
	rate, err := s.taxes.TaxRate(ctx)
	if err != nil {
		return Totals{}, errors.Wrap(err, "resolve tax rate")
	}

	taxable := subtotal.Sub(discountAmount)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}
	tax := taxable.Mul(rate).Round(2)

	return Totals{
		Subtotal:       subtotal.Round(2),
		DiscountAmount: discountAmount.Round(2),
		Tax:            tax,
		Total:          taxable.Add(tax).Round(2),
	}, nil
}
