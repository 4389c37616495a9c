package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kopidulu/cafe-pos/internal/domain/audit"
	"github.com/kopidulu/cafe-pos/internal/domain/auth"
	"github.com/kopidulu/cafe-pos/internal/domain/discount"
	"github.com/kopidulu/cafe-pos/internal/domain/order"
	"github.com/kopidulu/cafe-pos/internal/domain/payment"
	"github.com/kopidulu/cafe-pos/internal/domain/product"
	"github.com/kopidulu/cafe-pos/internal/domain/settings"
	"github.com/kopidulu/cafe-pos/internal/domain/stock"
	"github.com/kopidulu/cafe-pos/internal/domain/table"
)

// --- Mock implementations ---

type memOrderStore struct {
	orders map[string]*order.Order
	seq    int
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{orders: make(map[string]*order.Order)}
}

func (m *memOrderStore) Create(_ context.Context, o *order.Order) error {
	m.seq++
	o.Number = order.FormatNumber(time.Now().UTC(), m.seq)
	m.orders[o.ID] = o
	return nil
}

func (m *memOrderStore) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderStore) List(_ context.Context, _ order.Filter) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (m *memOrderStore) AppendItems(_ context.Context, orderID string, items []order.OrderItem, totals order.Totals, _ audit.Actor) error {
	o := m.orders[orderID]
	o.Items = append(o.Items, items...)
	o.Subtotal = totals.Subtotal
	o.Tax = totals.Tax
	o.Total = totals.Total
	return nil
}

func (m *memOrderStore) UpdateStatus(_ context.Context, orderID string, _, to order.Status, _ audit.Actor) error {
	m.orders[orderID].Status = to
	return nil
}

func (m *memOrderStore) UpdateItemStatus(_ context.Context, orderID, itemID string, status order.ItemStatus, _ audit.Actor) error {
	for i := range m.orders[orderID].Items {
		if m.orders[orderID].Items[i].ID == itemID {
			m.orders[orderID].Items[i].Status = status
			return nil
		}
	}
	return order.ErrItemNotInOrder
}

type memPaymentStore struct {
	transactions map[string]*payment.Transaction
	paidOrders   map[string]bool
	seq          int
}

func newMemPaymentStore() *memPaymentStore {
	return &memPaymentStore{
		transactions: make(map[string]*payment.Transaction),
		paidOrders:   make(map[string]bool),
	}
}

func (m *memPaymentStore) GetTransaction(_ context.Context, id string) (*payment.Transaction, error) {
	t, ok := m.transactions[id]
	if !ok {
		return nil, payment.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memPaymentStore) HasCompletedPayment(_ context.Context, orderID string) (bool, error) {
	return m.paidOrders[orderID], nil
}

func (m *memPaymentStore) CreatePayment(_ context.Context, t *payment.Transaction, _ *order.Order) error {
	if m.paidOrders[t.OrderID] {
		return payment.ErrAlreadyPaid
	}
	m.seq++
	t.Number = payment.FormatNumber(time.Now().UTC(), m.seq)
	m.transactions[t.ID] = t
	m.paidOrders[t.OrderID] = true
	return nil
}

func (m *memPaymentStore) Refund(_ context.Context, t *payment.Transaction, _ string, _ audit.Actor) error {
	m.transactions[t.ID].Status = payment.StatusRefunded
	return nil
}

func (m *memPaymentStore) DailySummary(_ context.Context, day time.Time) (*payment.DailyReport, error) {
	return &payment.DailyReport{Date: day}, nil
}

type stubProducts struct {
	byID map[string]product.Product
}

func (s *stubProducts) List(_ context.Context) ([]product.Product, error) {
	var out []product.Product
	for _, p := range s.byID {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (s *stubProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := s.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type stubTables struct{}

func (stubTables) List(_ context.Context) ([]table.Table, error) {
	return []table.Table{{ID: "t1", Number: 1, Capacity: 2, Status: table.StatusAvailable}}, nil
}

func (stubTables) GetByID(_ context.Context, id string) (*table.Table, error) {
	return &table.Table{ID: id, Number: 1, Capacity: 2, Status: table.StatusAvailable}, nil
}

type stubCustomers struct{}

func (stubCustomers) Exists(_ context.Context, _ string) (bool, error) { return true, nil }

type stubValidator struct{}

func (stubValidator) Validate(_ context.Context, _ string, _ decimal.Decimal) (*discount.Result, error) {
	return nil, discount.ErrInvalid
}

type stubLedger struct{}

func (stubLedger) Decrement(_ context.Context, _ string, _ int, _ string, _ audit.Actor) error {
	return nil
}

func (stubLedger) Increment(_ context.Context, _ string, _ int, _ string, _ audit.Actor) error {
	return nil
}

func (stubLedger) Movements(_ context.Context, _ string) ([]stock.Movement, error) {
	return nil, nil
}

// --- Harness ---

type fixture struct {
	server       *httptest.Server
	orderStore   *memOrderStore
	paymentStore *memPaymentStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	products := &stubProducts{byID: map[string]product.Product{
		"p1": {ID: "p1", SKU: "KOPI-001", Name: "Espresso", Price: decimal.NewFromInt(20000), Stock: 100, Active: true},
	}}
	orderStore := newMemOrderStore()
	paymentStore := newMemPaymentStore()

	orderSvc := order.NewService(orderStore, products, stubCustomers{}, stubTables{},
		stubValidator{}, settings.StaticTaxSource{Rate: settings.DefaultTaxRate})
	paymentSvc := payment.NewService(paymentStore, orderStore)

	h := NewHandler(products, stubTables{}, orderSvc, paymentSvc, stubLedger{})
	mux := http.NewServeMux()
	h.Routes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &fixture{server: srv, orderStore: orderStore, paymentStore: paymentStore}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// --- Tests ---

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/orders", createOrderRequest{
		Type:  "TAKEAWAY",
		Items: []itemRequest{{ProductID: "p1", Quantity: 3}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode[orderResponse](t, resp)
	assert.Equal(t, "TAKEAWAY", body.Type)
	assert.Equal(t, "PENDING", body.Status)
	assert.InDelta(t, 60000, body.Subtotal, 0.01)
	assert.InDelta(t, 6000, body.Tax, 0.01)
	assert.InDelta(t, 66000, body.Total, 0.01)
	assert.Contains(t, body.Number, "ORD-")
	assert.Len(t, body.Items, 1)
}

func TestCreateOrder_LegacyTypeSpelling(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/orders", createOrderRequest{
		Type:  "TAKE_AWAY",
		Items: []itemRequest{{ProductID: "p1", Quantity: 1}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode[orderResponse](t, resp)
	assert.Equal(t, "TAKEAWAY", body.Type)
}

func TestCreateOrder_UnknownType(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/orders", createOrderRequest{
		Type:  "DRIVE_THRU",
		Items: []itemRequest{{ProductID: "p1", Quantity: 1}},
	})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/orders", createOrderRequest{Type: "TAKEAWAY"})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/orders", createOrderRequest{
		Type:  "TAKEAWAY",
		Items: []itemRequest{{ProductID: "missing", Quantity: 1}},
	})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/orders/missing", nil)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateOrderStatus_InvalidTransition(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/orders", createOrderRequest{
		Type:  "TAKEAWAY",
		Items: []itemRequest{{ProductID: "p1", Quantity: 1}},
	})
	created := decode[orderResponse](t, resp)

	// PENDING cannot jump straight to COMPLETED.
	resp = f.do(t, http.MethodPatch, "/api/orders/"+created.ID+"/status",
		updateStatusRequest{Status: "COMPLETED"})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/orders", createOrderRequest{
		Type:  "TAKEAWAY",
		Items: []itemRequest{{ProductID: "p1", Quantity: 1}},
	})
	created := decode[orderResponse](t, resp)

	resp = f.do(t, http.MethodPost, "/api/orders/"+created.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[orderResponse](t, resp)
	assert.Equal(t, "CANCELLED", body.Status)

	// A cancelled order cannot be cancelled again.
	resp = f.do(t, http.MethodPost, "/api/orders/"+created.ID+"/cancel", nil)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPayOrder(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/orders", createOrderRequest{
		Type:  "TAKEAWAY",
		Items: []itemRequest{{ProductID: "p1", Quantity: 3}},
	})
	created := decode[orderResponse](t, resp)

	resp = f.do(t, http.MethodPost, "/api/payments", payOrderRequest{
		OrderID:    created.ID,
		Method:     "CASH",
		PaidAmount: 70000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode[transactionResponse](t, resp)
	assert.Equal(t, "COMPLETED", body.Status)
	assert.InDelta(t, 66000, body.Amount, 0.01)
	assert.InDelta(t, 4000, body.ChangeAmount, 0.01)
	assert.Contains(t, body.Number, "TRX-")
}

func TestPayOrder_Insufficient(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/orders", createOrderRequest{
		Type:  "TAKEAWAY",
		Items: []itemRequest{{ProductID: "p1", Quantity: 3}},
	})
	created := decode[orderResponse](t, resp)

	resp = f.do(t, http.MethodPost, "/api/payments", payOrderRequest{
		OrderID:    created.ID,
		Method:     "CASH",
		PaidAmount: 50000,
	})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestPayOrder_Twice(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/orders", createOrderRequest{
		Type:  "TAKEAWAY",
		Items: []itemRequest{{ProductID: "p1", Quantity: 1}},
	})
	created := decode[orderResponse](t, resp)

	pay := payOrderRequest{OrderID: created.ID, Method: "CARD", PaidAmount: 30000}

	resp = f.do(t, http.MethodPost, "/api/payments", pay)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	resp = f.do(t, http.MethodPost, "/api/payments", pay)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()

	// The conflict wins even when the repeated attempt would also be short.
	pay.PaidAmount = 1000
	resp = f.do(t, http.MethodPost, "/api/payments", pay)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRefund_Repeated(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/orders", createOrderRequest{
		Type:  "TAKEAWAY",
		Items: []itemRequest{{ProductID: "p1", Quantity: 1}},
	})
	created := decode[orderResponse](t, resp)

	resp = f.do(t, http.MethodPost, "/api/payments", payOrderRequest{
		OrderID: created.ID, Method: "QRIS", PaidAmount: 30000,
	})
	tx := decode[transactionResponse](t, resp)

	resp = f.do(t, http.MethodPost, "/api/payments/"+tx.ID+"/refund",
		refundRequest{Reason: "wrong order"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	refunded := decode[transactionResponse](t, resp)
	assert.Equal(t, "REFUNDED", refunded.Status)

	// Refunding again is rejected.
	resp = f.do(t, http.MethodPost, "/api/payments/"+tx.ID+"/refund",
		refundRequest{Reason: "again"})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[[]productResponse](t, resp)
	require.Len(t, body, 1)
	assert.Equal(t, "KOPI-001", body[0].SKU)
}

// --- API key middleware ---

type stubAPIKeys struct {
	hash string
	name string
}

func (s *stubAPIKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	if hash != s.hash {
		return nil, auth.ErrNotFound
	}
	return &auth.APIKeyInfo{ID: "k1", KeyHash: s.hash, Name: s.name}, nil
}

func TestAPIKeyAuth(t *testing.T) {
	pepper := []byte("test-pepper")
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte("secret-key"))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	var actor audit.Actor
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := APIKeyAuth(&stubAPIKeys{hash: keyHash, name: "cashier-1"}, pepper)(inner)

	// Missing key.
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Wrong key.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("api_key", "wrong")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid key: request passes and the key name becomes the actor.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("api_key", "secret-key")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, audit.Actor("cashier-1"), actor)
}
