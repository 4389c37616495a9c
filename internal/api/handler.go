// Package api exposes the order and payment workflows over HTTP. Handlers
// decode JSON requests, delegate to the domain services, and map domain
// errors to statuses; no business rules live here.
package api

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/kopidulu/cafe-pos/internal/domain/order"
	"github.com/kopidulu/cafe-pos/internal/domain/payment"
	"github.com/kopidulu/cafe-pos/internal/domain/product"
	"github.com/kopidulu/cafe-pos/internal/domain/stock"
	"github.com/kopidulu/cafe-pos/internal/domain/table"
)

// Handler serves the cafe back-office API.
type Handler struct {
	products product.Repository
	tables   table.Repository
	orders   *order.Service
	payments *payment.Service
	stocks   stock.Ledger
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	tables table.Repository,
	orders *order.Service,
	payments *payment.Service,
	stocks stock.Ledger,
) *Handler {
	return &Handler{
		products: products,
		tables:   tables,
		orders:   orders,
		payments: payments,
		stocks:   stocks,
	}
}

// Routes registers all API endpoints on mux under /api.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("GET /api/products/{id}/stock-movements", h.listStockMovements)
	mux.HandleFunc("GET /api/tables", h.listTables)

	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("POST /api/orders/{id}/items", h.addOrderItems)
	mux.HandleFunc("PATCH /api/orders/{id}/status", h.updateOrderStatus)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.cancelOrder)
	mux.HandleFunc("PATCH /api/orders/{id}/items/{itemID}/status", h.updateOrderItemStatus)

	mux.HandleFunc("POST /api/payments", h.payOrder)
	mux.HandleFunc("GET /api/payments/{id}", h.getTransaction)
	mux.HandleFunc("POST /api/payments/{id}/refund", h.refundTransaction)
	mux.HandleFunc("GET /api/reports/daily", h.dailyReport)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		// Unlike order creation, a direct lookup of a missing product is a
		// plain 404.
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*p))
}

func (h *Handler) listStockMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.stocks.Movements(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]movementResponse, len(movements))
	for i, m := range movements {
		resp[i] = toMovementResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.tables.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = toTableResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}
