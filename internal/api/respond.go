package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/kopidulu/cafe-pos/internal/domain/customer"
	"github.com/kopidulu/cafe-pos/internal/domain/discount"
	"github.com/kopidulu/cafe-pos/internal/domain/order"
	"github.com/kopidulu/cafe-pos/internal/domain/payment"
	"github.com/kopidulu/cafe-pos/internal/domain/product"
	"github.com/kopidulu/cafe-pos/internal/domain/stock"
	"github.com/kopidulu/cafe-pos/internal/domain/table"
)

// errorResponse is the uniform error envelope for all API errors.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// respondError maps domain errors to HTTP statuses: malformed input is 400,
// missing aggregates 404, state conflicts 409, and semantically invalid
// references or amounts 422. Anything unmapped is a 500 with the detail kept
// out of the response body.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch status := errorStatus(err); status {
	case http.StatusInternalServerError:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, status, "internal error")
	default:
		writeError(w, status, err.Error())
	}
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrTableRequired):
		return http.StatusBadRequest

	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, payment.ErrNotFound),
		errors.Is(err, table.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, payment.ErrAlreadyPaid),
		errors.Is(err, payment.ErrOrderCancelled),
		errors.Is(err, order.ErrConflict):
		return http.StatusConflict

	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, customer.ErrNotFound),
		errors.Is(err, order.ErrItemNotInOrder),
		errors.Is(err, discount.ErrExhausted):
		return http.StatusUnprocessableEntity
	}

	var (
		invalidQty    *order.InvalidQuantityError
		inactive      *product.InactiveError
		unavailable   *table.UnavailableError
		transition    *order.InvalidTransitionError
		closed        *order.OrderClosedError
		insufficient  *payment.InsufficientPaymentError
		refundBlocked *payment.RefundNotAllowedError
		outOfStock    *stock.InsufficientError
	)
	switch {
	case errors.As(err, &invalidQty), errors.As(err, &inactive),
		errors.As(err, &insufficient), errors.As(err, &outOfStock):
		return http.StatusUnprocessableEntity
	case errors.As(err, &unavailable), errors.As(err, &transition),
		errors.As(err, &closed), errors.As(err, &refundBlocked):
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}
