package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kopidulu/cafe-pos/internal/domain/payment"
)

func (h *Handler) payOrder(w http.ResponseWriter, r *http.Request) {
	var req payOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	method, err := payment.ParseMethod(req.Method)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.payments.Pay(r.Context(), payment.PayRequest{
		OrderID:    req.OrderID,
		Method:     method,
		PaidAmount: decimal.NewFromFloat(req.PaidAmount),
		Notes:      req.Notes,
		Actor:      ActorFromContext(r.Context()),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(t))
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.payments.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (h *Handler) refundTransaction(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.payments.Refund(r.Context(), r.PathValue("id"), req.Reason, ActorFromContext(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (h *Handler) dailyReport(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		day = parsed
	}

	report, err := h.payments.DailyReport(r.Context(), day)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDailyReportResponse(report))
}
