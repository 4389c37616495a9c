//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"
	"time"
)

var transactionNumberPattern = regexp.MustCompile(`^TRX-\d{8}-\d{4}$`)

// placeOrder creates a takeaway order for the given product and returns it.
func placeOrder(t *testing.T, productID string, qty int) orderResponse {
	t.Helper()

	resp := doPost(t, "/api/orders", createOrderRequest{
		Type:  "TAKEAWAY",
		Items: []itemRequest{{ProductID: productID, Quantity: qty}},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("place order: expected 201, got %d", resp.StatusCode)
	}
	return decodeJSON[orderResponse](t, resp)
}

func TestPayOrder_CashWithChange(t *testing.T) {
	espresso := productBySKU(t, "KOPI-001")
	order := placeOrder(t, espresso.ID, 2) // total 39600

	resp := doPost(t, "/api/payments", payOrderRequest{
		OrderID:    order.ID,
		Method:     "CASH",
		PaidAmount: 50000,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	tx := decodeJSON[transactionResponse](t, resp)
	if !transactionNumberPattern.MatchString(tx.Number) {
		t.Errorf("transaction number %q does not match TRX-YYYYMMDD-NNNN", tx.Number)
	}
	if tx.Status != "COMPLETED" {
		t.Errorf("status: got %q, want COMPLETED", tx.Status)
	}
	if tx.Amount != 39600 {
		t.Errorf("amount: got %v, want 39600", tx.Amount)
	}
	if tx.ChangeAmount != 10400 {
		t.Errorf("change: got %v, want 10400", tx.ChangeAmount)
	}
}

func TestPayOrder_Insufficient(t *testing.T) {
	espresso := productBySKU(t, "KOPI-001")
	order := placeOrder(t, espresso.ID, 1) // total 19800

	resp := doPost(t, "/api/payments", payOrderRequest{
		OrderID:    order.ID,
		Method:     "CASH",
		PaidAmount: 10000,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestPayOrder_SecondPaymentRejected(t *testing.T) {
	espresso := productBySKU(t, "KOPI-001")
	order := placeOrder(t, espresso.ID, 1)

	pay := payOrderRequest{OrderID: order.ID, Method: "CARD", PaidAmount: 19800}

	resp := doPost(t, "/api/payments", pay)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first payment: expected 201, got %d", resp.StatusCode)
	}

	resp = doPost(t, "/api/payments", pay)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second payment: expected 409, got %d", resp.StatusCode)
	}
}

func TestPayOrder_DecrementsStock(t *testing.T) {
	croissant := productBySKU(t, "FOOD-001")
	before := croissant.Stock

	order := placeOrder(t, croissant.ID, 3)
	resp := doPost(t, "/api/payments", payOrderRequest{
		OrderID:    order.ID,
		Method:     "QRIS",
		PaidAmount: order.Total,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("pay: expected 201, got %d", resp.StatusCode)
	}

	after := productBySKU(t, "FOOD-001")
	if after.Stock != before-3 {
		t.Errorf("stock: got %d, want %d", after.Stock, before-3)
	}

	movResp := doGet(t, "/api/products/"+croissant.ID+"/stock-movements")
	defer movResp.Body.Close()
	movements := decodeJSON[[]movementResponse](t, movResp)
	if len(movements) == 0 {
		t.Fatal("no stock movements recorded")
	}
	if movements[0].Direction != "OUT" || movements[0].Quantity != 3 {
		t.Errorf("latest movement: got %s/%d, want OUT/3", movements[0].Direction, movements[0].Quantity)
	}
}

func TestRefund_ReversesEverything(t *testing.T) {
	latte := productBySKU(t, "KOPI-002")
	before := latte.Stock

	order := placeOrder(t, latte.ID, 2)
	resp := doPost(t, "/api/payments", payOrderRequest{
		OrderID:    order.ID,
		Method:     "CASH",
		PaidAmount: order.Total,
	})
	tx := decodeJSON[transactionResponse](t, resp)
	resp.Body.Close()

	resp = doPost(t, "/api/payments/"+tx.ID+"/refund", refundRequest{Reason: "wrong order"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refund: expected 200, got %d", resp.StatusCode)
	}

	refunded := decodeJSON[transactionResponse](t, resp)
	if refunded.Status != "REFUNDED" {
		t.Errorf("transaction status: got %q, want REFUNDED", refunded.Status)
	}

	// Order is cancelled and stock restored.
	orderResp := doGet(t, "/api/orders/" + order.ID)
	got := decodeJSON[orderResponse](t, orderResp)
	orderResp.Body.Close()
	if got.Status != "CANCELLED" {
		t.Errorf("order status: got %q, want CANCELLED", got.Status)
	}

	after := productBySKU(t, "KOPI-002")
	if after.Stock != before {
		t.Errorf("stock after refund: got %d, want %d", after.Stock, before)
	}
}

func TestRefund_SecondRefundRejected(t *testing.T) {
	espresso := productBySKU(t, "KOPI-001")
	order := placeOrder(t, espresso.ID, 1)

	resp := doPost(t, "/api/payments", payOrderRequest{
		OrderID:    order.ID,
		Method:     "QRIS",
		PaidAmount: order.Total,
	})
	tx := decodeJSON[transactionResponse](t, resp)
	resp.Body.Close()

	resp = doPost(t, "/api/payments/"+tx.ID+"/refund", refundRequest{Reason: "first"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first refund: expected 200, got %d", resp.StatusCode)
	}

	resp = doPost(t, "/api/payments/"+tx.ID+"/refund", refundRequest{Reason: "second"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second refund: expected 409, got %d", resp.StatusCode)
	}
}

func TestDailyReport(t *testing.T) {
	espresso := productBySKU(t, "KOPI-001")
	order := placeOrder(t, espresso.ID, 1)

	resp := doPost(t, "/api/payments", payOrderRequest{
		OrderID:    order.ID,
		Method:     "CASH",
		PaidAmount: order.Total,
	})
	resp.Body.Close()

	today := time.Now().UTC().Format("2006-01-02")
	reportResp := doGet(t, "/api/reports/daily?date=" + today)
	defer reportResp.Body.Close()
	if reportResp.StatusCode != http.StatusOK {
		t.Fatalf("report: expected 200, got %d", reportResp.StatusCode)
	}

	report := decodeJSON[dailyReportResponse](t, reportResp)
	if report.Date != today {
		t.Errorf("date: got %q, want %q", report.Date, today)
	}
	if report.Orders == 0 {
		t.Error("report shows zero orders after a completed payment")
	}
	if report.Total <= 0 {
		t.Errorf("report total: got %v, want > 0", report.Total)
	}
}
