//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"
)

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{8}-\d{4}$`)

func TestCreateOrder_NoAuth(t *testing.T) {
	req := createOrderRequest{
		Type:  "TAKEAWAY",
		Items: []itemRequest{{ProductID: "x", Quantity: 1}},
	}
	resp := doRequest(t, http.MethodPost, "/api/orders", req, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_InvalidKey(t *testing.T) {
	req := createOrderRequest{
		Type:  "TAKEAWAY",
		Items: []itemRequest{{ProductID: "x", Quantity: 1}},
	}
	resp := doRequest(t, http.MethodPost, "/api/orders", req, "wrong-key")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	resp := doPost(t, "/api/orders", createOrderRequest{Type: "TAKEAWAY"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_DineInWithoutTable(t *testing.T) {
	req := createOrderRequest{
		Type:  "DINE_IN",
		Items: []itemRequest{{ProductID: productBySKU(t, "KOPI-001").ID, Quantity: 1}},
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	req := createOrderRequest{
		Type:  "TAKEAWAY",
		Items: []itemRequest{{ProductID: "00000000-0000-0000-0000-000000000000", Quantity: 1}},
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_Takeaway(t *testing.T) {
	espresso := productBySKU(t, "KOPI-001") // 18000

	req := createOrderRequest{
		Type:  "TAKEAWAY",
		Items: []itemRequest{{ProductID: espresso.ID, Quantity: 2}},
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if !orderNumberPattern.MatchString(order.Number) {
		t.Errorf("order number %q does not match ORD-YYYYMMDD-NNNN", order.Number)
	}
	if order.Status != "PENDING" {
		t.Errorf("status: got %q, want PENDING", order.Status)
	}
	if order.Subtotal != 36000 {
		t.Errorf("subtotal: got %v, want 36000", order.Subtotal)
	}
	if order.Tax != 3600 {
		t.Errorf("tax: got %v, want 3600 (10%%)", order.Tax)
	}
	if order.Total != 39600 {
		t.Errorf("total: got %v, want 39600", order.Total)
	}
}

func TestCreateOrder_LegacyTakeawaySpelling(t *testing.T) {
	req := createOrderRequest{
		Type:  "TAKE_AWAY",
		Items: []itemRequest{{ProductID: productBySKU(t, "TEH-001").ID, Quantity: 1}},
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if order.Type != "TAKEAWAY" {
		t.Errorf("type: got %q, want canonical TAKEAWAY", order.Type)
	}
}

func TestCreateOrder_DiscountApplied(t *testing.T) {
	nasi := productBySKU(t, "FOOD-002") // 45000, 2x clears the 50000 floor

	req := createOrderRequest{
		Type:         "TAKEAWAY",
		DiscountCode: "PROMO10",
		Items:        []itemRequest{{ProductID: nasi.ID, Quantity: 2}},
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if order.DiscountAmount != 9000 {
		t.Errorf("discount: got %v, want 9000", order.DiscountAmount)
	}
	if order.Total != 89100 {
		t.Errorf("total: got %v, want 89100", order.Total)
	}
}

func TestCreateOrder_InvalidDiscountSkipped(t *testing.T) {
	espresso := productBySKU(t, "KOPI-001")

	req := createOrderRequest{
		Type:         "TAKEAWAY",
		DiscountCode: "NOSUCHCODE",
		Items:        []itemRequest{{ProductID: espresso.ID, Quantity: 1}},
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	// An invalid code is skipped, not rejected: the order proceeds at full price.
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if order.DiscountAmount != 0 {
		t.Errorf("discount: got %v, want 0", order.DiscountAmount)
	}
}

func TestOrderStatus_FullLifecycle(t *testing.T) {
	espresso := productBySKU(t, "KOPI-001")

	resp := doPost(t, "/api/orders", createOrderRequest{
		Type:  "TAKEAWAY",
		Items: []itemRequest{{ProductID: espresso.ID, Quantity: 1}},
	})
	order := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	for _, status := range []string{"CONFIRMED", "PREPARING", "READY", "COMPLETED"} {
		resp := doPatch(t, "/api/orders/"+order.ID+"/status", updateStatusRequest{Status: status})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("transition to %s: expected 200, got %d", status, resp.StatusCode)
		}
		got := decodeJSON[orderResponse](t, resp)
		resp.Body.Close()
		if got.Status != status {
			t.Fatalf("status after transition: got %q, want %q", got.Status, status)
		}
	}
}

func TestOrderStatus_InvalidTransition(t *testing.T) {
	espresso := productBySKU(t, "KOPI-001")

	resp := doPost(t, "/api/orders", createOrderRequest{
		Type:  "TAKEAWAY",
		Items: []itemRequest{{ProductID: espresso.ID, Quantity: 1}},
	})
	order := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	// PENDING cannot jump straight to READY.
	resp = doPatch(t, "/api/orders/"+order.ID+"/status", updateStatusRequest{Status: "READY"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Message == "" {
		t.Error("error message is empty")
	}
}

func TestDineIn_OccupiesTable(t *testing.T) {
	tbl := firstAvailableTable(t)
	espresso := productBySKU(t, "KOPI-001")

	resp := doPost(t, "/api/orders", createOrderRequest{
		Type:    "DINE_IN",
		TableID: &tbl.ID,
		Items:   []itemRequest{{ProductID: espresso.ID, Quantity: 1}},
	})
	order := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	tablesResp := doGet(t, "/api/tables")
	defer tablesResp.Body.Close()
	for _, got := range decodeJSON[[]tableResponse](t, tablesResp) {
		if got.ID == tbl.ID && got.Status != "OCCUPIED" {
			t.Errorf("table status: got %q, want OCCUPIED", got.Status)
		}
	}

	// Cancelling the only active order frees the table again.
	resp = doPatch(t, "/api/orders/"+order.ID+"/status", updateStatusRequest{Status: "CANCELLED"})
	resp.Body.Close()

	tablesResp = doGet(t, "/api/tables")
	defer tablesResp.Body.Close()
	for _, got := range decodeJSON[[]tableResponse](t, tablesResp) {
		if got.ID == tbl.ID && got.Status != "AVAILABLE" {
			t.Errorf("table status after cancel: got %q, want AVAILABLE", got.Status)
		}
	}
}
