package api

import (
	"time"

	"github.com/kopidulu/cafe-pos/internal/domain/order"
	"github.com/kopidulu/cafe-pos/internal/domain/payment"
	"github.com/kopidulu/cafe-pos/internal/domain/product"
	"github.com/kopidulu/cafe-pos/internal/domain/stock"
	"github.com/kopidulu/cafe-pos/internal/domain/table"
)

type itemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes,omitempty"`
}

type createOrderRequest struct {
	Type         string        `json:"type"`
	TableID      *string       `json:"table_id,omitempty"`
	CustomerID   *string       `json:"customer_id,omitempty"`
	DiscountCode string        `json:"discount_code,omitempty"`
	Notes        string        `json:"notes,omitempty"`
	Items        []itemRequest `json:"items"`
}

type addItemsRequest struct {
	Items []itemRequest `json:"items"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type payOrderRequest struct {
	OrderID    string  `json:"order_id"`
	Method     string  `json:"method"`
	PaidAmount float64 `json:"paid_amount"`
	Notes      string  `json:"notes,omitempty"`
}

type refundRequest struct {
	Reason string `json:"reason"`
}

type orderItemResponse struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
	Notes       string  `json:"notes,omitempty"`
	Status      string  `json:"status"`
}

type orderResponse struct {
	ID             string              `json:"id"`
	Number         string              `json:"number"`
	Type           string              `json:"type"`
	TableID        *string             `json:"table_id,omitempty"`
	CustomerID     *string             `json:"customer_id,omitempty"`
	Items          []orderItemResponse `json:"items"`
	Subtotal       float64             `json:"subtotal"`
	DiscountAmount float64             `json:"discount_amount"`
	Tax            float64             `json:"tax"`
	Total          float64             `json:"total"`
	Status         string              `json:"status"`
	Notes          string              `json:"notes,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

type transactionResponse struct {
	ID           string    `json:"id"`
	Number       string    `json:"number"`
	OrderID      string    `json:"order_id"`
	Method       string    `json:"method"`
	Status       string    `json:"status"`
	Amount       float64   `json:"amount"`
	PaidAmount   float64   `json:"paid_amount"`
	ChangeAmount float64   `json:"change_amount"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type methodSummaryResponse struct {
	Method string  `json:"method"`
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

type dailyReportResponse struct {
	Date    string                  `json:"date"`
	Orders  int                     `json:"orders"`
	Total   float64                 `json:"total"`
	Methods []methodSummaryResponse `json:"methods"`
}

type productResponse struct {
	ID     string  `json:"id"`
	SKU    string  `json:"sku"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Stock  int     `json:"stock"`
	Active bool    `json:"active"`
}

type tableResponse struct {
	ID       string `json:"id"`
	Number   int    `json:"number"`
	Capacity int    `json:"capacity"`
	Status   string `json:"status"`
}

type movementResponse struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Direction string    `json:"direction"`
	Quantity  int       `json:"quantity"`
	Reference string    `json:"reference,omitempty"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.InexactFloat64(),
			Subtotal:    it.Subtotal.InexactFloat64(),
			Notes:       it.Notes,
			Status:      string(it.Status),
		}
	}
	return orderResponse{
		ID:             o.ID,
		Number:         o.Number,
		Type:           string(o.Type),
		TableID:        o.TableID,
		CustomerID:     o.CustomerID,
		Items:          items,
		Subtotal:       o.Subtotal.InexactFloat64(),
		DiscountAmount: o.DiscountAmount.InexactFloat64(),
		Tax:            o.Tax.InexactFloat64(),
		Total:          o.Total.InexactFloat64(),
		Status:         string(o.Status),
		Notes:          o.Notes,
		CreatedAt:      o.CreatedAt,
	}
}

func toTransactionResponse(t *payment.Transaction) transactionResponse {
	return transactionResponse{
		ID:           t.ID,
		Number:       t.Number,
		OrderID:      t.OrderID,
		Method:       string(t.Method),
		Status:       string(t.Status),
		Amount:       t.Amount.InexactFloat64(),
		PaidAmount:   t.PaidAmount.InexactFloat64(),
		ChangeAmount: t.ChangeAmount.InexactFloat64(),
		Notes:        t.Notes,
		CreatedAt:    t.CreatedAt,
	}
}

func toDailyReportResponse(r *payment.DailyReport) dailyReportResponse {
	methods := make([]methodSummaryResponse, len(r.Methods))
	for i, m := range r.Methods {
		methods[i] = methodSummaryResponse{
			Method: string(m.Method),
			Count:  m.Count,
			Amount: m.Amount.InexactFloat64(),
		}
	}
	return dailyReportResponse{
		Date:    r.Date.Format("2006-01-02"),
		Orders:  r.Orders,
		Total:   r.Total.InexactFloat64(),
		Methods: methods,
	}
}

func toProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:     p.ID,
		SKU:    p.SKU,
		Name:   p.Name,
		Price:  p.Price.InexactFloat64(),
		Stock:  p.Stock,
		Active: p.Active,
	}
}

func toTableResponse(t table.Table) tableResponse {
	return tableResponse{
		ID:       t.ID,
		Number:   t.Number,
		Capacity: t.Capacity,
		Status:   string(t.Status),
	}
}

func toMovementResponse(m stock.Movement) movementResponse {
	return movementResponse{
		ID:        m.ID,
		ProductID: m.ProductID,
		Direction: string(m.Direction),
		Quantity:  m.Quantity,
		Reference: m.Reference,
		CreatedBy: string(m.CreatedBy),
		CreatedAt: m.CreatedAt,
	}
}
