package handler

import (
	"time"

	"github.com/dinepoint/pos-api/internal/database"
	"github.com/dinepoint/pos-api/internal/money"
	"github.com/dinepoint/pos-api/internal/service"
	"github.com/shopspring/decimal"
)

// --- Response types ---
// Money fields are serialized as fixed two-place strings.

type sessionResponse struct {
	ID             string     `json:"id"`
	RestaurantID   string     `json:"restaurant_id"`
	TableID        *string    `json:"table_id"`
	SessionNumber  string     `json:"session_number"`
	Status         string     `json:"status"`
	Channel        string     `json:"channel"`
	CustomerName   *string    `json:"customer_name"`
	GuestCount     *int32     `json:"guest_count"`
	Notes          *string    `json:"notes"`
	Subtotal       string     `json:"subtotal"`
	DiscountAmount string     `json:"discount_amount"`
	TaxAmount      string     `json:"tax_amount"`
	TotalAmount    string     `json:"total_amount"`
	OpenedBy       string     `json:"opened_by"`
	OpenedAt       time.Time  `json:"opened_at"`
	ClosedAt       *time.Time `json:"closed_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type sessionDetailResponse struct {
	sessionResponse
	Batches []batchResponse `json:"batches"`
}

type batchResponse struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"session_id"`
	BatchNumber string         `json:"batch_number"`
	Status      string         `json:"status"`
	Notes       *string        `json:"notes"`
	CreatedBy   string         `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Items       []itemResponse `json:"items,omitempty"`
}

type itemResponse struct {
	ID           string     `json:"id"`
	BatchID      string     `json:"batch_id"`
	MenuItemID   string     `json:"menu_item_id"`
	MenuItemName string     `json:"menu_item_name,omitempty"`
	Quantity     int32      `json:"quantity"`
	UnitPrice    string     `json:"unit_price"`
	TotalPrice   string     `json:"total_price"`
	Status       string     `json:"status"`
	Notes        *string    `json:"notes"`
	CancelReason *string    `json:"cancel_reason"`
	PriceRuleID  *string    `json:"price_rule_id"`
	PreparedAt   *time.Time `json:"prepared_at"`
	ServedAt     *time.Time `json:"served_at"`
	CancelledAt  *time.Time `json:"cancelled_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type itemStatusResponse struct {
	Item         itemResponse  `json:"item"`
	Batch        batchResponse `json:"batch"`
	BatchChanged bool          `json:"batch_changed"`
}

type billResponse struct {
	ID             string     `json:"id"`
	SessionID      string     `json:"session_id"`
	RestaurantID   string     `json:"restaurant_id"`
	BillNumber     string     `json:"bill_number"`
	Status         string     `json:"status"`
	Subtotal       string     `json:"subtotal"`
	TaxRate        string     `json:"tax_rate"`
	TaxAmount      string     `json:"tax_amount"`
	DiscountAmount string     `json:"discount_amount"`
	TotalAmount    string     `json:"total_amount"`
	Notes          *string    `json:"notes"`
	GeneratedBy    string     `json:"generated_by"`
	PaidAt         *time.Time `json:"paid_at"`
	VoidedAt       *time.Time `json:"voided_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

type billItemResponse struct {
	MenuItemID string `json:"menu_item_id"`
	Name       string `json:"name"`
	Quantity   int32  `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	TotalPrice string `json:"total_price"`
}

type billDetailResponse struct {
	billResponse
	Items     []billItemResponse `json:"items"`
	Payments  []paymentResponse  `json:"payments"`
	TotalPaid string             `json:"total_paid"`
	Remaining string             `json:"remaining"`
}

type paymentResponse struct {
	ID         string    `json:"id"`
	BillID     string    `json:"bill_id"`
	Amount     string    `json:"amount"`
	Method     string    `json:"method"`
	Reference  *string   `json:"reference"`
	Notes      *string   `json:"notes"`
	ReceivedBy string    `json:"received_by"`
	CreatedAt  time.Time `json:"created_at"`
}

type paymentResultResponse struct {
	Payment   paymentResponse `json:"payment"`
	Bill      billResponse    `json:"bill"`
	TotalPaid string          `json:"total_paid"`
	Remaining string          `json:"remaining"`
	Completed bool            `json:"completed"`
}

// --- Converters ---

func toSessionResponse(s database.OrderSession) sessionResponse {
	resp := sessionResponse{
		ID:             s.ID.String(),
		RestaurantID:   s.RestaurantID.String(),
		TableID:        uuidPtr(s.TableID),
		SessionNumber:  s.SessionNumber,
		Status:         string(s.Status),
		Channel:        string(s.Channel),
		CustomerName:   textPtr(s.CustomerName),
		Notes:          textPtr(s.Notes),
		Subtotal:       money.String(s.Subtotal),
		DiscountAmount: money.String(s.DiscountAmount),
		TaxAmount:      money.String(s.TaxAmount),
		TotalAmount:    money.String(s.TotalAmount),
		OpenedBy:       s.OpenedBy.String(),
		OpenedAt:       s.OpenedAt,
		ClosedAt:       timePtr(s.ClosedAt),
		UpdatedAt:      s.UpdatedAt,
	}
	if s.GuestCount.Valid {
		gc := s.GuestCount.Int32
		resp.GuestCount = &gc
	}
	return resp
}

func toBatchResponse(b database.OrderBatch) batchResponse {
	return batchResponse{
		ID:          b.ID.String(),
		SessionID:   b.SessionID.String(),
		BatchNumber: b.BatchNumber,
		Status:      string(b.Status),
		Notes:       textPtr(b.Notes),
		CreatedBy:   b.CreatedBy.String(),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func toBatchWithItemsResponse(b service.BatchWithItems) batchResponse {
	resp := toBatchResponse(b.Batch)
	resp.Items = make([]itemResponse, len(b.Items))
	for i, row := range b.Items {
		resp.Items[i] = toItemResponse(row.OrderItem)
		resp.Items[i].MenuItemName = row.MenuItemName
	}
	return resp
}

func toItemResponse(i database.OrderItem) itemResponse {
	return itemResponse{
		ID:           i.ID.String(),
		BatchID:      i.BatchID.String(),
		MenuItemID:   i.MenuItemID.String(),
		Quantity:     i.Quantity,
		UnitPrice:    money.String(i.UnitPrice),
		TotalPrice:   money.String(i.TotalPrice),
		Status:       string(i.Status),
		Notes:        textPtr(i.Notes),
		CancelReason: textPtr(i.CancelReason),
		PriceRuleID:  uuidPtr(i.PriceRuleID),
		PreparedAt:   timePtr(i.PreparedAt),
		ServedAt:     timePtr(i.ServedAt),
		CancelledAt:  timePtr(i.CancelledAt),
		UpdatedAt:    i.UpdatedAt,
	}
}

func toBillResponse(b database.Bill) billResponse {
	return billResponse{
		ID:             b.ID.String(),
		SessionID:      b.SessionID.String(),
		RestaurantID:   b.RestaurantID.String(),
		BillNumber:     b.BillNumber,
		Status:         string(b.Status),
		Subtotal:       money.String(b.Subtotal),
		TaxRate:        money.String(b.TaxRate),
		TaxAmount:      money.String(b.TaxAmount),
		DiscountAmount: money.String(b.DiscountAmount),
		TotalAmount:    money.String(b.TotalAmount),
		Notes:          textPtr(b.Notes),
		GeneratedBy:    b.GeneratedBy.String(),
		PaidAt:         timePtr(b.PaidAt),
		VoidedAt:       timePtr(b.VoidedAt),
		CreatedAt:      b.CreatedAt,
	}
}

func toBillDetailResponse(d *service.BillDetail) billDetailResponse {
	items := make([]billItemResponse, len(d.Items))
	for i, it := range d.Items {
		items[i] = billItemResponse{
			MenuItemID: it.MenuItemID.String(),
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  money.String(it.UnitPrice),
			TotalPrice: money.String(it.TotalPrice),
		}
	}
	return billDetailResponse{
		billResponse: toBillResponse(d.Bill),
		Items:        items,
		Payments:     toPaymentResponses(d.Payments),
		TotalPaid:    fixed(d.TotalPaid),
		Remaining:    fixed(d.Remaining),
	}
}

func toPaymentResponse(p database.Payment) paymentResponse {
	return paymentResponse{
		ID:         p.ID.String(),
		BillID:     p.BillID.String(),
		Amount:     money.String(p.Amount),
		Method:     string(p.Method),
		Reference:  textPtr(p.Reference),
		Notes:      textPtr(p.Notes),
		ReceivedBy: p.ReceivedBy.String(),
		CreatedAt:  p.CreatedAt,
	}
}

func toPaymentResponses(payments []database.Payment) []paymentResponse {
	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = toPaymentResponse(p)
	}
	return resp
}

func fixed(d decimal.Decimal) string {
	return d.StringFixed(2)
}
