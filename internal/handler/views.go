package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dinepoint/pos-api/internal/auth"
	"github.com/dinepoint/pos-api/internal/pricing"
	"github.com/dinepoint/pos-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ViewServicer is the subset of the order service used by ViewHandler.
type ViewServicer interface {
	KitchenView(ctx context.Context, actor *auth.Actor, restaurantID uuid.UUID) ([]service.KitchenBatch, error)
	BillingView(ctx context.Context, actor *auth.Actor, restaurantID uuid.UUID) ([]service.BillingSession, error)
	PriceAt(ctx context.Context, actor *auth.Actor, restaurantID, menuItemID uuid.UUID, at time.Time) (pricing.Result, error)
}

// ViewHandler serves the kitchen and billing screens and price lookups.
type ViewHandler struct {
	svc ViewServicer
	now func() time.Time
}

func NewViewHandler(svc ViewServicer) *ViewHandler {
	return &ViewHandler{svc: svc, now: time.Now}
}

// RegisterRoutes registers routes mounted under /restaurants/{rid}.
func (h *ViewHandler) RegisterRoutes(r chi.Router) {
	r.Get("/kitchen", h.Kitchen)
	r.Get("/billing", h.Billing)
	r.Get("/menu-items/{id}/price", h.Price)
}

type kitchenBatchResponse struct {
	batchResponse
	SessionNumber string  `json:"session_number"`
	Channel       string  `json:"channel"`
	TableID       *string `json:"table_id"`
	TableNumber   *string `json:"table_number"`
}

type billingSessionResponse struct {
	Session   sessionResponse `json:"session"`
	Bill      *billResponse   `json:"bill"`
	TotalPaid string          `json:"total_paid"`
	Remaining string          `json:"remaining"`
}

type priceResponse struct {
	MenuItemID    string  `json:"menu_item_id"`
	At            string  `json:"at"`
	Price         string  `json:"price"`
	BasePrice     string  `json:"base_price"`
	PriceRuleID   *string `json:"price_rule_id"`
	PriceRuleName *string `json:"price_rule_name"`
}

// Kitchen handles GET /restaurants/{rid}/kitchen.
func (h *ViewHandler) Kitchen(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := uuidParam(w, r, "rid", "restaurant")
	if !ok {
		return
	}
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	batches, err := h.svc.KitchenView(r.Context(), actor, restaurantID)
	if err != nil {
		writeServiceError(w, "kitchen view", err)
		return
	}

	resp := make([]kitchenBatchResponse, len(batches))
	for i, kb := range batches {
		row := kb.Batch
		b := batchResponse{
			ID:          row.ID.String(),
			SessionID:   row.SessionID.String(),
			BatchNumber: row.BatchNumber,
			Status:      string(row.Status),
			Notes:       textPtr(row.Notes),
			CreatedAt:   row.CreatedAt,
			Items:       make([]itemResponse, len(kb.Items)),
		}
		for j, it := range kb.Items {
			b.Items[j] = toItemResponse(it.OrderItem)
			b.Items[j].MenuItemName = it.MenuItemName
		}
		resp[i] = kitchenBatchResponse{
			batchResponse: b,
			SessionNumber: row.SessionNumber,
			Channel:       string(row.Channel),
			TableID:       uuidPtr(row.TableID),
			TableNumber:   textPtr(row.TableNumber),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Billing handles GET /restaurants/{rid}/billing.
func (h *ViewHandler) Billing(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := uuidParam(w, r, "rid", "restaurant")
	if !ok {
		return
	}
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	sessions, err := h.svc.BillingView(r.Context(), actor, restaurantID)
	if err != nil {
		writeServiceError(w, "billing view", err)
		return
	}

	resp := make([]billingSessionResponse, len(sessions))
	for i, bs := range sessions {
		resp[i] = billingSessionResponse{
			Session:   toSessionResponse(bs.Session),
			TotalPaid: fixed(bs.TotalPaid),
			Remaining: fixed(bs.Remaining),
		}
		if bs.Bill != nil {
			b := toBillResponse(*bs.Bill)
			resp[i].Bill = &b
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Price handles GET /restaurants/{rid}/menu-items/{id}/price?at=RFC3339.
// Without at, the current time is used.
func (h *ViewHandler) Price(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := uuidParam(w, r, "rid", "restaurant")
	if !ok {
		return
	}
	menuItemID, ok := uuidParam(w, r, "id", "menu item")
	if !ok {
		return
	}
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	at := h.now()
	if s := r.URL.Query().Get("at"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid at format, use RFC3339")
			return
		}
		at = t
	}

	res, err := h.svc.PriceAt(r.Context(), actor, restaurantID, menuItemID, at)
	if err != nil {
		writeServiceError(w, "resolve price", err)
		return
	}

	resp := priceResponse{
		MenuItemID: menuItemID.String(),
		At:         at.Format(time.RFC3339),
		Price:      fixed(res.Price),
		BasePrice:  fixed(res.BasePrice),
	}
	if res.AppliedRule != nil {
		id := res.AppliedRule.ID.String()
		resp.PriceRuleID = &id
		resp.PriceRuleName = &res.AppliedRule.Name
	}
	writeJSON(w, http.StatusOK, resp)
}
