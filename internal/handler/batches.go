package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dinepoint/pos-api/internal/auth"
	"github.com/dinepoint/pos-api/internal/database"
	"github.com/dinepoint/pos-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// BatchServicer is the subset of the order service used by BatchHandler.
type BatchServicer interface {
	AddBatch(ctx context.Context, actor *auth.Actor, restaurantID, sessionID uuid.UUID, req service.AddBatchRequest) (*service.BatchWithItems, error)
	ListBatches(ctx context.Context, actor *auth.Actor, restaurantID, sessionID uuid.UUID) ([]service.BatchWithItems, error)
	OverrideBatchStatus(ctx context.Context, actor *auth.Actor, batchID uuid.UUID, status string) (database.OrderBatch, error)
	SyncBatch(ctx context.Context, actor *auth.Actor, batchID uuid.UUID) (database.OrderBatch, bool, error)
	UpdateItemStatus(ctx context.Context, actor *auth.Actor, itemID uuid.UUID, req service.UpdateItemStatusRequest) (*service.ItemStatusResult, error)
}

// BatchHandler handles batch and item status endpoints.
type BatchHandler struct {
	svc BatchServicer
}

func NewBatchHandler(svc BatchServicer) *BatchHandler {
	return &BatchHandler{svc: svc}
}

// RegisterSessionRoutes registers routes mounted under
// /restaurants/{rid}/sessions/{sid}/batches.
func (h *BatchHandler) RegisterSessionRoutes(r chi.Router) {
	r.Post("/", h.Add)
	r.Get("/", h.List)
}

// RegisterRoutes registers routes mounted under /batches.
func (h *BatchHandler) RegisterRoutes(r chi.Router) {
	r.Patch("/{id}/status", h.OverrideStatus)
	r.Post("/{id}/sync", h.Sync)
}

// RegisterItemRoutes registers routes mounted under /items.
func (h *BatchHandler) RegisterItemRoutes(r chi.Router) {
	r.Patch("/{id}/status", h.UpdateItemStatus)
}

// --- Request types ---

type addBatchRequest struct {
	Notes *string               `json:"notes"`
	Items []addBatchItemRequest `json:"items"`
}

type addBatchItemRequest struct {
	MenuItemID string  `json:"menu_item_id"`
	Quantity   int32   `json:"quantity"`
	Notes      *string `json:"notes"`
}

type updateItemStatusRequest struct {
	Status       string  `json:"status"`
	CancelReason *string `json:"cancel_reason"`
}

type syncBatchResponse struct {
	Batch   batchResponse `json:"batch"`
	Changed bool          `json:"changed"`
}

func formatItemError(index int, msg string) string {
	return fmt.Sprintf("items[%d]: %s", index, msg)
}

// Add handles POST /restaurants/{rid}/sessions/{sid}/batches.
func (h *BatchHandler) Add(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := uuidParam(w, r, "rid", "restaurant")
	if !ok {
		return
	}
	sessionID, ok := uuidParam(w, r, "sid", "session")
	if !ok {
		return
	}
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	var req addBatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items are required")
		return
	}

	items := make([]service.AddBatchItemRequest, len(req.Items))
	for i, item := range req.Items {
		menuItemID, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			writeError(w, http.StatusBadRequest, formatItemError(i, "invalid menu_item_id"))
			return
		}
		items[i] = service.AddBatchItemRequest{
			MenuItemID: menuItemID,
			Quantity:   item.Quantity,
			Notes:      derefString(item.Notes),
		}
	}

	result, err := h.svc.AddBatch(r.Context(), actor, restaurantID, sessionID, service.AddBatchRequest{
		Notes: derefString(req.Notes),
		Items: items,
	})
	if err != nil {
		writeServiceError(w, "add batch", err)
		return
	}

	writeJSON(w, http.StatusCreated, toBatchWithItemsResponse(*result))
}

// List handles GET /restaurants/{rid}/sessions/{sid}/batches.
func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := uuidParam(w, r, "rid", "restaurant")
	if !ok {
		return
	}
	sessionID, ok := uuidParam(w, r, "sid", "session")
	if !ok {
		return
	}
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	batches, err := h.svc.ListBatches(r.Context(), actor, restaurantID, sessionID)
	if err != nil {
		writeServiceError(w, "list batches", err)
		return
	}

	resp := make([]batchResponse, len(batches))
	for i, b := range batches {
		resp[i] = toBatchWithItemsResponse(b)
	}
	writeJSON(w, http.StatusOK, resp)
}

// OverrideStatus handles PATCH /batches/{id}/status.
func (h *BatchHandler) OverrideStatus(w http.ResponseWriter, r *http.Request) {
	batchID, ok := uuidParam(w, r, "id", "batch")
	if !ok {
		return
	}
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	batch, err := h.svc.OverrideBatchStatus(r.Context(), actor, batchID, req.Status)
	if err != nil {
		writeServiceError(w, "override batch status", err)
		return
	}

	writeJSON(w, http.StatusOK, toBatchResponse(batch))
}

// Sync handles POST /batches/{id}/sync.
func (h *BatchHandler) Sync(w http.ResponseWriter, r *http.Request) {
	batchID, ok := uuidParam(w, r, "id", "batch")
	if !ok {
		return
	}
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	batch, changed, err := h.svc.SyncBatch(r.Context(), actor, batchID)
	if err != nil {
		writeServiceError(w, "sync batch", err)
		return
	}

	writeJSON(w, http.StatusOK, syncBatchResponse{
		Batch:   toBatchResponse(batch),
		Changed: changed,
	})
}

// UpdateItemStatus handles PATCH /items/{id}/status.
func (h *BatchHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	itemID, ok := uuidParam(w, r, "id", "item")
	if !ok {
		return
	}
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	var req updateItemStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	result, err := h.svc.UpdateItemStatus(r.Context(), actor, itemID, service.UpdateItemStatusRequest{
		Status:       req.Status,
		CancelReason: derefString(req.CancelReason),
	})
	if err != nil {
		writeServiceError(w, "update item status", err)
		return
	}

	writeJSON(w, http.StatusOK, itemStatusResponse{
		Item:         toItemResponse(result.Item),
		Batch:        toBatchResponse(result.Batch),
		BatchChanged: result.BatchChanged,
	})
}
