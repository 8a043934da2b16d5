package handler

import (
	"context"
	"net/http"

	"github.com/dinepoint/pos-api/internal/auth"
	"github.com/dinepoint/pos-api/internal/database"
	"github.com/dinepoint/pos-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SessionServicer is the subset of the order service used by SessionHandler.
type SessionServicer interface {
	OpenSession(ctx context.Context, actor *auth.Actor, restaurantID uuid.UUID, req service.OpenSessionRequest) (database.OrderSession, error)
	GetSession(ctx context.Context, actor *auth.Actor, restaurantID, sessionID uuid.UUID) (*service.SessionDetail, error)
	ListSessions(ctx context.Context, actor *auth.Actor, restaurantID uuid.UUID, status string, limit, offset int32) ([]database.OrderSession, error)
	UpdateSessionStatus(ctx context.Context, actor *auth.Actor, restaurantID, sessionID uuid.UUID, status string) (database.OrderSession, error)
}

// SessionHandler handles order session endpoints.
type SessionHandler struct {
	svc SessionServicer
}

func NewSessionHandler(svc SessionServicer) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// RegisterRoutes registers session routes on the given router.
// Expected to be mounted under /restaurants/{rid}/sessions.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Open)
	r.Get("/", h.List)
	r.Get("/{sid}", h.Get)
	r.Patch("/{sid}/status", h.UpdateStatus)
}

// --- Request types ---

type openSessionRequest struct {
	TableID      *string `json:"table_id"`
	Channel      string  `json:"channel"`
	CustomerName *string `json:"customer_name"`
	GuestCount   *int32  `json:"guest_count"`
	Notes        *string `json:"notes"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type sessionListResponse struct {
	Sessions []sessionResponse `json:"sessions"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// Open handles POST /restaurants/{rid}/sessions.
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := uuidParam(w, r, "rid", "restaurant")
	if !ok {
		return
	}
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	var req openSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	svcReq := service.OpenSessionRequest{
		Channel:      req.Channel,
		CustomerName: derefString(req.CustomerName),
		GuestCount:   req.GuestCount,
		Notes:        derefString(req.Notes),
	}
	if req.TableID != nil && *req.TableID != "" {
		tableID, err := uuid.Parse(*req.TableID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid table_id")
			return
		}
		svcReq.TableID = &tableID
	}

	session, err := h.svc.OpenSession(r.Context(), actor, restaurantID, svcReq)
	if err != nil {
		writeServiceError(w, "open session", err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

// List handles GET /restaurants/{rid}/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := uuidParam(w, r, "rid", "restaurant")
	if !ok {
		return
	}
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	limit, offset := pagination(r)
	sessions, err := h.svc.ListSessions(r.Context(), actor, restaurantID, r.URL.Query().Get("status"), int32(limit), int32(offset))
	if err != nil {
		writeServiceError(w, "list sessions", err)
		return
	}

	resp := make([]sessionResponse, len(sessions))
	for i, s := range sessions {
		resp[i] = toSessionResponse(s)
	}

	writeJSON(w, http.StatusOK, sessionListResponse{
		Sessions: resp,
		Limit:    limit,
		Offset:   offset,
	})
}

// Get handles GET /restaurants/{rid}/sessions/{sid}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	detail, err := h.svc.GetSession(r.Context(), actor, restaurantID, sessionID)
	if err != nil {
		writeServiceError(w, "get session", err)
		return
	}

	batches := make([]batchResponse, len(detail.Batches))
	for i, b := range detail.Batches {
		batches[i] = toBatchWithItemsResponse(b)
	}

	writeJSON(w, http.StatusOK, sessionDetailResponse{
		sessionResponse: toSessionResponse(detail.Session),
		Batches:         batches,
	})
}

// UpdateStatus handles PATCH /restaurants/{rid}/sessions/{sid}/status.
func (h *SessionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
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

	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	session, err := h.svc.UpdateSessionStatus(r.Context(), actor, restaurantID, sessionID, req.Status)
	if err != nil {
		writeServiceError(w, "update session status", err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(session))
}
