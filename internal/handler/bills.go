package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/dinepoint/pos-api/internal/auth"
	"github.com/dinepoint/pos-api/internal/database"
	"github.com/dinepoint/pos-api/internal/money"
	"github.com/dinepoint/pos-api/internal/receipt"
	"github.com/dinepoint/pos-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillServicer is the subset of the order service used by BillHandler.
type BillServicer interface {
	GenerateBill(ctx context.Context, actor *auth.Actor, restaurantID, sessionID uuid.UUID, req service.GenerateBillRequest) (*service.BillDetail, error)
	GetSessionBill(ctx context.Context, actor *auth.Actor, restaurantID, sessionID uuid.UUID) (*service.BillDetail, error)
	GetBill(ctx context.Context, actor *auth.Actor, billID uuid.UUID) (*service.BillDetail, error)
	GetReceipt(ctx context.Context, actor *auth.Actor, billID uuid.UUID) (*service.Receipt, error)
	AddPayment(ctx context.Context, actor *auth.Actor, billID uuid.UUID, req service.AddPaymentRequest) (*service.PaymentResult, error)
	ListPayments(ctx context.Context, actor *auth.Actor, billID uuid.UUID) ([]database.Payment, error)
}

// BillHandler handles bill, payment and receipt endpoints.
type BillHandler struct {
	svc BillServicer
}

func NewBillHandler(svc BillServicer) *BillHandler {
	return &BillHandler{svc: svc}
}

// RegisterSessionRoutes registers routes mounted under
// /restaurants/{rid}/sessions/{sid}/bill.
func (h *BillHandler) RegisterSessionRoutes(r chi.Router) {
	r.Post("/", h.Generate)
	r.Get("/", h.GetForSession)
}

// RegisterRoutes registers routes mounted under /bills.
func (h *BillHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{id}", h.Get)
	r.Get("/{id}/receipt", h.Receipt)
	r.Post("/{id}/payments", h.AddPayment)
	r.Get("/{id}/payments", h.ListPayments)
}

// --- Request types ---

type generateBillRequest struct {
	DiscountAmount *string `json:"discount_amount"`
	Notes          *string `json:"notes"`
}

type addPaymentRequest struct {
	Amount    string  `json:"amount"`
	Method    string  `json:"method"`
	Reference *string `json:"reference"`
	Notes     *string `json:"notes"`
}

// Generate handles POST /restaurants/{rid}/sessions/{sid}/bill.
func (h *BillHandler) Generate(w http.ResponseWriter, r *http.Request) {
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

	var req generateBillRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	discount := decimal.Zero
	if req.DiscountAmount != nil && *req.DiscountAmount != "" {
		d, err := money.Parse(*req.DiscountAmount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid discount_amount")
			return
		}
		discount = d
	}

	detail, err := h.svc.GenerateBill(r.Context(), actor, restaurantID, sessionID, service.GenerateBillRequest{
		DiscountAmount: discount,
		Notes:          derefString(req.Notes),
	})
	if err != nil {
		writeServiceError(w, "generate bill", err)
		return
	}

	writeJSON(w, http.StatusCreated, toBillDetailResponse(detail))
}

// GetForSession handles GET /restaurants/{rid}/sessions/{sid}/bill.
func (h *BillHandler) GetForSession(w http.ResponseWriter, r *http.Request) {
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

	detail, err := h.svc.GetSessionBill(r.Context(), actor, restaurantID, sessionID)
	if err != nil {
		writeServiceError(w, "get session bill", err)
		return
	}

	writeJSON(w, http.StatusOK, toBillDetailResponse(detail))
}

// Get handles GET /bills/{id}.
func (h *BillHandler) Get(w http.ResponseWriter, r *http.Request) {
	billID, ok := uuidParam(w, r, "id", "bill")
	if !ok {
		return
	}
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	detail, err := h.svc.GetBill(r.Context(), actor, billID)
	if err != nil {
		writeServiceError(w, "get bill", err)
		return
	}

	writeJSON(w, http.StatusOK, toBillDetailResponse(detail))
}

// Receipt handles GET /bills/{id}/receipt and streams a PDF.
func (h *BillHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	billID, ok := uuidParam(w, r, "id", "bill")
	if !ok {
		return
	}
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	rec, err := h.svc.GetReceipt(r.Context(), actor, billID)
	if err != nil {
		writeServiceError(w, "get receipt", err)
		return
	}

	pdf, err := receipt.Render(rec)
	if err != nil {
		log.Printf("ERROR: render receipt %s: %v", billID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename=\""+rec.Detail.Bill.BillNumber+".pdf\"")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		log.Printf("ERROR: write receipt %s: %v", billID, err)
	}
}

// AddPayment handles POST /bills/{id}/payments.
func (h *BillHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	billID, ok := uuidParam(w, r, "id", "bill")
	if !ok {
		return
	}
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	var req addPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Amount == "" {
		writeError(w, http.StatusBadRequest, "amount is required")
		return
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, "method is required")
		return
	}

	result, err := h.svc.AddPayment(r.Context(), actor, billID, service.AddPaymentRequest{
		Amount:    amount,
		Method:    req.Method,
		Reference: derefString(req.Reference),
		Notes:     derefString(req.Notes),
	})
	if err != nil {
		writeServiceError(w, "add payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, paymentResultResponse{
		Payment:   toPaymentResponse(result.Payment),
		Bill:      toBillResponse(result.Bill),
		TotalPaid: fixed(result.TotalPaid),
		Remaining: fixed(result.Remaining),
		Completed: result.Completed,
	})
}

// ListPayments handles GET /bills/{id}/payments.
func (h *BillHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	billID, ok := uuidParam(w, r, "id", "bill")
	if !ok {
		return
	}
	actor := requireActor(w, r)
	if actor == nil {
		return
	}

	payments, err := h.svc.ListPayments(r.Context(), actor, billID)
	if err != nil {
		writeServiceError(w, "list payments", err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentResponses(payments))
}
