package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dinepoint/pos-api/internal/auth"
	"github.com/dinepoint/pos-api/internal/database"
	"github.com/dinepoint/pos-api/internal/handler"
	"github.com/dinepoint/pos-api/internal/middleware"
	"github.com/dinepoint/pos-api/internal/money"
	"github.com/dinepoint/pos-api/internal/pricing"
	"github.com/dinepoint/pos-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- Mock order service ---

// mockOrderService satisfies every servicer interface in the handler
// package. Unset functions fail the request with a 500.
type mockOrderService struct {
	openSessionFn    func(ctx context.Context, actor *auth.Actor, rid uuid.UUID, req service.OpenSessionRequest) (database.OrderSession, error)
	getSessionFn     func(ctx context.Context, actor *auth.Actor, rid, sid uuid.UUID) (*service.SessionDetail, error)
	listSessionsFn   func(ctx context.Context, actor *auth.Actor, rid uuid.UUID, status string, limit, offset int32) ([]database.OrderSession, error)
	updateSessionFn  func(ctx context.Context, actor *auth.Actor, rid, sid uuid.UUID, status string) (database.OrderSession, error)
	addBatchFn       func(ctx context.Context, actor *auth.Actor, rid, sid uuid.UUID, req service.AddBatchRequest) (*service.BatchWithItems, error)
	listBatchesFn    func(ctx context.Context, actor *auth.Actor, rid, sid uuid.UUID) ([]service.BatchWithItems, error)
	overrideBatchFn  func(ctx context.Context, actor *auth.Actor, batchID uuid.UUID, status string) (database.OrderBatch, error)
	syncBatchFn      func(ctx context.Context, actor *auth.Actor, batchID uuid.UUID) (database.OrderBatch, bool, error)
	updateItemFn     func(ctx context.Context, actor *auth.Actor, itemID uuid.UUID, req service.UpdateItemStatusRequest) (*service.ItemStatusResult, error)
	generateBillFn   func(ctx context.Context, actor *auth.Actor, rid, sid uuid.UUID, req service.GenerateBillRequest) (*service.BillDetail, error)
	getSessionBillFn func(ctx context.Context, actor *auth.Actor, rid, sid uuid.UUID) (*service.BillDetail, error)
	getBillFn        func(ctx context.Context, actor *auth.Actor, billID uuid.UUID) (*service.BillDetail, error)
	getReceiptFn     func(ctx context.Context, actor *auth.Actor, billID uuid.UUID) (*service.Receipt, error)
	addPaymentFn     func(ctx context.Context, actor *auth.Actor, billID uuid.UUID, req service.AddPaymentRequest) (*service.PaymentResult, error)
	listPaymentsFn   func(ctx context.Context, actor *auth.Actor, billID uuid.UUID) ([]database.Payment, error)
	kitchenViewFn    func(ctx context.Context, actor *auth.Actor, rid uuid.UUID) ([]service.KitchenBatch, error)
	billingViewFn    func(ctx context.Context, actor *auth.Actor, rid uuid.UUID) ([]service.BillingSession, error)
	priceAtFn        func(ctx context.Context, actor *auth.Actor, rid, menuItemID uuid.UUID, at time.Time) (pricing.Result, error)
}

var errNotMocked = errors.New("not mocked")

func (m *mockOrderService) OpenSession(ctx context.Context, actor *auth.Actor, rid uuid.UUID, req service.OpenSessionRequest) (database.OrderSession, error) {
	if m.openSessionFn != nil {
		return m.openSessionFn(ctx, actor, rid, req)
	}
	return database.OrderSession{}, errNotMocked
}

func (m *mockOrderService) GetSession(ctx context.Context, actor *auth.Actor, rid, sid uuid.UUID) (*service.SessionDetail, error) {
	if m.getSessionFn != nil {
		return m.getSessionFn(ctx, actor, rid, sid)
	}
	return nil, errNotMocked
}

func (m *mockOrderService) ListSessions(ctx context.Context, actor *auth.Actor, rid uuid.UUID, status string, limit, offset int32) ([]database.OrderSession, error) {
	if m.listSessionsFn != nil {
		return m.listSessionsFn(ctx, actor, rid, status, limit, offset)
	}
	return nil, errNotMocked
}

func (m *mockOrderService) UpdateSessionStatus(ctx context.Context, actor *auth.Actor, rid, sid uuid.UUID, status string) (database.OrderSession, error) {
	if m.updateSessionFn != nil {
		return m.updateSessionFn(ctx, actor, rid, sid, status)
	}
	return database.OrderSession{}, errNotMocked
}

func (m *mockOrderService) AddBatch(ctx context.Context, actor *auth.Actor, rid, sid uuid.UUID, req service.AddBatchRequest) (*service.BatchWithItems, error) {
	if m.addBatchFn != nil {
		return m.addBatchFn(ctx, actor, rid, sid, req)
	}
	return nil, errNotMocked
}

func (m *mockOrderService) ListBatches(ctx context.Context, actor *auth.Actor, rid, sid uuid.UUID) ([]service.BatchWithItems, error) {
	if m.listBatchesFn != nil {
		return m.listBatchesFn(ctx, actor, rid, sid)
	}
	return nil, errNotMocked
}

func (m *mockOrderService) OverrideBatchStatus(ctx context.Context, actor *auth.Actor, batchID uuid.UUID, status string) (database.OrderBatch, error) {
	if m.overrideBatchFn != nil {
		return m.overrideBatchFn(ctx, actor, batchID, status)
	}
	return database.OrderBatch{}, errNotMocked
}

func (m *mockOrderService) SyncBatch(ctx context.Context, actor *auth.Actor, batchID uuid.UUID) (database.OrderBatch, bool, error) {
	if m.syncBatchFn != nil {
		return m.syncBatchFn(ctx, actor, batchID)
	}
	return database.OrderBatch{}, false, errNotMocked
}

func (m *mockOrderService) UpdateItemStatus(ctx context.Context, actor *auth.Actor, itemID uuid.UUID, req service.UpdateItemStatusRequest) (*service.ItemStatusResult, error) {
	if m.updateItemFn != nil {
		return m.updateItemFn(ctx, actor, itemID, req)
	}
	return nil, errNotMocked
}

func (m *mockOrderService) GenerateBill(ctx context.Context, actor *auth.Actor, rid, sid uuid.UUID, req service.GenerateBillRequest) (*service.BillDetail, error) {
	if m.generateBillFn != nil {
		return m.generateBillFn(ctx, actor, rid, sid, req)
	}
	return nil, errNotMocked
}

func (m *mockOrderService) GetSessionBill(ctx context.Context, actor *auth.Actor, rid, sid uuid.UUID) (*service.BillDetail, error) {
	if m.getSessionBillFn != nil {
		return m.getSessionBillFn(ctx, actor, rid, sid)
	}
	return nil, errNotMocked
}

func (m *mockOrderService) GetBill(ctx context.Context, actor *auth.Actor, billID uuid.UUID) (*service.BillDetail, error) {
	if m.getBillFn != nil {
		return m.getBillFn(ctx, actor, billID)
	}
	return nil, errNotMocked
}

func (m *mockOrderService) GetReceipt(ctx context.Context, actor *auth.Actor, billID uuid.UUID) (*service.Receipt, error) {
	if m.getReceiptFn != nil {
		return m.getReceiptFn(ctx, actor, billID)
	}
	return nil, errNotMocked
}

func (m *mockOrderService) AddPayment(ctx context.Context, actor *auth.Actor, billID uuid.UUID, req service.AddPaymentRequest) (*service.PaymentResult, error) {
	if m.addPaymentFn != nil {
		return m.addPaymentFn(ctx, actor, billID, req)
	}
	return nil, errNotMocked
}

func (m *mockOrderService) ListPayments(ctx context.Context, actor *auth.Actor, billID uuid.UUID) ([]database.Payment, error) {
	if m.listPaymentsFn != nil {
		return m.listPaymentsFn(ctx, actor, billID)
	}
	return nil, errNotMocked
}

func (m *mockOrderService) KitchenView(ctx context.Context, actor *auth.Actor, rid uuid.UUID) ([]service.KitchenBatch, error) {
	if m.kitchenViewFn != nil {
		return m.kitchenViewFn(ctx, actor, rid)
	}
	return nil, errNotMocked
}

func (m *mockOrderService) BillingView(ctx context.Context, actor *auth.Actor, rid uuid.UUID) ([]service.BillingSession, error) {
	if m.billingViewFn != nil {
		return m.billingViewFn(ctx, actor, rid)
	}
	return nil, errNotMocked
}

func (m *mockOrderService) PriceAt(ctx context.Context, actor *auth.Actor, rid, menuItemID uuid.UUID, at time.Time) (pricing.Result, error) {
	if m.priceAtFn != nil {
		return m.priceAtFn(ctx, actor, rid, menuItemID, at)
	}
	return pricing.Result{}, errNotMocked
}

// --- Mock identifier ---

const testToken = "test-token"

type staticIdentifier struct {
	actor *auth.Actor
}

func (s staticIdentifier) Resolve(ctx context.Context, token string) (*auth.Actor, error) {
	if token != testToken {
		return nil, auth.ErrInvalidToken
	}
	return s.actor, nil
}

// --- Test helpers ---

func testActor(role string) *auth.Actor {
	return &auth.Actor{
		UserID:       uuid.New(),
		RestaurantID: uuid.New(),
		Role:         role,
		IsActive:     true,
	}
}

// setupRouter mounts every handler the way the application router does.
func setupRouter(svc *mockOrderService, actor *auth.Actor) *chi.Mux {
	sessions := handler.NewSessionHandler(svc)
	batches := handler.NewBatchHandler(svc)
	bills := handler.NewBillHandler(svc)
	views := handler.NewViewHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.Authenticate(staticIdentifier{actor: actor}))
	r.Route("/restaurants/{rid}", func(r chi.Router) {
		views.RegisterRoutes(r)
		r.Route("/sessions", func(r chi.Router) {
			sessions.RegisterRoutes(r)
			r.Route("/{sid}/batches", batches.RegisterSessionRoutes)
			r.Route("/{sid}/bill", bills.RegisterSessionRoutes)
		})
	})
	r.Route("/batches", batches.RegisterRoutes)
	r.Route("/items", batches.RegisterItemRoutes)
	r.Route("/bills", bills.RegisterRoutes)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+testToken)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeObject(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeArray(t *testing.T, rr *httptest.ResponseRecorder) []interface{} {
	t.Helper()
	var resp []interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func testNumeric(s string) pgtype.Numeric {
	return money.ToNumeric(decimal.RequireFromString(s))
}

func testSession(rid uuid.UUID, status database.SessionStatus) database.OrderSession {
	now := time.Now()
	return database.OrderSession{
		ID:             uuid.New(),
		RestaurantID:   rid,
		SessionNumber:  "A1B2C3",
		Status:         status,
		Channel:        database.SessionChannelDINEIN,
		Subtotal:       testNumeric("0"),
		DiscountAmount: testNumeric("0"),
		TaxAmount:      testNumeric("0"),
		TotalAmount:    testNumeric("0"),
		OpenedBy:       uuid.New(),
		OpenedAt:       now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func testBatch(sessionID uuid.UUID, status database.BatchStatus) database.OrderBatch {
	now := time.Now()
	return database.OrderBatch{
		ID:          uuid.New(),
		SessionID:   sessionID,
		BatchNumber: "B7K2",
		Status:      status,
		CreatedBy:   uuid.New(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func testItem(batchID uuid.UUID, qty int32, unit, total string, status database.ItemStatus) database.OrderItem {
	now := time.Now()
	return database.OrderItem{
		ID:         uuid.New(),
		BatchID:    batchID,
		MenuItemID: uuid.New(),
		Quantity:   qty,
		UnitPrice:  testNumeric(unit),
		TotalPrice: testNumeric(total),
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func testBill(sessionID, rid uuid.UUID) database.Bill {
	return database.Bill{
		ID:             uuid.New(),
		SessionID:      sessionID,
		RestaurantID:   rid,
		BillNumber:     "INV-7QX2M9KD",
		Status:         database.BillStatusUNPAID,
		Subtotal:       testNumeric("25.98"),
		TaxRate:        testNumeric("5.00"),
		TaxAmount:      testNumeric("1.30"),
		DiscountAmount: testNumeric("0"),
		TotalAmount:    testNumeric("27.28"),
		GeneratedBy:    uuid.New(),
		CreatedAt:      time.Now(),
	}
}
