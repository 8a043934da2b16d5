package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dinepoint/pos-api/internal/database"
	"github.com/dinepoint/pos-api/internal/events"
	"github.com/dinepoint/pos-api/internal/pricing"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Unique constraints whose violations mean "pick another number".
const (
	sessionNumberConstraint = "order_sessions_restaurant_id_session_number_key"
	batchNumberConstraint   = "order_batches_session_id_batch_number_key"
	billNumberConstraint    = "bills_restaurant_id_bill_number_key"
	billSessionConstraint   = "bills_session_id_key"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store defines the DB methods needed by the order pipeline.
// Satisfied by *database.Queries (and its WithTx variant).
type Store interface {
	pricing.Store

	GetRestaurant(ctx context.Context, id uuid.UUID) (database.Restaurant, error)

	GetTable(ctx context.Context, arg database.GetTableParams) (database.DiningTable, error)
	GetTableByID(ctx context.Context, id uuid.UUID) (database.DiningTable, error)
	SetTableStatus(ctx context.Context, arg database.SetTableStatusParams) (database.DiningTable, error)
	CountOpenSessionsByTable(ctx context.Context, tableID uuid.UUID) (int64, error)

	GetMenuItem(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error)
	DecrementMenuItemStock(ctx context.Context, arg database.DecrementMenuItemStockParams) (database.MenuItem, error)
	ResetNonTrackableOutOfStock(ctx context.Context) (int64, error)

	SessionNumberExists(ctx context.Context, arg database.SessionNumberExistsParams) (bool, error)
	CreateSession(ctx context.Context, arg database.CreateSessionParams) (database.OrderSession, error)
	GetSession(ctx context.Context, arg database.GetSessionParams) (database.OrderSession, error)
	GetSessionForUpdate(ctx context.Context, arg database.GetSessionParams) (database.OrderSession, error)
	GetSessionByID(ctx context.Context, id uuid.UUID) (database.OrderSession, error)
	ListSessions(ctx context.Context, arg database.ListSessionsParams) ([]database.OrderSession, error)
	ListSessionsByStatuses(ctx context.Context, arg database.ListSessionsByStatusesParams) ([]database.OrderSession, error)
	UpdateSessionStatus(ctx context.Context, arg database.UpdateSessionStatusParams) (database.OrderSession, error)
	MarkSessionBilled(ctx context.Context, arg database.MarkSessionBilledParams) (database.OrderSession, error)
	MarkSessionPaid(ctx context.Context, arg database.MarkSessionPaidParams) (database.OrderSession, error)

	BatchNumberExists(ctx context.Context, arg database.BatchNumberExistsParams) (bool, error)
	CreateBatch(ctx context.Context, arg database.CreateBatchParams) (database.OrderBatch, error)
	GetBatch(ctx context.Context, id uuid.UUID) (database.OrderBatch, error)
	GetBatchForUpdate(ctx context.Context, id uuid.UUID) (database.OrderBatch, error)
	UpdateBatchStatus(ctx context.Context, arg database.UpdateBatchStatusParams) (database.OrderBatch, error)
	ListBatchesBySession(ctx context.Context, sessionID uuid.UUID) ([]database.OrderBatch, error)
	ListKitchenBatches(ctx context.Context, restaurantID uuid.UUID) ([]database.ListKitchenBatchesRow, error)

	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	UpdateOrderItemStatus(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error)
	ListItemsByBatch(ctx context.Context, batchID uuid.UUID) ([]database.ListItemsByBatchRow, error)
	ListItemsBySession(ctx context.Context, sessionID uuid.UUID) ([]database.ListItemsByBatchRow, error)

	BillNumberExists(ctx context.Context, arg database.BillNumberExistsParams) (bool, error)
	CreateBill(ctx context.Context, arg database.CreateBillParams) (database.Bill, error)
	GetBill(ctx context.Context, id uuid.UUID) (database.Bill, error)
	GetBillForUpdate(ctx context.Context, id uuid.UUID) (database.Bill, error)
	GetBillBySession(ctx context.Context, sessionID uuid.UUID) (database.Bill, error)
	MarkBillPaid(ctx context.Context, arg database.MarkBillPaidParams) (database.Bill, error)
	VoidUnpaidBillBySession(ctx context.Context, sessionID uuid.UUID) (int64, error)
	CreateBillItem(ctx context.Context, arg database.CreateBillItemParams) (database.BillItem, error)
	ListBillItems(ctx context.Context, billID uuid.UUID) ([]database.BillItem, error)

	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	ListPaymentsByBill(ctx context.Context, billID uuid.UUID) ([]database.Payment, error)
	SumPaymentsByBill(ctx context.Context, billID uuid.UUID) (pgtype.Numeric, error)
}

// NewStore creates a Store from a DBTX (pool or tx).
type NewStore func(db database.DBTX) Store

// OrderService runs the session, batch, item and bill lifecycle.
type OrderService struct {
	pool     TxBeginner
	store    Store
	newStore NewStore
	notifier *events.Notifier
	now      func() time.Time
}

// NewOrderService wires the service. store serves reads outside a
// transaction; newStore wraps each transaction.
func NewOrderService(pool TxBeginner, store Store, newStore NewStore, notifier *events.Notifier) *OrderService {
	return &OrderService{
		pool:     pool,
		store:    store,
		newStore: newStore,
		notifier: notifier,
		now:      time.Now,
	}
}

// inTx runs fn in a transaction and commits if it returns nil.
func (s *OrderService) inTx(ctx context.Context, fn func(store Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(s.newStore(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// notFoundAs maps pgx.ErrNoRows to target and wraps anything else.
func notFoundAs(err error, target error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return target
	}
	return fmt.Errorf("%s: %w", op, err)
}

func timestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func uuidOrNil(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}
