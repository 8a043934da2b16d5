package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dinepoint/pos-api/internal/auth"
	"github.com/dinepoint/pos-api/internal/database"
	"github.com/dinepoint/pos-api/internal/enum"
	"github.com/dinepoint/pos-api/internal/events"
	"github.com/dinepoint/pos-api/internal/money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	commits     int
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.commits++
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// recordingPublisher keeps every published envelope.
type recordingPublisher struct {
	mu   sync.Mutex
	envs []events.Envelope
}

func (p *recordingPublisher) Publish(ctx context.Context, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envs = append(p.envs, env)
	return nil
}

// channels returns the channels event was published to, in order.
func (p *recordingPublisher) channels(event string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.envs {
		if e.Type == event {
			out = append(out, e.Channel)
		}
	}
	return out
}

// payload decodes the first envelope of event.
func (p *recordingPublisher) payload(t *testing.T, event string) map[string]any {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.envs {
		if e.Type == event {
			var m map[string]any
			if err := json.Unmarshal(e.Payload, &m); err != nil {
				t.Fatalf("decode %s payload: %v", event, err)
			}
			return m
		}
	}
	t.Fatalf("no %s event published", event)
	return nil
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envs = nil
}

// --- Fixture ---

// testNow is a Wednesday, 13:30 UTC.
var testNow = time.Date(2026, time.March, 11, 13, 30, 0, 0, time.UTC)

type fixture struct {
	store *fakeStore
	tx    *mockTx
	pub   *recordingPublisher
	svc   *OrderService

	restaurant database.Restaurant
	table      database.DiningTable
	burger     database.MenuItem

	manager *auth.Actor
	waiter  *auth.Actor
	kitchen *auth.Actor
	cashier *auth.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFakeStore()
	tx := &mockTx{}
	pub := &recordingPublisher{}

	restaurant := database.Restaurant{
		ID:       uuid.New(),
		Name:     "Harbor Grill",
		TaxRate:  money.ToNumeric(decimal.RequireFromString("5.00")),
		Timezone: "UTC",
		IsActive: true,
	}
	store.restaurants[restaurant.ID] = restaurant

	table := database.DiningTable{
		ID:           uuid.New(),
		RestaurantID: restaurant.ID,
		Number:       "T1",
		Capacity:     4,
		Status:       database.TableStatusAVAILABLE,
		IsActive:     true,
	}
	store.tables[table.ID] = table

	f := &fixture{
		store:      store,
		tx:         tx,
		pub:        pub,
		restaurant: restaurant,
		table:      table,
	}
	f.burger = f.addMenuItem("Burger", "12.99")

	svc := NewOrderService(&mockTxBeginner{tx: tx}, store, func(database.DBTX) Store { return store }, events.NewNotifier(pub))
	svc.now = func() time.Time { return testNow }
	f.svc = svc

	f.manager = f.actor(enum.UserRoleManager)
	f.waiter = f.actor(enum.UserRoleWaiter)
	f.kitchen = f.actor(enum.UserRoleKitchen)
	f.cashier = f.actor(enum.UserRoleCashier)
	return f
}

func (f *fixture) actor(role string) *auth.Actor {
	return &auth.Actor{UserID: uuid.New(), Role: role, RestaurantID: f.restaurant.ID, IsActive: true}
}

func (f *fixture) addMenuItem(name, price string) database.MenuItem {
	m := database.MenuItem{
		ID:           uuid.New(),
		RestaurantID: f.restaurant.ID,
		Name:         name,
		Price:        money.ToNumeric(decimal.RequireFromString(price)),
		IsActive:     true,
		IsAvailable:  true,
	}
	f.store.menu[m.ID] = m
	return m
}

func (f *fixture) addTrackedItem(name, price string, stock int32) database.MenuItem {
	m := f.addMenuItem(name, price)
	m.TrackStock = true
	m.StockQuantity = pgtype.Int4{Int32: stock, Valid: true}
	f.store.menu[m.ID] = m
	return m
}

// openTableSession opens a dine-in session at the fixture table.
func (f *fixture) openTableSession(t *testing.T) database.OrderSession {
	t.Helper()
	tableID := f.table.ID
	session, err := f.svc.OpenSession(context.Background(), f.waiter, f.restaurant.ID, OpenSessionRequest{TableID: &tableID})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return session
}

// addBatch adds one batch with a line per (item, quantity) pair.
func (f *fixture) addBatch(t *testing.T, session database.OrderSession, lines ...AddBatchItemRequest) *BatchWithItems {
	t.Helper()
	batch, err := f.svc.AddBatch(context.Background(), f.waiter, f.restaurant.ID, session.ID, AddBatchRequest{Items: lines})
	if err != nil {
		t.Fatalf("add batch: %v", err)
	}
	return batch
}

func line(item database.MenuItem, qty int32) AddBatchItemRequest {
	return AddBatchItemRequest{MenuItemID: item.ID, Quantity: qty}
}

func (f *fixture) setItemStatus(t *testing.T, actor *auth.Actor, itemID uuid.UUID, status database.ItemStatus) *ItemStatusResult {
	t.Helper()
	res, err := f.svc.UpdateItemStatus(context.Background(), actor, itemID, UpdateItemStatusRequest{Status: string(status)})
	if err != nil {
		t.Fatalf("set item %s: %v", status, err)
	}
	return res
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("%s: got %s, want %s", label, got.StringFixed(2), want)
	}
}
