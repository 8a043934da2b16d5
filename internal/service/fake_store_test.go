package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dinepoint/pos-api/internal/database"
	"github.com/dinepoint/pos-api/internal/money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory Store. Writes apply immediately; the mock
// transaction's Rollback does not undo them.
type fakeStore struct {
	mu    sync.Mutex
	clock time.Time

	restaurants map[uuid.UUID]database.Restaurant
	tables      map[uuid.UUID]database.DiningTable
	menu        map[uuid.UUID]database.MenuItem
	rules       []database.PriceRule
	sessions    map[uuid.UUID]database.OrderSession
	batches     map[uuid.UUID]database.OrderBatch
	items       map[uuid.UUID]database.OrderItem
	itemOrder   []uuid.UUID
	bills       map[uuid.UUID]database.Bill
	billItems   []database.BillItem
	payments    []database.Payment

	// createSessionErrs is consumed by CreateSession before it succeeds.
	createSessionErrs []error
	// beforeItemUpdate runs inside UpdateOrderItemStatus before the status check.
	beforeItemUpdate func()
	// beforeSessionLock runs inside GetSessionForUpdate before the row is
	// read, standing in for a transaction that held the lock and committed.
	beforeSessionLock func()
	// locks records every FOR UPDATE read as "session", "batch" or "bill".
	locks []string

	calls map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clock:       time.Date(2026, time.March, 11, 12, 0, 0, 0, time.UTC),
		restaurants: make(map[uuid.UUID]database.Restaurant),
		tables:      make(map[uuid.UUID]database.DiningTable),
		menu:        make(map[uuid.UUID]database.MenuItem),
		sessions:    make(map[uuid.UUID]database.OrderSession),
		batches:     make(map[uuid.UUID]database.OrderBatch),
		items:       make(map[uuid.UUID]database.OrderItem),
		bills:       make(map[uuid.UUID]database.Bill),
		calls:       make(map[string]int),
	}
}

func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) called(name string) {
	f.calls[name]++
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

// --- restaurants, tables, menu ---

func (f *fakeStore) GetRestaurant(ctx context.Context, id uuid.UUID) (database.Restaurant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.restaurants[id]
	if !ok {
		return database.Restaurant{}, pgx.ErrNoRows
	}
	return r, nil
}

func (f *fakeStore) GetTable(ctx context.Context, arg database.GetTableParams) (database.DiningTable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[arg.ID]
	if !ok || t.RestaurantID != arg.RestaurantID {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	return t, nil
}

func (f *fakeStore) GetTableByID(ctx context.Context, id uuid.UUID) (database.DiningTable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[id]
	if !ok {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	return t, nil
}

func (f *fakeStore) SetTableStatus(ctx context.Context, arg database.SetTableStatusParams) (database.DiningTable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("SetTableStatus")
	t, ok := f.tables[arg.ID]
	if !ok {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	t.Status = arg.Status
	f.tables[arg.ID] = t
	return t, nil
}

func (f *fakeStore) CountOpenSessionsByTable(ctx context.Context, tableID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.sessions {
		if s.TableID.Valid && uuid.UUID(s.TableID.Bytes) == tableID && s.Status == database.SessionStatusOPEN {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) GetMenuItem(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.menu[arg.ID]
	if !ok || m.RestaurantID != arg.RestaurantID {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	return m, nil
}

func (f *fakeStore) GetMenuItemPricing(ctx context.Context, arg database.GetMenuItemPricingParams) (database.GetMenuItemPricingRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.menu[arg.ID]
	if !ok || m.RestaurantID != arg.RestaurantID {
		return database.GetMenuItemPricingRow{}, pgx.ErrNoRows
	}
	return database.GetMenuItemPricingRow{
		ID:           m.ID,
		RestaurantID: m.RestaurantID,
		Name:         m.Name,
		Price:        m.Price,
		Timezone:     f.restaurants[m.RestaurantID].Timezone,
	}, nil
}

func (f *fakeStore) ListActivePriceRules(ctx context.Context, arg database.ListActivePriceRulesParams) ([]database.PriceRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []database.PriceRule
	for _, r := range f.rules {
		if r.RestaurantID == arg.RestaurantID && r.MenuItemID == arg.MenuItemID && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) DecrementMenuItemStock(ctx context.Context, arg database.DecrementMenuItemStockParams) (database.MenuItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.menu[arg.ID]
	if !ok || !m.TrackStock || !m.StockQuantity.Valid || m.StockQuantity.Int32 < arg.Quantity {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	m.StockQuantity.Int32 -= arg.Quantity
	m.IsOutOfStock = m.StockQuantity.Int32 == 0
	f.menu[arg.ID] = m
	return m, nil
}

func (f *fakeStore) ResetNonTrackableOutOfStock(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, m := range f.menu {
		if !m.TrackStock && m.IsOutOfStock {
			m.IsOutOfStock = false
			f.menu[id] = m
			n++
		}
	}
	return n, nil
}

// --- sessions ---

func (f *fakeStore) SessionNumberExists(ctx context.Context, arg database.SessionNumberExistsParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.RestaurantID == arg.RestaurantID && s.SessionNumber == arg.SessionNumber {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateSession(ctx context.Context, arg database.CreateSessionParams) (database.OrderSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("CreateSession")
	if len(f.createSessionErrs) > 0 {
		err := f.createSessionErrs[0]
		f.createSessionErrs = f.createSessionErrs[1:]
		return database.OrderSession{}, err
	}
	for _, s := range f.sessions {
		if s.RestaurantID == arg.RestaurantID && s.SessionNumber == arg.SessionNumber {
			return database.OrderSession{}, uniqueViolation(sessionNumberConstraint)
		}
	}
	now := f.tick()
	s := database.OrderSession{
		ID:            uuid.New(),
		RestaurantID:  arg.RestaurantID,
		TableID:       arg.TableID,
		SessionNumber: arg.SessionNumber,
		Status:        database.SessionStatusOPEN,
		Channel:       arg.Channel,
		CustomerName:  arg.CustomerName,
		GuestCount:    arg.GuestCount,
		Notes:         arg.Notes,
		OpenedBy:      arg.OpenedBy,
		OpenedAt:      now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeStore) GetSession(ctx context.Context, arg database.GetSessionParams) (database.OrderSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[arg.ID]
	if !ok || s.RestaurantID != arg.RestaurantID {
		return database.OrderSession{}, pgx.ErrNoRows
	}
	return s, nil
}

func (f *fakeStore) GetSessionForUpdate(ctx context.Context, arg database.GetSessionParams) (database.OrderSession, error) {
	if hook := f.beforeSessionLock; hook != nil {
		f.beforeSessionLock = nil
		hook()
	}
	f.lock("session")
	return f.GetSession(ctx, arg)
}

func (f *fakeStore) lock(row string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locks = append(f.locks, row)
}

func (f *fakeStore) GetSessionByID(ctx context.Context, id uuid.UUID) (database.OrderSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return database.OrderSession{}, pgx.ErrNoRows
	}
	return s, nil
}

func (f *fakeStore) ListSessions(ctx context.Context, arg database.ListSessionsParams) ([]database.OrderSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []database.OrderSession{}
	for _, s := range f.sessions {
		if s.RestaurantID != arg.RestaurantID {
			continue
		}
		if arg.Status.Valid && s.Status != arg.Status.SessionStatus {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	return out, nil
}

func (f *fakeStore) ListSessionsByStatuses(ctx context.Context, arg database.ListSessionsByStatusesParams) ([]database.OrderSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[string]bool)
	for _, s := range arg.Statuses {
		want[s] = true
	}
	out := []database.OrderSession{}
	for _, s := range f.sessions {
		if s.RestaurantID == arg.RestaurantID && want[string(s.Status)] {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out, nil
}

func (f *fakeStore) UpdateSessionStatus(ctx context.Context, arg database.UpdateSessionStatusParams) (database.OrderSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[arg.ID]
	if !ok {
		return database.OrderSession{}, pgx.ErrNoRows
	}
	s.Status = arg.Status
	if arg.ClosedAt.Valid {
		s.ClosedAt = arg.ClosedAt
	}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeStore) MarkSessionBilled(ctx context.Context, arg database.MarkSessionBilledParams) (database.OrderSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[arg.ID]
	if !ok || s.Status != database.SessionStatusOPEN {
		return database.OrderSession{}, pgx.ErrNoRows
	}
	s.Status = database.SessionStatusBILLED
	s.Subtotal = arg.Subtotal
	s.DiscountAmount = arg.DiscountAmount
	s.TaxAmount = arg.TaxAmount
	s.TotalAmount = arg.TotalAmount
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeStore) MarkSessionPaid(ctx context.Context, arg database.MarkSessionPaidParams) (database.OrderSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("MarkSessionPaid")
	s, ok := f.sessions[arg.ID]
	if !ok {
		return database.OrderSession{}, pgx.ErrNoRows
	}
	s.Status = database.SessionStatusPAID
	s.ClosedAt = arg.ClosedAt
	f.sessions[s.ID] = s
	return s, nil
}

// --- batches ---

func (f *fakeStore) BatchNumberExists(ctx context.Context, arg database.BatchNumberExistsParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.batches {
		if b.SessionID == arg.SessionID && b.BatchNumber == arg.BatchNumber {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateBatch(ctx context.Context, arg database.CreateBatchParams) (database.OrderBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("CreateBatch")
	now := f.tick()
	b := database.OrderBatch{
		ID:          uuid.New(),
		SessionID:   arg.SessionID,
		BatchNumber: arg.BatchNumber,
		Status:      database.BatchStatusPENDING,
		Notes:       arg.Notes,
		CreatedBy:   arg.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.batches[b.ID] = b
	return b, nil
}

func (f *fakeStore) GetBatch(ctx context.Context, id uuid.UUID) (database.OrderBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.batches[id]
	if !ok {
		return database.OrderBatch{}, pgx.ErrNoRows
	}
	return b, nil
}

func (f *fakeStore) GetBatchForUpdate(ctx context.Context, id uuid.UUID) (database.OrderBatch, error) {
	f.lock("batch")
	return f.GetBatch(ctx, id)
}

func (f *fakeStore) UpdateBatchStatus(ctx context.Context, arg database.UpdateBatchStatusParams) (database.OrderBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("UpdateBatchStatus")
	b, ok := f.batches[arg.ID]
	if !ok {
		return database.OrderBatch{}, pgx.ErrNoRows
	}
	b.Status = arg.Status
	f.batches[b.ID] = b
	return b, nil
}

func (f *fakeStore) ListBatchesBySession(ctx context.Context, sessionID uuid.UUID) ([]database.OrderBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []database.OrderBatch{}
	for _, b := range f.batches {
		if b.SessionID == sessionID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) ListKitchenBatches(ctx context.Context, restaurantID uuid.UUID) ([]database.ListKitchenBatchesRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []database.ListKitchenBatchesRow{}
	for _, b := range f.batches {
		s := f.sessions[b.SessionID]
		if s.RestaurantID != restaurantID {
			continue
		}
		if b.Status == database.BatchStatusSERVED {
			continue
		}
		if s.Status != database.SessionStatusOPEN && s.Status != database.SessionStatusBILLED {
			continue
		}
		row := database.ListKitchenBatchesRow{
			ID:            b.ID,
			SessionID:     b.SessionID,
			BatchNumber:   b.BatchNumber,
			Status:        b.Status,
			Notes:         b.Notes,
			CreatedAt:     b.CreatedAt,
			SessionNumber: s.SessionNumber,
			Channel:       s.Channel,
			TableID:       s.TableID,
		}
		if s.TableID.Valid {
			row.TableNumber = pgtype.Text{String: f.tables[uuid.UUID(s.TableID.Bytes)].Number, Valid: true}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- items ---

func (f *fakeStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("CreateOrderItem")
	now := f.tick()
	it := database.OrderItem{
		ID:          uuid.New(),
		BatchID:     arg.BatchID,
		MenuItemID:  arg.MenuItemID,
		Quantity:    arg.Quantity,
		UnitPrice:   arg.UnitPrice,
		TotalPrice:  arg.TotalPrice,
		Status:      database.ItemStatusPENDING,
		Notes:       arg.Notes,
		PriceRuleID: arg.PriceRuleID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.items[it.ID] = it
	f.itemOrder = append(f.itemOrder, it.ID)
	return it, nil
}

func (f *fakeStore) GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok {
		return database.OrderItem{}, pgx.ErrNoRows
	}
	return it, nil
}

func (f *fakeStore) UpdateOrderItemStatus(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error) {
	if f.beforeItemUpdate != nil {
		f.beforeItemUpdate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[arg.ID]
	if !ok || it.Status != arg.Status_2 {
		return database.OrderItem{}, pgx.ErrNoRows
	}
	it.Status = arg.Status
	if arg.CancelReason.Valid {
		it.CancelReason = arg.CancelReason
	}
	if arg.PreparedAt.Valid {
		it.PreparedAt = arg.PreparedAt
	}
	if arg.ServedAt.Valid {
		it.ServedAt = arg.ServedAt
	}
	if arg.CancelledAt.Valid {
		it.CancelledAt = arg.CancelledAt
	}
	f.items[it.ID] = it
	return it, nil
}

func (f *fakeStore) itemRow(it database.OrderItem) database.ListItemsByBatchRow {
	return database.ListItemsByBatchRow{OrderItem: it, MenuItemName: f.menu[it.MenuItemID].Name}
}

func (f *fakeStore) ListItemsByBatch(ctx context.Context, batchID uuid.UUID) ([]database.ListItemsByBatchRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []database.ListItemsByBatchRow{}
	for _, id := range f.itemOrder {
		if it := f.items[id]; it.BatchID == batchID {
			out = append(out, f.itemRow(it))
		}
	}
	return out, nil
}

func (f *fakeStore) ListItemsBySession(ctx context.Context, sessionID uuid.UUID) ([]database.ListItemsByBatchRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []database.ListItemsByBatchRow{}
	for _, id := range f.itemOrder {
		it := f.items[id]
		if f.batches[it.BatchID].SessionID == sessionID {
			out = append(out, f.itemRow(it))
		}
	}
	return out, nil
}

// --- bills ---

func (f *fakeStore) BillNumberExists(ctx context.Context, arg database.BillNumberExistsParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bills {
		if b.RestaurantID == arg.RestaurantID && b.BillNumber == arg.BillNumber {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateBill(ctx context.Context, arg database.CreateBillParams) (database.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("CreateBill")
	for _, b := range f.bills {
		if b.SessionID == arg.SessionID {
			return database.Bill{}, uniqueViolation(billSessionConstraint)
		}
	}
	now := f.tick()
	b := database.Bill{
		ID:             uuid.New(),
		SessionID:      arg.SessionID,
		RestaurantID:   arg.RestaurantID,
		BillNumber:     arg.BillNumber,
		Status:         database.BillStatusUNPAID,
		Subtotal:       arg.Subtotal,
		TaxRate:        arg.TaxRate,
		TaxAmount:      arg.TaxAmount,
		DiscountAmount: arg.DiscountAmount,
		TotalAmount:    arg.TotalAmount,
		Notes:          arg.Notes,
		GeneratedBy:    arg.GeneratedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.bills[b.ID] = b
	return b, nil
}

func (f *fakeStore) GetBill(ctx context.Context, id uuid.UUID) (database.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bills[id]
	if !ok {
		return database.Bill{}, pgx.ErrNoRows
	}
	return b, nil
}

func (f *fakeStore) GetBillForUpdate(ctx context.Context, id uuid.UUID) (database.Bill, error) {
	f.lock("bill")
	return f.GetBill(ctx, id)
}

func (f *fakeStore) GetBillBySession(ctx context.Context, sessionID uuid.UUID) (database.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bills {
		if b.SessionID == sessionID {
			return b, nil
		}
	}
	return database.Bill{}, pgx.ErrNoRows
}

func (f *fakeStore) MarkBillPaid(ctx context.Context, arg database.MarkBillPaidParams) (database.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("MarkBillPaid")
	b, ok := f.bills[arg.ID]
	if !ok || b.Status != database.BillStatusUNPAID {
		return database.Bill{}, pgx.ErrNoRows
	}
	b.Status = database.BillStatusPAID
	b.PaidAt = arg.PaidAt
	f.bills[b.ID] = b
	return b, nil
}

func (f *fakeStore) VoidUnpaidBillBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, b := range f.bills {
		if b.SessionID == sessionID && b.Status == database.BillStatusUNPAID {
			b.Status = database.BillStatusVOIDED
			b.VoidedAt = pgtype.Timestamptz{Time: f.tick(), Valid: true}
			f.bills[id] = b
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CreateBillItem(ctx context.Context, arg database.CreateBillItemParams) (database.BillItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bi := database.BillItem{
		ID:         uuid.New(),
		BillID:     arg.BillID,
		MenuItemID: arg.MenuItemID,
		Name:       arg.Name,
		Quantity:   arg.Quantity,
		UnitPrice:  arg.UnitPrice,
		TotalPrice: arg.TotalPrice,
	}
	f.billItems = append(f.billItems, bi)
	return bi, nil
}

func (f *fakeStore) ListBillItems(ctx context.Context, billID uuid.UUID) ([]database.BillItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []database.BillItem{}
	for _, bi := range f.billItems {
		if bi.BillID == billID {
			out = append(out, bi)
		}
	}
	return out, nil
}

// --- payments ---

func (f *fakeStore) CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := database.Payment{
		ID:         uuid.New(),
		BillID:     arg.BillID,
		Amount:     arg.Amount,
		Method:     arg.Method,
		Reference:  arg.Reference,
		Notes:      arg.Notes,
		ReceivedBy: arg.ReceivedBy,
		CreatedAt:  f.tick(),
	}
	f.payments = append(f.payments, p)
	return p, nil
}

func (f *fakeStore) ListPaymentsByBill(ctx context.Context, billID uuid.UUID) ([]database.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []database.Payment{}
	for _, p := range f.payments {
		if p.BillID == billID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) SumPaymentsByBill(ctx context.Context, billID uuid.UUID) (pgtype.Numeric, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := decimal.Zero
	for _, p := range f.payments {
		if p.BillID == billID {
			sum = sum.Add(money.FromNumeric(p.Amount))
		}
	}
	return money.ToNumeric(sum), nil
}
