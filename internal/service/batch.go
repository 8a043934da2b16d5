package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dinepoint/pos-api/internal/auth"
	"github.com/dinepoint/pos-api/internal/database"
	"github.com/dinepoint/pos-api/internal/enum"
	"github.com/dinepoint/pos-api/internal/events"
	"github.com/dinepoint/pos-api/internal/money"
	"github.com/dinepoint/pos-api/internal/numgen"
	"github.com/dinepoint/pos-api/internal/pricing"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// AddBatchRequest is the validated input for adding a batch to a session.
type AddBatchRequest struct {
	Notes string
	Items []AddBatchItemRequest
}

// AddBatchItemRequest is a single line of a batch.
type AddBatchItemRequest struct {
	MenuItemID uuid.UUID
	Quantity   int32
	Notes      string
}

// BatchWithItems is a batch and its items with menu item names.
type BatchWithItems struct {
	Batch database.OrderBatch
	Items []database.ListItemsByBatchRow
}

// pricedLine is a validated batch line ready to insert.
type pricedLine struct {
	params database.CreateOrderItemParams
	name   string
}

// AddBatch validates every line, prices it at the current time and creates
// the batch with its items in one transaction. Any invalid line rejects the
// whole batch.
func (s *OrderService) AddBatch(ctx context.Context, actor *auth.Actor, restaurantID, sessionID uuid.UUID, req AddBatchRequest) (*BatchWithItems, error) {
	if _, err := s.authorize(ctx, actor, restaurantID, enum.BatchRoles); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyBatch
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
	}
	at := s.now()

	var (
		session database.OrderSession
		result  *BatchWithItems
	)
	err := numgen.Retry(ctx, func(ctx context.Context) error {
		return s.inTx(ctx, func(store Store) error {
			var err error
			session, err = store.GetSessionForUpdate(ctx, database.GetSessionParams{ID: sessionID, RestaurantID: restaurantID})
			if err != nil {
				return notFoundAs(err, ErrSessionNotFound, "get session")
			}
			if session.Status != database.SessionStatusOPEN {
				return ErrSessionNotOpen
			}

			lines, tracked, err := priceLines(ctx, store, restaurantID, req.Items, at)
			if err != nil {
				return err
			}

			number, err := numgen.Mint(ctx, numgen.BatchNumber, func(ctx context.Context, candidate string) (bool, error) {
				return store.BatchNumberExists(ctx, database.BatchNumberExistsParams{
					SessionID:   session.ID,
					BatchNumber: candidate,
				})
			})
			if err != nil {
				return err
			}

			batch, err := store.CreateBatch(ctx, database.CreateBatchParams{
				SessionID:   session.ID,
				BatchNumber: number,
				Notes:       optionalText(req.Notes),
				CreatedBy:   actor.UserID,
			})
			if err != nil {
				return fmt.Errorf("create batch: %w", err)
			}

			items := make([]database.ListItemsByBatchRow, 0, len(lines))
			for _, line := range lines {
				line.params.BatchID = batch.ID
				item, err := store.CreateOrderItem(ctx, line.params)
				if err != nil {
					return fmt.Errorf("create order item: %w", err)
				}
				items = append(items, database.ListItemsByBatchRow{OrderItem: item, MenuItemName: line.name})
			}

			for _, t := range tracked {
				if _, err := store.DecrementMenuItemStock(ctx, database.DecrementMenuItemStockParams{
					ID:       t.id,
					Quantity: t.quantity,
				}); err != nil {
					if errors.Is(err, pgx.ErrNoRows) {
						return fmt.Errorf("%s: %w", t.name, ErrOutOfStock)
					}
					return fmt.Errorf("decrement stock: %w", err)
				}
			}

			result = &BatchWithItems{Batch: batch, Items: items}
			return nil
		})
	}, batchNumberConstraint)
	if err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, events.BatchCreated, batchCreatedPayload(session, *result),
		sessionChannels(session, events.KitchenChannel(restaurantID))...)
	return result, nil
}

// stockDemand is the total quantity a batch takes from one tracked item.
type stockDemand struct {
	id       uuid.UUID
	name     string
	quantity int32
}

// priceLines checks availability and stock for every line before anything is
// written, then resolves unit prices at the given time.
func priceLines(ctx context.Context, store Store, restaurantID uuid.UUID, reqItems []AddBatchItemRequest, at time.Time) ([]pricedLine, []stockDemand, error) {
	menu := make(map[uuid.UUID]database.MenuItem)
	demand := make(map[uuid.UUID]int32)
	var order []uuid.UUID

	for i, item := range reqItems {
		m, ok := menu[item.MenuItemID]
		if !ok {
			var err error
			m, err = store.GetMenuItem(ctx, database.GetMenuItemParams{ID: item.MenuItemID, RestaurantID: restaurantID})
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemNotFound)
				}
				return nil, nil, fmt.Errorf("item[%d]: get menu item: %w", i, err)
			}
			menu[item.MenuItemID] = m
			order = append(order, item.MenuItemID)
		}
		if !m.IsActive || !m.IsAvailable {
			return nil, nil, fmt.Errorf("item[%d] %s: %w", i, m.Name, ErrMenuItemUnavailable)
		}
		demand[item.MenuItemID] += item.Quantity
		if !inStock(m, demand[item.MenuItemID]) {
			return nil, nil, fmt.Errorf("item[%d] %s: %w", i, m.Name, ErrOutOfStock)
		}
	}

	resolver := pricing.NewResolver(store)
	lines := make([]pricedLine, 0, len(reqItems))
	for i, item := range reqItems {
		price, err := resolver.EffectivePrice(ctx, restaurantID, item.MenuItemID, at)
		if err != nil {
			if errors.Is(err, pricing.ErrMenuItemNotFound) {
				return nil, nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, nil, fmt.Errorf("item[%d]: %w", i, err)
		}

		ruleID := pgtype.UUID{}
		if price.AppliedRule != nil {
			ruleID = pgtype.UUID{Bytes: price.AppliedRule.ID, Valid: true}
		}
		total := money.Round(price.Price.Mul(decimal.NewFromInt32(item.Quantity)))

		lines = append(lines, pricedLine{
			params: database.CreateOrderItemParams{
				MenuItemID:  item.MenuItemID,
				Quantity:    item.Quantity,
				UnitPrice:   money.ToNumeric(price.Price),
				TotalPrice:  money.ToNumeric(total),
				Notes:       optionalText(item.Notes),
				PriceRuleID: ruleID,
			},
			name: menu[item.MenuItemID].Name,
		})
	}

	var tracked []stockDemand
	for _, id := range order {
		if m := menu[id]; m.TrackStock {
			tracked = append(tracked, stockDemand{id: id, name: m.Name, quantity: demand[id]})
		}
	}
	return lines, tracked, nil
}

// inStock reports whether qty units of m can be ordered.
func inStock(m database.MenuItem, qty int32) bool {
	if m.IsOutOfStock {
		return false
	}
	if !m.TrackStock {
		return true
	}
	return m.StockQuantity.Valid && m.StockQuantity.Int32 >= qty
}

// ListBatches returns the session's batches with their items, oldest first.
func (s *OrderService) ListBatches(ctx context.Context, actor *auth.Actor, restaurantID, sessionID uuid.UUID) ([]BatchWithItems, error) {
	if _, err := s.authorize(ctx, actor, restaurantID, enum.AllRoles); err != nil {
		return nil, err
	}
	if _, err := s.store.GetSession(ctx, database.GetSessionParams{ID: sessionID, RestaurantID: restaurantID}); err != nil {
		return nil, notFoundAs(err, ErrSessionNotFound, "get session")
	}
	return s.batchesWithItems(ctx, sessionID)
}

func (s *OrderService) batchesWithItems(ctx context.Context, sessionID uuid.UUID) ([]BatchWithItems, error) {
	batches, err := s.store.ListBatchesBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	items, err := s.store.ListItemsBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	byBatch := make(map[uuid.UUID][]database.ListItemsByBatchRow, len(batches))
	for _, it := range items {
		byBatch[it.OrderItem.BatchID] = append(byBatch[it.OrderItem.BatchID], it)
	}
	out := make([]BatchWithItems, 0, len(batches))
	for _, b := range batches {
		rows := byBatch[b.ID]
		if rows == nil {
			rows = []database.ListItemsByBatchRow{}
		}
		out = append(out, BatchWithItems{Batch: b, Items: rows})
	}
	return out, nil
}

// OverrideBatchStatus sets a batch status by hand. The next item transition
// in the batch recomputes it.
func (s *OrderService) OverrideBatchStatus(ctx context.Context, actor *auth.Actor, batchID uuid.UUID, status string) (database.OrderBatch, error) {
	if !validBatchStatus(status) {
		return database.OrderBatch{}, ErrInvalidStatus
	}
	batch, session, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return database.OrderBatch{}, err
	}
	if _, err := s.authorize(ctx, actor, session.RestaurantID, enum.ManagementRoles); err != nil {
		return database.OrderBatch{}, err
	}

	updated, err := s.store.UpdateBatchStatus(ctx, database.UpdateBatchStatusParams{
		ID:     batch.ID,
		Status: database.BatchStatus(status),
	})
	if err != nil {
		return database.OrderBatch{}, notFoundAs(err, ErrBatchNotFound, "update batch status")
	}

	s.emitBatchStatus(ctx, session, updated, batch.Status, false)
	return updated, nil
}

func (s *OrderService) loadBatch(ctx context.Context, batchID uuid.UUID) (database.OrderBatch, database.OrderSession, error) {
	batch, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return database.OrderBatch{}, database.OrderSession{}, notFoundAs(err, ErrBatchNotFound, "get batch")
	}
	session, err := s.store.GetSessionByID(ctx, batch.SessionID)
	if err != nil {
		return database.OrderBatch{}, database.OrderSession{}, notFoundAs(err, ErrSessionNotFound, "get session")
	}
	return batch, session, nil
}

func validBatchStatus(s string) bool {
	switch database.BatchStatus(s) {
	case database.BatchStatusPENDING, database.BatchStatusINPROGRESS,
		database.BatchStatusREADY, database.BatchStatusSERVED:
		return true
	}
	return false
}

func (s *OrderService) emitBatchStatus(ctx context.Context, session database.OrderSession, batch database.OrderBatch, previous database.BatchStatus, autoSynced bool) {
	s.notifier.Emit(ctx, events.BatchStatusChanged, map[string]any{
		"batch_id":        batch.ID,
		"session_id":      session.ID,
		"batch_number":    batch.BatchNumber,
		"status":          batch.Status,
		"previous_status": previous,
		"auto_synced":     autoSynced,
	}, sessionChannels(session, events.KitchenChannel(session.RestaurantID))...)
}

func batchCreatedPayload(session database.OrderSession, b BatchWithItems) map[string]any {
	items := make([]map[string]any, 0, len(b.Items))
	for _, it := range b.Items {
		items = append(items, map[string]any{
			"item_id":      it.OrderItem.ID,
			"menu_item_id": it.OrderItem.MenuItemID,
			"name":         it.MenuItemName,
			"quantity":     it.OrderItem.Quantity,
			"notes":        it.OrderItem.Notes.String,
			"status":       it.OrderItem.Status,
		})
	}
	return map[string]any{
		"batch_id":       b.Batch.ID,
		"batch_number":   b.Batch.BatchNumber,
		"session_id":     session.ID,
		"session_number": session.SessionNumber,
		"table_id":       uuidOrNil(session.TableID),
		"status":         b.Batch.Status,
		"items":          items,
	}
}
