package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dinepoint/pos-api/internal/auth"
	"github.com/dinepoint/pos-api/internal/database"
	"github.com/dinepoint/pos-api/internal/enum"
	"github.com/dinepoint/pos-api/internal/events"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// itemTransitions is the closed item status graph. SERVED and CANCELLED are
// terminal.
var itemTransitions = map[database.ItemStatus][]database.ItemStatus{
	database.ItemStatusPENDING: {
		database.ItemStatusPREPARING,
		database.ItemStatusPREPARED,
		database.ItemStatusSERVED,
		database.ItemStatusCANCELLED,
	},
	database.ItemStatusPREPARING: {
		database.ItemStatusPREPARED,
		database.ItemStatusSERVED,
		database.ItemStatusCANCELLED,
	},
	database.ItemStatusPREPARED: {
		database.ItemStatusSERVED,
		database.ItemStatusCANCELLED,
	},
}

// CanTransitionItem reports whether from -> to is an edge of the item graph.
func CanTransitionItem(from, to database.ItemStatus) bool {
	for _, next := range itemTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// itemStatusRoles returns the roles allowed to move an item into status.
func itemStatusRoles(status database.ItemStatus) []string {
	switch status {
	case database.ItemStatusPREPARING, database.ItemStatusPREPARED:
		return enum.KitchenRoles
	case database.ItemStatusSERVED:
		return enum.ServingRoles
	case database.ItemStatusCANCELLED:
		return enum.CancelRoles
	}
	return nil
}

func validItemStatus(s string) bool {
	switch database.ItemStatus(s) {
	case database.ItemStatusPENDING, database.ItemStatusPREPARING, database.ItemStatusPREPARED,
		database.ItemStatusSERVED, database.ItemStatusCANCELLED:
		return true
	}
	return false
}

// UpdateItemStatusRequest is the input for an item transition.
type UpdateItemStatusRequest struct {
	Status       string
	CancelReason string
}

// ItemStatusResult is the updated item and its batch after synchronization.
type ItemStatusResult struct {
	Item         database.OrderItem
	Batch        database.OrderBatch
	BatchChanged bool
}

// UpdateItemStatus applies one item transition and re-derives the owning
// batch status in the same transaction. The graph is checked before the role
// gate, so an impossible edge is a bad request for every caller.
func (s *OrderService) UpdateItemStatus(ctx context.Context, actor *auth.Actor, itemID uuid.UUID, req UpdateItemStatusRequest) (*ItemStatusResult, error) {
	if !validItemStatus(req.Status) {
		return nil, ErrInvalidStatus
	}
	target := database.ItemStatus(req.Status)

	item, err := s.store.GetOrderItem(ctx, itemID)
	if err != nil {
		return nil, notFoundAs(err, ErrItemNotFound, "get item")
	}
	batch, session, err := s.loadBatch(ctx, item.BatchID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, actor, session.RestaurantID, enum.AllRoles); err != nil {
		return nil, err
	}

	if !CanTransitionItem(item.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, item.Status, target)
	}
	if err := requireRole(actor, itemStatusRoles(target)); err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(req.CancelReason)
	if target == database.ItemStatusCANCELLED && reason == "" {
		return nil, ErrCancelReasonRequired
	}
	if err := itemSessionAllows(session.Status, target); err != nil {
		return nil, err
	}

	now := timestamptz(s.now())
	params := database.UpdateOrderItemStatusParams{
		ID:       item.ID,
		Status:   target,
		Status_2: item.Status,
	}
	switch target {
	case database.ItemStatusPREPARED:
		params.PreparedAt = now
	case database.ItemStatusSERVED:
		params.ServedAt = now
	case database.ItemStatusCANCELLED:
		params.CancelledAt = now
		params.CancelReason = pgtype.Text{String: reason, Valid: true}
	}

	result := &ItemStatusResult{}
	var previousBatchStatus database.BatchStatus
	err = s.inTx(ctx, func(store Store) error {
		// Session before batch, the order AddBatch and GenerateBill lock in.
		current, err := store.GetSessionForUpdate(ctx, database.GetSessionParams{ID: session.ID, RestaurantID: session.RestaurantID})
		if err != nil {
			return notFoundAs(err, ErrSessionNotFound, "lock session")
		}
		if err := itemSessionAllows(current.Status, target); err != nil {
			return err
		}

		locked, err := store.GetBatchForUpdate(ctx, batch.ID)
		if err != nil {
			return notFoundAs(err, ErrBatchNotFound, "lock batch")
		}
		previousBatchStatus = locked.Status

		updated, err := store.UpdateOrderItemStatus(ctx, params)
		if err != nil {
			return notFoundAs(err, ErrItemChanged, "update item status")
		}
		result.Item = updated

		result.Batch, result.BatchChanged, err = syncBatch(ctx, store, locked)
		return err
	})
	if err != nil {
		return nil, err
	}

	if result.BatchChanged {
		s.emitBatchStatus(ctx, session, result.Batch, previousBatchStatus, true)
	}
	s.notifier.Emit(ctx, events.ItemStatusChanged, map[string]any{
		"item_id":         result.Item.ID,
		"batch_id":        result.Item.BatchID,
		"session_id":      session.ID,
		"menu_item_id":    result.Item.MenuItemID,
		"status":          result.Item.Status,
		"previous_status": item.Status,
		"cancel_reason":   result.Item.CancelReason.String,
	}, sessionChannels(session, events.KitchenChannel(session.RestaurantID))...)
	return result, nil
}

// itemSessionAllows reports whether a session in status accepts an item
// moving to target. Cancelling needs an OPEN session; billed items may still
// be cooked and served.
func itemSessionAllows(status database.SessionStatus, target database.ItemStatus) error {
	if target == database.ItemStatusCANCELLED {
		if status != database.SessionStatusOPEN {
			return ErrSessionNotOpen
		}
		return nil
	}
	if status != database.SessionStatusOPEN && status != database.SessionStatusBILLED {
		return ErrSessionClosed
	}
	return nil
}
