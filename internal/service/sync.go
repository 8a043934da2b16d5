package service

import (
	"context"
	"fmt"

	"github.com/dinepoint/pos-api/internal/auth"
	"github.com/dinepoint/pos-api/internal/database"
	"github.com/dinepoint/pos-api/internal/enum"
	"github.com/google/uuid"
)

// DeriveBatchStatus computes a batch status from its item statuses.
// Cancelled items are ignored; ok is false when no active item remains, in
// which case the stored status must be left alone.
func DeriveBatchStatus(statuses []database.ItemStatus) (status database.BatchStatus, ok bool) {
	var active, served, ready, started int
	for _, st := range statuses {
		switch st {
		case database.ItemStatusCANCELLED:
			continue
		case database.ItemStatusSERVED:
			served++
			ready++
		case database.ItemStatusPREPARED:
			ready++
			started++
		case database.ItemStatusPREPARING:
			started++
		}
		active++
	}

	switch {
	case active == 0:
		return "", false
	case served == active:
		return database.BatchStatusSERVED, true
	case ready == active:
		return database.BatchStatusREADY, true
	case started > 0:
		return database.BatchStatusINPROGRESS, true
	default:
		return database.BatchStatusPENDING, true
	}
}

// syncBatch re-derives batch's status from its items and writes it only when
// it differs. batch should be locked by the caller's transaction.
func syncBatch(ctx context.Context, store Store, batch database.OrderBatch) (database.OrderBatch, bool, error) {
	rows, err := store.ListItemsByBatch(ctx, batch.ID)
	if err != nil {
		return batch, false, fmt.Errorf("list batch items: %w", err)
	}
	statuses := make([]database.ItemStatus, len(rows))
	for i, r := range rows {
		statuses[i] = r.OrderItem.Status
	}

	derived, ok := DeriveBatchStatus(statuses)
	if !ok || derived == batch.Status {
		return batch, false, nil
	}
	updated, err := store.UpdateBatchStatus(ctx, database.UpdateBatchStatusParams{ID: batch.ID, Status: derived})
	if err != nil {
		return batch, false, fmt.Errorf("update batch status: %w", err)
	}
	return updated, true, nil
}

// SyncBatch recomputes one batch's status on its own, for example to undo a
// manual override that no longer matches the items.
func (s *OrderService) SyncBatch(ctx context.Context, actor *auth.Actor, batchID uuid.UUID) (database.OrderBatch, bool, error) {
	_, session, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return database.OrderBatch{}, false, err
	}
	if _, err := s.authorize(ctx, actor, session.RestaurantID, enum.ManagementRoles); err != nil {
		return database.OrderBatch{}, false, err
	}

	var (
		result   database.OrderBatch
		changed  bool
		previous database.BatchStatus
	)
	err = s.inTx(ctx, func(store Store) error {
		locked, err := store.GetBatchForUpdate(ctx, batchID)
		if err != nil {
			return notFoundAs(err, ErrBatchNotFound, "lock batch")
		}
		previous = locked.Status
		result, changed, err = syncBatch(ctx, store, locked)
		return err
	})
	if err != nil {
		return database.OrderBatch{}, false, err
	}
	if changed {
		s.emitBatchStatus(ctx, session, result, previous, true)
	}
	return result, changed, nil
}
