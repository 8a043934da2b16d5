package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dinepoint/pos-api/internal/auth"
	"github.com/dinepoint/pos-api/internal/database"
	"github.com/dinepoint/pos-api/internal/enum"
	"github.com/dinepoint/pos-api/internal/money"
	"github.com/dinepoint/pos-api/internal/pricing"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// KitchenBatch is an active batch with the items still to be handled.
type KitchenBatch struct {
	Batch database.ListKitchenBatchesRow
	Items []database.ListItemsByBatchRow
}

// BillingSession is an OPEN or BILLED session with its bill summary.
type BillingSession struct {
	Session   database.OrderSession
	Bill      *database.Bill
	TotalPaid decimal.Decimal
	Remaining decimal.Decimal
}

// KitchenView lists PENDING, IN_PROGRESS and READY batches oldest first,
// leaving out SERVED and CANCELLED items.
func (s *OrderService) KitchenView(ctx context.Context, actor *auth.Actor, restaurantID uuid.UUID) ([]KitchenBatch, error) {
	if _, err := s.authorize(ctx, actor, restaurantID, enum.KitchenViewRoles); err != nil {
		return nil, err
	}
	batches, err := s.store.ListKitchenBatches(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list kitchen batches: %w", err)
	}

	out := make([]KitchenBatch, 0, len(batches))
	for _, b := range batches {
		rows, err := s.store.ListItemsByBatch(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("list batch items: %w", err)
		}
		items := make([]database.ListItemsByBatchRow, 0, len(rows))
		for _, r := range rows {
			switch r.OrderItem.Status {
			case database.ItemStatusSERVED, database.ItemStatusCANCELLED:
				continue
			}
			items = append(items, r)
		}
		out = append(out, KitchenBatch{Batch: b, Items: items})
	}
	return out, nil
}

// BillingView lists OPEN and BILLED sessions with what has been paid so far.
func (s *OrderService) BillingView(ctx context.Context, actor *auth.Actor, restaurantID uuid.UUID) ([]BillingSession, error) {
	if _, err := s.authorize(ctx, actor, restaurantID, enum.BillingRoles); err != nil {
		return nil, err
	}
	sessions, err := s.store.ListSessionsByStatuses(ctx, database.ListSessionsByStatusesParams{
		RestaurantID: restaurantID,
		Statuses:     []string{string(database.SessionStatusOPEN), string(database.SessionStatusBILLED)},
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	out := make([]BillingSession, 0, len(sessions))
	for _, sess := range sessions {
		entry := BillingSession{Session: sess, TotalPaid: decimal.Zero, Remaining: decimal.Zero}
		bill, err := s.store.GetBillBySession(ctx, sess.ID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return nil, fmt.Errorf("get bill: %w", err)
		default:
			sum, err := s.store.SumPaymentsByBill(ctx, bill.ID)
			if err != nil {
				return nil, fmt.Errorf("sum payments: %w", err)
			}
			entry.Bill = &bill
			entry.TotalPaid = money.FromNumeric(sum)
			entry.Remaining = money.FromNumeric(bill.TotalAmount).Sub(entry.TotalPaid)
		}
		out = append(out, entry)
	}
	return out, nil
}

// PriceAt resolves the price a menu item would be ordered at.
func (s *OrderService) PriceAt(ctx context.Context, actor *auth.Actor, restaurantID, menuItemID uuid.UUID, at time.Time) (pricing.Result, error) {
	if _, err := s.authorize(ctx, actor, restaurantID, enum.AllRoles); err != nil {
		return pricing.Result{}, err
	}
	res, err := pricing.NewResolver(s.store).EffectivePrice(ctx, restaurantID, menuItemID, at)
	if err != nil {
		if errors.Is(err, pricing.ErrMenuItemNotFound) {
			return pricing.Result{}, ErrMenuItemNotFound
		}
		return pricing.Result{}, err
	}
	return res, nil
}
