package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dinepoint/pos-api/internal/auth"
	"github.com/dinepoint/pos-api/internal/database"
	"github.com/dinepoint/pos-api/internal/enum"
	"github.com/dinepoint/pos-api/internal/events"
	"github.com/dinepoint/pos-api/internal/money"
	"github.com/dinepoint/pos-api/internal/numgen"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// OpenSessionRequest is the validated input for opening a session.
type OpenSessionRequest struct {
	TableID      *uuid.UUID
	Channel      string
	CustomerName string
	GuestCount   *int32
	Notes        string
}

// SessionDetail is a session with its batches and their items.
type SessionDetail struct {
	Session database.OrderSession
	Batches []BatchWithItems
}

// sessionTransitions lists the statuses a session may be moved to by hand.
// OPEN -> BILLED and BILLED -> PAID through payments belong to billing.
var sessionTransitions = map[database.SessionStatus][]database.SessionStatus{
	database.SessionStatusOPEN:   {database.SessionStatusCANCELLED, database.SessionStatusVOID},
	database.SessionStatusBILLED: {database.SessionStatusPAID, database.SessionStatusCANCELLED, database.SessionStatusVOID},
}

func validSessionStatus(s string) bool {
	switch database.SessionStatus(s) {
	case database.SessionStatusOPEN, database.SessionStatusBILLED, database.SessionStatusPAID,
		database.SessionStatusCANCELLED, database.SessionStatusVOID:
		return true
	}
	return false
}

func validSessionChannel(s string) bool {
	switch database.SessionChannel(s) {
	case database.SessionChannelDINEIN, database.SessionChannelONLINEOWN, database.SessionChannelUBEREATS:
		return true
	}
	return false
}

// OpenSession creates an OPEN session, optionally bound to a table which is
// then marked OCCUPIED. Several open sessions may share a table.
func (s *OrderService) OpenSession(ctx context.Context, actor *auth.Actor, restaurantID uuid.UUID, req OpenSessionRequest) (database.OrderSession, error) {
	if _, err := s.authorize(ctx, actor, restaurantID, enum.SessionOpenerRoles); err != nil {
		return database.OrderSession{}, err
	}

	channel := database.SessionChannelDINEIN
	if req.Channel != "" {
		if !validSessionChannel(req.Channel) {
			return database.OrderSession{}, ErrInvalidChannel
		}
		channel = database.SessionChannel(req.Channel)
	}

	guestCount := pgtype.Int4{}
	if req.GuestCount != nil {
		if *req.GuestCount <= 0 {
			return database.OrderSession{}, ErrInvalidGuestCount
		}
		guestCount = pgtype.Int4{Int32: *req.GuestCount, Valid: true}
	}

	var (
		session database.OrderSession
		table   *database.DiningTable
	)
	err := numgen.Retry(ctx, func(ctx context.Context) error {
		table = nil
		return s.inTx(ctx, func(store Store) error {
			tableID := pgtype.UUID{}
			if req.TableID != nil {
				t, err := store.GetTable(ctx, database.GetTableParams{ID: *req.TableID, RestaurantID: restaurantID})
				if err != nil {
					return notFoundAs(err, ErrTableNotFound, "get table")
				}
				if !t.IsActive {
					return ErrTableInactive
				}
				tableID = pgtype.UUID{Bytes: t.ID, Valid: true}
			}

			number, err := numgen.Mint(ctx, numgen.SessionNumber, func(ctx context.Context, candidate string) (bool, error) {
				return store.SessionNumberExists(ctx, database.SessionNumberExistsParams{
					RestaurantID:  restaurantID,
					SessionNumber: candidate,
				})
			})
			if err != nil {
				return err
			}

			session, err = store.CreateSession(ctx, database.CreateSessionParams{
				RestaurantID:  restaurantID,
				TableID:       tableID,
				SessionNumber: number,
				Channel:       channel,
				CustomerName:  optionalText(req.CustomerName),
				GuestCount:    guestCount,
				Notes:         optionalText(req.Notes),
				OpenedBy:      actor.UserID,
			})
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}

			if tableID.Valid {
				t, err := store.SetTableStatus(ctx, database.SetTableStatusParams{
					ID:     tableID.Bytes,
					Status: database.TableStatusOCCUPIED,
				})
				if err != nil {
					return fmt.Errorf("occupy table: %w", err)
				}
				table = &t
			}
			return nil
		})
	}, sessionNumberConstraint)
	if err != nil {
		return database.OrderSession{}, err
	}

	s.notifier.Emit(ctx, events.SessionOpened, sessionPayload(session), events.RestaurantChannel(restaurantID))
	if table != nil {
		s.emitTableStatus(ctx, *table)
	}
	return session, nil
}

// GetSession returns the session with all of its batches and items.
func (s *OrderService) GetSession(ctx context.Context, actor *auth.Actor, restaurantID, sessionID uuid.UUID) (*SessionDetail, error) {
	if _, err := s.authorize(ctx, actor, restaurantID, enum.AllRoles); err != nil {
		return nil, err
	}
	session, err := s.store.GetSession(ctx, database.GetSessionParams{ID: sessionID, RestaurantID: restaurantID})
	if err != nil {
		return nil, notFoundAs(err, ErrSessionNotFound, "get session")
	}
	batches, err := s.batchesWithItems(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	return &SessionDetail{Session: session, Batches: batches}, nil
}

// ListSessions returns the restaurant's sessions, newest first.
func (s *OrderService) ListSessions(ctx context.Context, actor *auth.Actor, restaurantID uuid.UUID, status string, limit, offset int32) ([]database.OrderSession, error) {
	if _, err := s.authorize(ctx, actor, restaurantID, enum.AllRoles); err != nil {
		return nil, err
	}
	arg := database.ListSessionsParams{RestaurantID: restaurantID, Limit: limit, Offset: offset}
	if status != "" {
		if !validSessionStatus(status) {
			return nil, ErrInvalidStatus
		}
		arg.Status = database.NullSessionStatus{SessionStatus: database.SessionStatus(status), Valid: true}
	}
	sessions, err := s.store.ListSessions(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// UpdateSessionStatus moves a session by hand. Closing statuses stamp
// closed_at; CANCELLED and VOID void an unpaid bill. PAID closes a bill only
// when nothing is left to pay, which covers fully discounted bills.
func (s *OrderService) UpdateSessionStatus(ctx context.Context, actor *auth.Actor, restaurantID, sessionID uuid.UUID, status string) (database.OrderSession, error) {
	if _, err := s.authorize(ctx, actor, restaurantID, enum.ManagementRoles); err != nil {
		return database.OrderSession{}, err
	}
	if !validSessionStatus(status) {
		return database.OrderSession{}, ErrInvalidStatus
	}
	target := database.SessionStatus(status)
	now := s.now()

	var session database.OrderSession
	err := s.inTx(ctx, func(store Store) error {
		current, err := store.GetSessionForUpdate(ctx, database.GetSessionParams{ID: sessionID, RestaurantID: restaurantID})
		if err != nil {
			return notFoundAs(err, ErrSessionNotFound, "get session")
		}
		if !canMoveSession(current.Status, target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, target)
		}

		switch target {
		case database.SessionStatusCANCELLED, database.SessionStatusVOID:
			if _, err := store.VoidUnpaidBillBySession(ctx, current.ID); err != nil {
				return fmt.Errorf("void bill: %w", err)
			}
		case database.SessionStatusPAID:
			bill, err := store.GetBillBySession(ctx, current.ID)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("get bill: %w", err)
			}
			if err == nil && bill.Status == database.BillStatusUNPAID {
				sum, err := store.SumPaymentsByBill(ctx, bill.ID)
				if err != nil {
					return fmt.Errorf("sum payments: %w", err)
				}
				remaining := money.FromNumeric(bill.TotalAmount).Sub(money.FromNumeric(sum))
				if remaining.GreaterThan(PaymentTolerance) {
					return fmt.Errorf("%w: remaining %s", ErrBalanceOutstanding, remaining.StringFixed(2))
				}
				if _, err := store.MarkBillPaid(ctx, database.MarkBillPaidParams{ID: bill.ID, PaidAt: timestamptz(now)}); err != nil {
					return fmt.Errorf("mark bill paid: %w", err)
				}
			}
		}

		session, err = store.UpdateSessionStatus(ctx, database.UpdateSessionStatusParams{
			ID:       current.ID,
			Status:   target,
			ClosedAt: timestamptz(now),
		})
		if err != nil {
			return fmt.Errorf("update session status: %w", err)
		}
		return nil
	})
	if err != nil {
		return database.OrderSession{}, err
	}

	s.emitSessionStatus(ctx, session)
	if session.TableID.Valid {
		s.releaseTableIfNoOpenSessions(ctx, session.TableID.Bytes)
	}
	return session, nil
}

func canMoveSession(from, to database.SessionStatus) bool {
	for _, allowed := range sessionTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// releaseTableIfNoOpenSessions marks the table AVAILABLE once no OPEN
// session references it. It runs after the owning transaction committed, so
// failures are logged and the caller's result stands.
func (s *OrderService) releaseTableIfNoOpenSessions(ctx context.Context, tableID uuid.UUID) {
	open, err := s.store.CountOpenSessionsByTable(ctx, tableID)
	if err != nil {
		log.Printf("ERROR: count open sessions for table %s: %v", tableID, err)
		return
	}
	if open > 0 {
		return
	}
	table, err := s.store.GetTableByID(ctx, tableID)
	if err != nil {
		log.Printf("ERROR: get table %s: %v", tableID, err)
		return
	}
	if table.Status == database.TableStatusAVAILABLE {
		return
	}
	table, err = s.store.SetTableStatus(ctx, database.SetTableStatusParams{ID: tableID, Status: database.TableStatusAVAILABLE})
	if err != nil {
		log.Printf("ERROR: release table %s: %v", tableID, err)
		return
	}
	s.emitTableStatus(ctx, table)
}

func (s *OrderService) emitTableStatus(ctx context.Context, table database.DiningTable) {
	s.notifier.Emit(ctx, events.TableStatusChanged, map[string]any{
		"table_id":      table.ID,
		"restaurant_id": table.RestaurantID,
		"number":        table.Number,
		"status":        table.Status,
	}, events.RestaurantChannel(table.RestaurantID), events.TableChannel(table.ID))
}

func (s *OrderService) emitSessionStatus(ctx context.Context, session database.OrderSession) {
	s.notifier.Emit(ctx, events.SessionStatusChanged, sessionPayload(session), sessionChannels(session)...)
}

func sessionPayload(session database.OrderSession) map[string]any {
	return map[string]any{
		"session_id":     session.ID,
		"restaurant_id":  session.RestaurantID,
		"session_number": session.SessionNumber,
		"table_id":       uuidOrNil(session.TableID),
		"channel":        session.Channel,
		"status":         session.Status,
	}
}

// sessionChannels is the restaurant channel plus the table channel if bound.
func sessionChannels(session database.OrderSession, extra ...string) []string {
	channels := append([]string{}, extra...)
	channels = append(channels, events.RestaurantChannel(session.RestaurantID))
	if session.TableID.Valid {
		channels = append(channels, events.TableChannel(session.TableID.Bytes))
	}
	return channels
}
