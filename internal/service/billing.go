package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dinepoint/pos-api/internal/auth"
	"github.com/dinepoint/pos-api/internal/database"
	"github.com/dinepoint/pos-api/internal/enum"
	"github.com/dinepoint/pos-api/internal/events"
	"github.com/dinepoint/pos-api/internal/money"
	"github.com/dinepoint/pos-api/internal/numgen"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PaymentTolerance is how far a payment may overshoot the remaining balance,
// and how far short of it may still complete the bill. Amounts are exact
// two-decimal values, so it is zero: 7.29 against 7.28 is an overpayment.
var PaymentTolerance = decimal.Zero

// GenerateBillRequest is the validated input for billing a session.
type GenerateBillRequest struct {
	DiscountAmount decimal.Decimal
	Notes          string
}

// AddPaymentRequest is the validated input for recording a payment.
type AddPaymentRequest struct {
	Amount    decimal.Decimal
	Method    string
	Reference string
	Notes     string
}

// BillDetail is a bill with its lines, payments and running balance.
type BillDetail struct {
	Bill      database.Bill
	Items     []database.BillItem
	Payments  []database.Payment
	TotalPaid decimal.Decimal
	Remaining decimal.Decimal
}

// PaymentResult is a recorded payment and the bill after it.
type PaymentResult struct {
	Payment   database.Payment
	Bill      database.Bill
	TotalPaid decimal.Decimal
	Remaining decimal.Decimal
	Completed bool
}

// BillTotals holds the computed money fields of a bill.
type BillTotals struct {
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// ComputeBillTotals applies discount then tax. The discount cannot take the
// taxable amount below zero; tax and total are rounded to cents.
func ComputeBillTotals(subtotal, discount, taxRate decimal.Decimal) BillTotals {
	taxable := subtotal.Sub(discount)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}
	tax := money.Round(taxable.Mul(taxRate).Div(decimal.NewFromInt(100)))
	return BillTotals{
		Subtotal:  subtotal,
		Discount:  discount,
		TaxAmount: tax,
		Total:     money.Round(taxable.Add(tax)),
	}
}

// billLine is one bill row: all non-cancelled items of a menu item merged.
type billLine struct {
	menuItemID uuid.UUID
	name       string
	quantity   int32
	total      decimal.Decimal
}

// aggregateBillLines merges non-cancelled items by menu item, keeping the
// order in which each menu item first appears.
func aggregateBillLines(rows []database.ListItemsByBatchRow) []billLine {
	index := make(map[uuid.UUID]int)
	var lines []billLine
	for _, r := range rows {
		it := r.OrderItem
		if it.Status == database.ItemStatusCANCELLED {
			continue
		}
		i, ok := index[it.MenuItemID]
		if !ok {
			i = len(lines)
			index[it.MenuItemID] = i
			lines = append(lines, billLine{menuItemID: it.MenuItemID, name: r.MenuItemName})
		}
		lines[i].quantity += it.Quantity
		lines[i].total = lines[i].total.Add(money.FromNumeric(it.TotalPrice))
	}
	return lines
}

// GenerateBill snapshots the session's items into a bill and moves the
// session to BILLED in the same transaction. A session gets one bill.
func (s *OrderService) GenerateBill(ctx context.Context, actor *auth.Actor, restaurantID, sessionID uuid.UUID, req GenerateBillRequest) (*BillDetail, error) {
	restaurant, err := s.authorize(ctx, actor, restaurantID, enum.BillingRoles)
	if err != nil {
		return nil, err
	}
	if req.DiscountAmount.IsNegative() || !money.IsCents(req.DiscountAmount) {
		return nil, ErrInvalidDiscount
	}
	taxRate := money.FromNumeric(restaurant.TaxRate)

	var (
		session database.OrderSession
		detail  *BillDetail
	)
	err = numgen.Retry(ctx, func(ctx context.Context) error {
		return s.inTx(ctx, func(store Store) error {
			current, err := store.GetSessionForUpdate(ctx, database.GetSessionParams{ID: sessionID, RestaurantID: restaurantID})
			if err != nil {
				return notFoundAs(err, ErrSessionNotFound, "get session")
			}
			if _, err := store.GetBillBySession(ctx, current.ID); err == nil {
				return ErrBillExists
			} else if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("get bill: %w", err)
			}
			if current.Status != database.SessionStatusOPEN {
				return ErrSessionNotOpen
			}

			rows, err := store.ListItemsBySession(ctx, current.ID)
			if err != nil {
				return fmt.Errorf("list items: %w", err)
			}
			lines := aggregateBillLines(rows)
			if len(lines) == 0 {
				return ErrNothingToBill
			}

			subtotal := decimal.Zero
			for _, l := range lines {
				subtotal = subtotal.Add(l.total)
			}
			totals := ComputeBillTotals(subtotal, req.DiscountAmount, taxRate)

			number, err := numgen.Mint(ctx, numgen.BillNumber, func(ctx context.Context, candidate string) (bool, error) {
				return store.BillNumberExists(ctx, database.BillNumberExistsParams{
					RestaurantID: restaurantID,
					BillNumber:   candidate,
				})
			})
			if err != nil {
				return err
			}

			bill, err := store.CreateBill(ctx, database.CreateBillParams{
				SessionID:      current.ID,
				RestaurantID:   restaurantID,
				BillNumber:     number,
				Subtotal:       money.ToNumeric(totals.Subtotal),
				TaxRate:        money.ToNumeric(taxRate),
				TaxAmount:      money.ToNumeric(totals.TaxAmount),
				DiscountAmount: money.ToNumeric(totals.Discount),
				TotalAmount:    money.ToNumeric(totals.Total),
				Notes:          optionalText(req.Notes),
				GeneratedBy:    actor.UserID,
			})
			if err != nil {
				if numgen.IsUniqueViolation(err, billSessionConstraint) {
					return ErrBillExists
				}
				return fmt.Errorf("create bill: %w", err)
			}

			items := make([]database.BillItem, 0, len(lines))
			for _, l := range lines {
				unit := money.Round(l.total.Div(decimal.NewFromInt32(l.quantity)))
				bi, err := store.CreateBillItem(ctx, database.CreateBillItemParams{
					BillID:     bill.ID,
					MenuItemID: l.menuItemID,
					Name:       l.name,
					Quantity:   l.quantity,
					UnitPrice:  money.ToNumeric(unit),
					TotalPrice: money.ToNumeric(l.total),
				})
				if err != nil {
					return fmt.Errorf("create bill item: %w", err)
				}
				items = append(items, bi)
			}

			session, err = store.MarkSessionBilled(ctx, database.MarkSessionBilledParams{
				ID:             current.ID,
				Subtotal:       bill.Subtotal,
				DiscountAmount: bill.DiscountAmount,
				TaxAmount:      bill.TaxAmount,
				TotalAmount:    bill.TotalAmount,
			})
			if err != nil {
				return notFoundAs(err, ErrSessionNotOpen, "mark session billed")
			}

			detail = &BillDetail{
				Bill:      bill,
				Items:     items,
				Payments:  []database.Payment{},
				TotalPaid: decimal.Zero,
				Remaining: totals.Total,
			}
			return nil
		})
	}, billNumberConstraint)
	if err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, events.BillGenerated, billPayload(detail.Bill, detail.TotalPaid, detail.Remaining),
		events.BillingChannel(restaurantID))
	s.emitSessionStatus(ctx, session)
	return detail, nil
}

// GetSessionBill returns the bill of a session.
func (s *OrderService) GetSessionBill(ctx context.Context, actor *auth.Actor, restaurantID, sessionID uuid.UUID) (*BillDetail, error) {
	if _, err := s.authorize(ctx, actor, restaurantID, enum.AllRoles); err != nil {
		return nil, err
	}
	if _, err := s.store.GetSession(ctx, database.GetSessionParams{ID: sessionID, RestaurantID: restaurantID}); err != nil {
		return nil, notFoundAs(err, ErrSessionNotFound, "get session")
	}
	bill, err := s.store.GetBillBySession(ctx, sessionID)
	if err != nil {
		return nil, notFoundAs(err, ErrBillNotFound, "get bill")
	}
	return s.billDetail(ctx, bill)
}

// GetBill returns a bill by id.
func (s *OrderService) GetBill(ctx context.Context, actor *auth.Actor, billID uuid.UUID) (*BillDetail, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return nil, notFoundAs(err, ErrBillNotFound, "get bill")
	}
	if _, err := s.authorize(ctx, actor, bill.RestaurantID, enum.AllRoles); err != nil {
		return nil, err
	}
	return s.billDetail(ctx, bill)
}

// Receipt is a bill together with the restaurant that issued it.
type Receipt struct {
	Restaurant database.Restaurant
	Detail     *BillDetail
}

// GetReceipt returns everything needed to print a bill.
func (s *OrderService) GetReceipt(ctx context.Context, actor *auth.Actor, billID uuid.UUID) (*Receipt, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return nil, notFoundAs(err, ErrBillNotFound, "get bill")
	}
	restaurant, err := s.authorize(ctx, actor, bill.RestaurantID, enum.AllRoles)
	if err != nil {
		return nil, err
	}
	detail, err := s.billDetail(ctx, bill)
	if err != nil {
		return nil, err
	}
	return &Receipt{Restaurant: restaurant, Detail: detail}, nil
}

func (s *OrderService) billDetail(ctx context.Context, bill database.Bill) (*BillDetail, error) {
	items, err := s.store.ListBillItems(ctx, bill.ID)
	if err != nil {
		return nil, fmt.Errorf("list bill items: %w", err)
	}
	payments, err := s.store.ListPaymentsByBill(ctx, bill.ID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(money.FromNumeric(p.Amount))
	}
	return &BillDetail{
		Bill:      bill,
		Items:     items,
		Payments:  payments,
		TotalPaid: paid,
		Remaining: money.FromNumeric(bill.TotalAmount).Sub(paid),
	}, nil
}

func validPaymentMethod(s string) bool {
	switch database.PaymentMethod(s) {
	case database.PaymentMethodCASH, database.PaymentMethodCARD, database.PaymentMethodMOBILEWALLET,
		database.PaymentMethodBANKTRANSFER, database.PaymentMethodOTHER:
		return true
	}
	return false
}

// AddPayment records a payment. The session and bill rows are locked while the
// balance is recomputed, so concurrent payments on one bill are serialized and exactly
// one of them can complete it. The completing payment marks the bill and the
// session PAID in the same transaction.
func (s *OrderService) AddPayment(ctx context.Context, actor *auth.Actor, billID uuid.UUID, req AddPaymentRequest) (*PaymentResult, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return nil, notFoundAs(err, ErrBillNotFound, "get bill")
	}
	if _, err := s.authorize(ctx, actor, bill.RestaurantID, enum.BillingRoles); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() || !money.IsCents(req.Amount) {
		return nil, ErrInvalidAmount
	}
	method := database.PaymentMethodCASH
	if req.Method != "" {
		if !validPaymentMethod(req.Method) {
			return nil, ErrInvalidMethod
		}
		method = database.PaymentMethod(req.Method)
	}
	now := timestamptz(s.now())

	result := &PaymentResult{}
	var session database.OrderSession
	err = s.inTx(ctx, func(store Store) error {
		// Session before bill, the order UpdateSessionStatus locks in.
		if _, err := store.GetSessionForUpdate(ctx, database.GetSessionParams{ID: bill.SessionID, RestaurantID: bill.RestaurantID}); err != nil {
			return notFoundAs(err, ErrSessionNotFound, "lock session")
		}
		locked, err := store.GetBillForUpdate(ctx, billID)
		if err != nil {
			return notFoundAs(err, ErrBillNotFound, "lock bill")
		}
		switch locked.Status {
		case database.BillStatusVOIDED:
			return ErrBillVoided
		case database.BillStatusPAID:
			return ErrBillAlreadyPaid
		}

		sum, err := store.SumPaymentsByBill(ctx, locked.ID)
		if err != nil {
			return fmt.Errorf("sum payments: %w", err)
		}
		paid := money.FromNumeric(sum)
		remaining := money.FromNumeric(locked.TotalAmount).Sub(paid)

		if req.Amount.GreaterThan(remaining.Add(PaymentTolerance)) {
			return fmt.Errorf("%w: remaining %s", ErrOverpayment, remaining.StringFixed(2))
		}
		completes := req.Amount.GreaterThanOrEqual(remaining.Sub(PaymentTolerance))

		payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
			BillID:     locked.ID,
			Amount:     money.ToNumeric(req.Amount),
			Method:     method,
			Reference:  optionalText(req.Reference),
			Notes:      optionalText(req.Notes),
			ReceivedBy: actor.UserID,
		})
		if err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		result.Payment = payment
		result.Bill = locked
		result.TotalPaid = paid.Add(req.Amount)
		result.Remaining = remaining.Sub(req.Amount)
		result.Completed = completes

		if completes {
			result.Bill, err = store.MarkBillPaid(ctx, database.MarkBillPaidParams{ID: locked.ID, PaidAt: now})
			if err != nil {
				return fmt.Errorf("mark bill paid: %w", err)
			}
			session, err = store.MarkSessionPaid(ctx, database.MarkSessionPaidParams{ID: locked.SessionID, ClosedAt: now})
			if err != nil {
				return fmt.Errorf("mark session paid: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Completed && session.TableID.Valid {
		s.releaseTableIfNoOpenSessions(ctx, session.TableID.Bytes)
	}

	restaurantID := result.Bill.RestaurantID
	s.notifier.Emit(ctx, events.PaymentRecorded, map[string]any{
		"payment_id": result.Payment.ID,
		"bill_id":    result.Bill.ID,
		"session_id": result.Bill.SessionID,
		"amount":     req.Amount.StringFixed(2),
		"method":     result.Payment.Method,
		"total_paid": result.TotalPaid.StringFixed(2),
		"remaining":  result.Remaining.StringFixed(2),
		"completed":  result.Completed,
	}, events.BillingChannel(restaurantID), events.RestaurantChannel(restaurantID))
	if result.Completed {
		s.notifier.Emit(ctx, events.BillPaid, billPayload(result.Bill, result.TotalPaid, result.Remaining),
			events.BillingChannel(restaurantID), events.RestaurantChannel(restaurantID))
		s.emitSessionStatus(ctx, session)
	}
	return result, nil
}

// ListPayments returns a bill's payments, oldest first.
func (s *OrderService) ListPayments(ctx context.Context, actor *auth.Actor, billID uuid.UUID) ([]database.Payment, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return nil, notFoundAs(err, ErrBillNotFound, "get bill")
	}
	if _, err := s.authorize(ctx, actor, bill.RestaurantID, enum.BillingRoles); err != nil {
		return nil, err
	}
	payments, err := s.store.ListPaymentsByBill(ctx, bill.ID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

func billPayload(bill database.Bill, paid, remaining decimal.Decimal) map[string]any {
	return map[string]any{
		"bill_id":      bill.ID,
		"bill_number":  bill.BillNumber,
		"session_id":   bill.SessionID,
		"status":       bill.Status,
		"total_amount": money.String(bill.TotalAmount),
		"total_paid":   paid.StringFixed(2),
		"remaining":    remaining.StringFixed(2),
	}
}
