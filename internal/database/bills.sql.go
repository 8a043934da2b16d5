package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const billColumns = `id, session_id, restaurant_id, bill_number, status, subtotal, tax_rate, tax_amount, discount_amount, total_amount, notes, generated_by, paid_at, voided_at, created_at, updated_at`

func scanBill(row scanner) (Bill, error) {
	var i Bill
	err := row.Scan(
		&i.ID,
		&i.SessionID,
		&i.RestaurantID,
		&i.BillNumber,
		&i.Status,
		&i.Subtotal,
		&i.TaxRate,
		&i.TaxAmount,
		&i.DiscountAmount,
		&i.TotalAmount,
		&i.Notes,
		&i.GeneratedBy,
		&i.PaidAt,
		&i.VoidedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const billNumberExists = `-- name: BillNumberExists :one
SELECT EXISTS (
    SELECT 1 FROM bills WHERE restaurant_id = $1 AND bill_number = $2
)
`

type BillNumberExistsParams struct {
	RestaurantID uuid.UUID `json:"restaurant_id"`
	BillNumber   string    `json:"bill_number"`
}

func (q *Queries) BillNumberExists(ctx context.Context, arg BillNumberExistsParams) (bool, error) {
	row := q.db.QueryRow(ctx, billNumberExists, arg.RestaurantID, arg.BillNumber)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const createBill = `-- name: CreateBill :one
INSERT INTO bills (
    session_id, restaurant_id, bill_number, subtotal, tax_rate,
    tax_amount, discount_amount, total_amount, notes, generated_by
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
)
RETURNING ` + billColumns

type CreateBillParams struct {
	SessionID      uuid.UUID      `json:"session_id"`
	RestaurantID   uuid.UUID      `json:"restaurant_id"`
	BillNumber     string         `json:"bill_number"`
	Subtotal       pgtype.Numeric `json:"subtotal"`
	TaxRate        pgtype.Numeric `json:"tax_rate"`
	TaxAmount      pgtype.Numeric `json:"tax_amount"`
	DiscountAmount pgtype.Numeric `json:"discount_amount"`
	TotalAmount    pgtype.Numeric `json:"total_amount"`
	Notes          pgtype.Text    `json:"notes"`
	GeneratedBy    uuid.UUID      `json:"generated_by"`
}

func (q *Queries) CreateBill(ctx context.Context, arg CreateBillParams) (Bill, error) {
	return scanBill(q.db.QueryRow(ctx, createBill,
		arg.SessionID,
		arg.RestaurantID,
		arg.BillNumber,
		arg.Subtotal,
		arg.TaxRate,
		arg.TaxAmount,
		arg.DiscountAmount,
		arg.TotalAmount,
		arg.Notes,
		arg.GeneratedBy,
	))
}

const getBill = `-- name: GetBill :one
SELECT ` + billColumns + ` FROM bills WHERE id = $1
`

func (q *Queries) GetBill(ctx context.Context, id uuid.UUID) (Bill, error) {
	return scanBill(q.db.QueryRow(ctx, getBill, id))
}

const getBillForUpdate = `-- name: GetBillForUpdate :one
SELECT ` + billColumns + ` FROM bills WHERE id = $1
FOR NO KEY UPDATE
`

// GetBillForUpdate locks the bill row until the surrounding transaction ends.
func (q *Queries) GetBillForUpdate(ctx context.Context, id uuid.UUID) (Bill, error) {
	return scanBill(q.db.QueryRow(ctx, getBillForUpdate, id))
}

const getBillBySession = `-- name: GetBillBySession :one
SELECT ` + billColumns + ` FROM bills WHERE session_id = $1
`

func (q *Queries) GetBillBySession(ctx context.Context, sessionID uuid.UUID) (Bill, error) {
	return scanBill(q.db.QueryRow(ctx, getBillBySession, sessionID))
}

const markBillPaid = `-- name: MarkBillPaid :one
UPDATE bills SET status = 'PAID', paid_at = $2, updated_at = now()
WHERE id = $1 AND status = 'UNPAID'
RETURNING ` + billColumns

type MarkBillPaidParams struct {
	ID     uuid.UUID          `json:"id"`
	PaidAt pgtype.Timestamptz `json:"paid_at"`
}

func (q *Queries) MarkBillPaid(ctx context.Context, arg MarkBillPaidParams) (Bill, error) {
	return scanBill(q.db.QueryRow(ctx, markBillPaid, arg.ID, arg.PaidAt))
}

const voidUnpaidBillBySession = `-- name: VoidUnpaidBillBySession :execrows
UPDATE bills SET status = 'VOIDED', voided_at = now(), updated_at = now()
WHERE session_id = $1 AND status = 'UNPAID'
`

func (q *Queries) VoidUnpaidBillBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, voidUnpaidBillBySession, sessionID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const billItemColumns = `id, bill_id, menu_item_id, name, quantity, unit_price, total_price`

func scanBillItem(row scanner) (BillItem, error) {
	var i BillItem
	err := row.Scan(
		&i.ID,
		&i.BillID,
		&i.MenuItemID,
		&i.Name,
		&i.Quantity,
		&i.UnitPrice,
		&i.TotalPrice,
	)
	return i, err
}

const createBillItem = `-- name: CreateBillItem :one
INSERT INTO bill_items (bill_id, menu_item_id, name, quantity, unit_price, total_price)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + billItemColumns

type CreateBillItemParams struct {
	BillID     uuid.UUID      `json:"bill_id"`
	MenuItemID uuid.UUID      `json:"menu_item_id"`
	Name       string         `json:"name"`
	Quantity   int32          `json:"quantity"`
	UnitPrice  pgtype.Numeric `json:"unit_price"`
	TotalPrice pgtype.Numeric `json:"total_price"`
}

func (q *Queries) CreateBillItem(ctx context.Context, arg CreateBillItemParams) (BillItem, error) {
	return scanBillItem(q.db.QueryRow(ctx, createBillItem,
		arg.BillID,
		arg.MenuItemID,
		arg.Name,
		arg.Quantity,
		arg.UnitPrice,
		arg.TotalPrice,
	))
}

const listBillItems = `-- name: ListBillItems :many
SELECT ` + billItemColumns + ` FROM bill_items WHERE bill_id = $1 ORDER BY name
`

func (q *Queries) ListBillItems(ctx context.Context, billID uuid.UUID) ([]BillItem, error) {
	rows, err := q.db.Query(ctx, listBillItems, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []BillItem{}
	for rows.Next() {
		i, err := scanBillItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
