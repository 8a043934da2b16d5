package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `id, bill_id, amount, method, reference, notes, received_by, created_at`

func scanPayment(row scanner) (Payment, error) {
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.BillID,
		&i.Amount,
		&i.Method,
		&i.Reference,
		&i.Notes,
		&i.ReceivedBy,
		&i.CreatedAt,
	)
	return i, err
}

const createPayment = `-- name: CreatePayment :one
INSERT INTO payments (bill_id, amount, method, reference, notes, received_by)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + paymentColumns

type CreatePaymentParams struct {
	BillID     uuid.UUID      `json:"bill_id"`
	Amount     pgtype.Numeric `json:"amount"`
	Method     PaymentMethod  `json:"method"`
	Reference  pgtype.Text    `json:"reference"`
	Notes      pgtype.Text    `json:"notes"`
	ReceivedBy uuid.UUID      `json:"received_by"`
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, createPayment,
		arg.BillID,
		arg.Amount,
		arg.Method,
		arg.Reference,
		arg.Notes,
		arg.ReceivedBy,
	))
}

const listPaymentsByBill = `-- name: ListPaymentsByBill :many
SELECT ` + paymentColumns + ` FROM payments WHERE bill_id = $1 ORDER BY created_at
`

func (q *Queries) ListPaymentsByBill(ctx context.Context, billID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByBill, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Payment{}
	for rows.Next() {
		i, err := scanPayment(rows)
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

const sumPaymentsByBill = `-- name: SumPaymentsByBill :one
SELECT COALESCE(SUM(amount), 0)::numeric(12,2) FROM payments WHERE bill_id = $1
`

func (q *Queries) SumPaymentsByBill(ctx context.Context, billID uuid.UUID) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, sumPaymentsByBill, billID)
	var sum pgtype.Numeric
	err := row.Scan(&sum)
	return sum, err
}
