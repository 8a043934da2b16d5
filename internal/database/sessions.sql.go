package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const sessionColumns = `id, restaurant_id, table_id, session_number, status, channel, customer_name, guest_count, notes, subtotal, discount_amount, tax_amount, total_amount, opened_by, opened_at, closed_at, created_at, updated_at`

func scanSession(row scanner) (OrderSession, error) {
	var i OrderSession
	err := row.Scan(
		&i.ID,
		&i.RestaurantID,
		&i.TableID,
		&i.SessionNumber,
		&i.Status,
		&i.Channel,
		&i.CustomerName,
		&i.GuestCount,
		&i.Notes,
		&i.Subtotal,
		&i.DiscountAmount,
		&i.TaxAmount,
		&i.TotalAmount,
		&i.OpenedBy,
		&i.OpenedAt,
		&i.ClosedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectSessions(rows pgx.Rows) ([]OrderSession, error) {
	defer rows.Close()
	items := []OrderSession{}
	for rows.Next() {
		i, err := scanSession(rows)
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

const sessionNumberExists = `-- name: SessionNumberExists :one
SELECT EXISTS (
    SELECT 1 FROM order_sessions WHERE restaurant_id = $1 AND session_number = $2
)
`

type SessionNumberExistsParams struct {
	RestaurantID  uuid.UUID `json:"restaurant_id"`
	SessionNumber string    `json:"session_number"`
}

func (q *Queries) SessionNumberExists(ctx context.Context, arg SessionNumberExistsParams) (bool, error) {
	row := q.db.QueryRow(ctx, sessionNumberExists, arg.RestaurantID, arg.SessionNumber)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const createSession = `-- name: CreateSession :one
INSERT INTO order_sessions (
    restaurant_id, table_id, session_number, channel,
    customer_name, guest_count, notes, opened_by
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8
)
RETURNING ` + sessionColumns

type CreateSessionParams struct {
	RestaurantID  uuid.UUID      `json:"restaurant_id"`
	TableID       pgtype.UUID    `json:"table_id"`
	SessionNumber string         `json:"session_number"`
	Channel       SessionChannel `json:"channel"`
	CustomerName  pgtype.Text    `json:"customer_name"`
	GuestCount    pgtype.Int4    `json:"guest_count"`
	Notes         pgtype.Text    `json:"notes"`
	OpenedBy      uuid.UUID      `json:"opened_by"`
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (OrderSession, error) {
	return scanSession(q.db.QueryRow(ctx, createSession,
		arg.RestaurantID,
		arg.TableID,
		arg.SessionNumber,
		arg.Channel,
		arg.CustomerName,
		arg.GuestCount,
		arg.Notes,
		arg.OpenedBy,
	))
}

const getSession = `-- name: GetSession :one
SELECT ` + sessionColumns + ` FROM order_sessions
WHERE id = $1 AND restaurant_id = $2
`

type GetSessionParams struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
}

func (q *Queries) GetSession(ctx context.Context, arg GetSessionParams) (OrderSession, error) {
	return scanSession(q.db.QueryRow(ctx, getSession, arg.ID, arg.RestaurantID))
}

const getSessionForUpdate = `-- name: GetSessionForUpdate :one
SELECT ` + sessionColumns + ` FROM order_sessions
WHERE id = $1 AND restaurant_id = $2
FOR NO KEY UPDATE
`

func (q *Queries) GetSessionForUpdate(ctx context.Context, arg GetSessionParams) (OrderSession, error) {
	return scanSession(q.db.QueryRow(ctx, getSessionForUpdate, arg.ID, arg.RestaurantID))
}

const getSessionByID = `-- name: GetSessionByID :one
SELECT ` + sessionColumns + ` FROM order_sessions WHERE id = $1
`

func (q *Queries) GetSessionByID(ctx context.Context, id uuid.UUID) (OrderSession, error) {
	return scanSession(q.db.QueryRow(ctx, getSessionByID, id))
}

const listSessions = `-- name: ListSessions :many
SELECT ` + sessionColumns + ` FROM order_sessions
WHERE restaurant_id = $1
  AND ($2::text IS NULL OR status = $2::text)
ORDER BY opened_at DESC
LIMIT $3 OFFSET $4
`

type ListSessionsParams struct {
	RestaurantID uuid.UUID         `json:"restaurant_id"`
	Status       NullSessionStatus `json:"status"`
	Limit        int32             `json:"limit"`
	Offset       int32             `json:"offset"`
}

func (q *Queries) ListSessions(ctx context.Context, arg ListSessionsParams) ([]OrderSession, error) {
	var status pgtype.Text
	if arg.Status.Valid {
		status = pgtype.Text{String: string(arg.Status.SessionStatus), Valid: true}
	}
	rows, err := q.db.Query(ctx, listSessions, arg.RestaurantID, status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

const listSessionsByStatuses = `-- name: ListSessionsByStatuses :many
SELECT ` + sessionColumns + ` FROM order_sessions
WHERE restaurant_id = $1 AND status = ANY($2::text[])
ORDER BY opened_at
`

type ListSessionsByStatusesParams struct {
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Statuses     []string  `json:"statuses"`
}

func (q *Queries) ListSessionsByStatuses(ctx context.Context, arg ListSessionsByStatusesParams) ([]OrderSession, error) {
	rows, err := q.db.Query(ctx, listSessionsByStatuses, arg.RestaurantID, arg.Statuses)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

const updateSessionStatus = `-- name: UpdateSessionStatus :one
UPDATE order_sessions
SET status = $2, closed_at = COALESCE($3, closed_at), updated_at = now()
WHERE id = $1
RETURNING ` + sessionColumns

type UpdateSessionStatusParams struct {
	ID       uuid.UUID          `json:"id"`
	Status   SessionStatus      `json:"status"`
	ClosedAt pgtype.Timestamptz `json:"closed_at"`
}

func (q *Queries) UpdateSessionStatus(ctx context.Context, arg UpdateSessionStatusParams) (OrderSession, error) {
	return scanSession(q.db.QueryRow(ctx, updateSessionStatus, arg.ID, arg.Status, arg.ClosedAt))
}

const markSessionBilled = `-- name: MarkSessionBilled :one
UPDATE order_sessions
SET status          = 'BILLED',
    subtotal        = $2,
    discount_amount = $3,
    tax_amount      = $4,
    total_amount    = $5,
    updated_at      = now()
WHERE id = $1 AND status = 'OPEN'
RETURNING ` + sessionColumns

type MarkSessionBilledParams struct {
	ID             uuid.UUID      `json:"id"`
	Subtotal       pgtype.Numeric `json:"subtotal"`
	DiscountAmount pgtype.Numeric `json:"discount_amount"`
	TaxAmount      pgtype.Numeric `json:"tax_amount"`
	TotalAmount    pgtype.Numeric `json:"total_amount"`
}

// MarkSessionBilled returns pgx.ErrNoRows if the session is no longer OPEN.
func (q *Queries) MarkSessionBilled(ctx context.Context, arg MarkSessionBilledParams) (OrderSession, error) {
	return scanSession(q.db.QueryRow(ctx, markSessionBilled,
		arg.ID,
		arg.Subtotal,
		arg.DiscountAmount,
		arg.TaxAmount,
		arg.TotalAmount,
	))
}

const markSessionPaid = `-- name: MarkSessionPaid :one
UPDATE order_sessions
SET status = 'PAID', closed_at = $2, updated_at = now()
WHERE id = $1
RETURNING ` + sessionColumns

type MarkSessionPaidParams struct {
	ID       uuid.UUID          `json:"id"`
	ClosedAt pgtype.Timestamptz `json:"closed_at"`
}

func (q *Queries) MarkSessionPaid(ctx context.Context, arg MarkSessionPaidParams) (OrderSession, error) {
	return scanSession(q.db.QueryRow(ctx, markSessionPaid, arg.ID, arg.ClosedAt))
}
