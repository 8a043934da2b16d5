package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const batchColumns = `id, session_id, batch_number, status, notes, created_by, created_at, updated_at`

func scanBatch(row scanner) (OrderBatch, error) {
	var i OrderBatch
	err := row.Scan(
		&i.ID,
		&i.SessionID,
		&i.BatchNumber,
		&i.Status,
		&i.Notes,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const batchNumberExists = `-- name: BatchNumberExists :one
SELECT EXISTS (
    SELECT 1 FROM order_batches WHERE session_id = $1 AND batch_number = $2
)
`

type BatchNumberExistsParams struct {
	SessionID   uuid.UUID `json:"session_id"`
	BatchNumber string    `json:"batch_number"`
}

func (q *Queries) BatchNumberExists(ctx context.Context, arg BatchNumberExistsParams) (bool, error) {
	row := q.db.QueryRow(ctx, batchNumberExists, arg.SessionID, arg.BatchNumber)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const createBatch = `-- name: CreateBatch :one
INSERT INTO order_batches (session_id, batch_number, notes, created_by)
VALUES ($1, $2, $3, $4)
RETURNING ` + batchColumns

type CreateBatchParams struct {
	SessionID   uuid.UUID   `json:"session_id"`
	BatchNumber string      `json:"batch_number"`
	Notes       pgtype.Text `json:"notes"`
	CreatedBy   uuid.UUID   `json:"created_by"`
}

func (q *Queries) CreateBatch(ctx context.Context, arg CreateBatchParams) (OrderBatch, error) {
	return scanBatch(q.db.QueryRow(ctx, createBatch,
		arg.SessionID,
		arg.BatchNumber,
		arg.Notes,
		arg.CreatedBy,
	))
}

const getBatch = `-- name: GetBatch :one
SELECT ` + batchColumns + ` FROM order_batches WHERE id = $1
`

func (q *Queries) GetBatch(ctx context.Context, id uuid.UUID) (OrderBatch, error) {
	return scanBatch(q.db.QueryRow(ctx, getBatch, id))
}

const getBatchForUpdate = `-- name: GetBatchForUpdate :one
SELECT ` + batchColumns + ` FROM order_batches WHERE id = $1
FOR NO KEY UPDATE
`

func (q *Queries) GetBatchForUpdate(ctx context.Context, id uuid.UUID) (OrderBatch, error) {
	return scanBatch(q.db.QueryRow(ctx, getBatchForUpdate, id))
}

const updateBatchStatus = `-- name: UpdateBatchStatus :one
UPDATE order_batches SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + batchColumns

type UpdateBatchStatusParams struct {
	ID     uuid.UUID   `json:"id"`
	Status BatchStatus `json:"status"`
}

func (q *Queries) UpdateBatchStatus(ctx context.Context, arg UpdateBatchStatusParams) (OrderBatch, error) {
	return scanBatch(q.db.QueryRow(ctx, updateBatchStatus, arg.ID, arg.Status))
}

const listBatchesBySession = `-- name: ListBatchesBySession :many
SELECT ` + batchColumns + ` FROM order_batches
WHERE session_id = $1
ORDER BY created_at
`

func (q *Queries) ListBatchesBySession(ctx context.Context, sessionID uuid.UUID) ([]OrderBatch, error) {
	rows, err := q.db.Query(ctx, listBatchesBySession, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderBatch{}
	for rows.Next() {
		i, err := scanBatch(rows)
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

const listKitchenBatches = `-- name: ListKitchenBatches :many
SELECT b.id, b.session_id, b.batch_number, b.status, b.notes, b.created_at,
       s.session_number, s.channel, s.table_id, t.number
FROM order_batches b
JOIN order_sessions s ON s.id = b.session_id
LEFT JOIN dining_tables t ON t.id = s.table_id
WHERE s.restaurant_id = $1
  AND b.status IN ('PENDING', 'IN_PROGRESS', 'READY')
  AND s.status IN ('OPEN', 'BILLED')
ORDER BY b.created_at
`

type ListKitchenBatchesRow struct {
	ID            uuid.UUID      `json:"id"`
	SessionID     uuid.UUID      `json:"session_id"`
	BatchNumber   string         `json:"batch_number"`
	Status        BatchStatus    `json:"status"`
	Notes         pgtype.Text    `json:"notes"`
	CreatedAt     time.Time      `json:"created_at"`
	SessionNumber string         `json:"session_number"`
	Channel       SessionChannel `json:"channel"`
	TableID       pgtype.UUID    `json:"table_id"`
	TableNumber   pgtype.Text    `json:"table_number"`
}

func (q *Queries) ListKitchenBatches(ctx context.Context, restaurantID uuid.UUID) ([]ListKitchenBatchesRow, error) {
	rows, err := q.db.Query(ctx, listKitchenBatches, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListKitchenBatchesRow{}
	for rows.Next() {
		var i ListKitchenBatchesRow
		if err := rows.Scan(
			&i.ID,
			&i.SessionID,
			&i.BatchNumber,
			&i.Status,
			&i.Notes,
			&i.CreatedAt,
			&i.SessionNumber,
			&i.Channel,
			&i.TableID,
			&i.TableNumber,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
