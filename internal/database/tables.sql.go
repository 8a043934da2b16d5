package database

import (
	"context"

	"github.com/google/uuid"
)

const tableColumns = `id, restaurant_id, number, capacity, status, is_active, created_at, updated_at`

func scanTable(row scanner) (DiningTable, error) {
	var i DiningTable
	err := row.Scan(
		&i.ID,
		&i.RestaurantID,
		&i.Number,
		&i.Capacity,
		&i.Status,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getTable = `-- name: GetTable :one
SELECT ` + tableColumns + ` FROM dining_tables
WHERE id = $1 AND restaurant_id = $2
`

type GetTableParams struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
}

func (q *Queries) GetTable(ctx context.Context, arg GetTableParams) (DiningTable, error) {
	return scanTable(q.db.QueryRow(ctx, getTable, arg.ID, arg.RestaurantID))
}

const getTableByID = `-- name: GetTableByID :one
SELECT ` + tableColumns + ` FROM dining_tables WHERE id = $1
`

func (q *Queries) GetTableByID(ctx context.Context, id uuid.UUID) (DiningTable, error) {
	return scanTable(q.db.QueryRow(ctx, getTableByID, id))
}

const setTableStatus = `-- name: SetTableStatus :one
UPDATE dining_tables SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + tableColumns

type SetTableStatusParams struct {
	ID     uuid.UUID   `json:"id"`
	Status TableStatus `json:"status"`
}

func (q *Queries) SetTableStatus(ctx context.Context, arg SetTableStatusParams) (DiningTable, error) {
	return scanTable(q.db.QueryRow(ctx, setTableStatus, arg.ID, arg.Status))
}

const countOpenSessionsByTable = `-- name: CountOpenSessionsByTable :one
SELECT count(*) FROM order_sessions
WHERE table_id = $1 AND status = 'OPEN'
`

func (q *Queries) CountOpenSessionsByTable(ctx context.Context, tableID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countOpenSessionsByTable, tableID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createTable = `-- name: CreateTable :one
INSERT INTO dining_tables (restaurant_id, number, capacity)
VALUES ($1, $2, $3)
RETURNING ` + tableColumns

type CreateTableParams struct {
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Number       string    `json:"number"`
	Capacity     int32     `json:"capacity"`
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (DiningTable, error) {
	return scanTable(q.db.QueryRow(ctx, createTable, arg.RestaurantID, arg.Number, arg.Capacity))
}
