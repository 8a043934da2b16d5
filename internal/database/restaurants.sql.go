package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const restaurantColumns = `id, name, owner_id, tax_rate, timezone, is_active, created_at, updated_at`

func scanRestaurant(row scanner) (Restaurant, error) {
	var i Restaurant
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.OwnerID,
		&i.TaxRate,
		&i.Timezone,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getRestaurant = `-- name: GetRestaurant :one
SELECT ` + restaurantColumns + ` FROM restaurants WHERE id = $1
`

func (q *Queries) GetRestaurant(ctx context.Context, id uuid.UUID) (Restaurant, error) {
	return scanRestaurant(q.db.QueryRow(ctx, getRestaurant, id))
}

const createRestaurant = `-- name: CreateRestaurant :one
INSERT INTO restaurants (name, owner_id, tax_rate, timezone)
VALUES ($1, $2, $3, $4)
RETURNING ` + restaurantColumns

type CreateRestaurantParams struct {
	Name     string         `json:"name"`
	OwnerID  pgtype.UUID    `json:"owner_id"`
	TaxRate  pgtype.Numeric `json:"tax_rate"`
	Timezone string         `json:"timezone"`
}

func (q *Queries) CreateRestaurant(ctx context.Context, arg CreateRestaurantParams) (Restaurant, error) {
	return scanRestaurant(q.db.QueryRow(ctx, createRestaurant,
		arg.Name,
		arg.OwnerID,
		arg.TaxRate,
		arg.Timezone,
	))
}

const setRestaurantOwner = `-- name: SetRestaurantOwner :one
UPDATE restaurants SET owner_id = $2, updated_at = now()
WHERE id = $1
RETURNING ` + restaurantColumns

type SetRestaurantOwnerParams struct {
	ID      uuid.UUID   `json:"id"`
	OwnerID pgtype.UUID `json:"owner_id"`
}

func (q *Queries) SetRestaurantOwner(ctx context.Context, arg SetRestaurantOwnerParams) (Restaurant, error) {
	return scanRestaurant(q.db.QueryRow(ctx, setRestaurantOwner, arg.ID, arg.OwnerID))
}
