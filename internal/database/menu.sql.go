package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, restaurant_id, name, price, is_active, is_available, track_stock, stock_quantity, is_out_of_stock, created_at, updated_at`

func scanMenuItem(row scanner) (MenuItem, error) {
	var i MenuItem
	err := row.Scan(
		&i.ID,
		&i.RestaurantID,
		&i.Name,
		&i.Price,
		&i.IsActive,
		&i.IsAvailable,
		&i.TrackStock,
		&i.StockQuantity,
		&i.IsOutOfStock,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getMenuItem = `-- name: GetMenuItem :one
SELECT ` + menuItemColumns + ` FROM menu_items
WHERE id = $1 AND restaurant_id = $2
`

type GetMenuItemParams struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
}

func (q *Queries) GetMenuItem(ctx context.Context, arg GetMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItem, arg.ID, arg.RestaurantID))
}

const getMenuItemPricing = `-- name: GetMenuItemPricing :one
SELECT m.id, m.restaurant_id, m.name, m.price, r.timezone
FROM menu_items m
JOIN restaurants r ON r.id = m.restaurant_id
WHERE m.id = $1 AND m.restaurant_id = $2
`

type GetMenuItemPricingParams struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
}

type GetMenuItemPricingRow struct {
	ID           uuid.UUID      `json:"id"`
	RestaurantID uuid.UUID      `json:"restaurant_id"`
	Name         string         `json:"name"`
	Price        pgtype.Numeric `json:"price"`
	Timezone     string         `json:"timezone"`
}

func (q *Queries) GetMenuItemPricing(ctx context.Context, arg GetMenuItemPricingParams) (GetMenuItemPricingRow, error) {
	row := q.db.QueryRow(ctx, getMenuItemPricing, arg.ID, arg.RestaurantID)
	var i GetMenuItemPricingRow
	err := row.Scan(
		&i.ID,
		&i.RestaurantID,
		&i.Name,
		&i.Price,
		&i.Timezone,
	)
	return i, err
}

const decrementMenuItemStock = `-- name: DecrementMenuItemStock :one
UPDATE menu_items
SET stock_quantity  = stock_quantity - $2,
    is_out_of_stock = (stock_quantity - $2) = 0,
    updated_at      = now()
WHERE id = $1 AND track_stock AND stock_quantity >= $2
RETURNING ` + menuItemColumns

type DecrementMenuItemStockParams struct {
	ID       uuid.UUID `json:"id"`
	Quantity int32     `json:"quantity"`
}

// DecrementMenuItemStock returns pgx.ErrNoRows when the item is not tracked
// or does not have enough stock left.
func (q *Queries) DecrementMenuItemStock(ctx context.Context, arg DecrementMenuItemStockParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, decrementMenuItemStock, arg.ID, arg.Quantity))
}

const resetNonTrackableOutOfStock = `-- name: ResetNonTrackableOutOfStock :execrows
UPDATE menu_items SET is_out_of_stock = FALSE, updated_at = now()
WHERE NOT track_stock AND is_out_of_stock
`

func (q *Queries) ResetNonTrackableOutOfStock(ctx context.Context) (int64, error) {
	result, err := q.db.Exec(ctx, resetNonTrackableOutOfStock)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const createMenuItem = `-- name: CreateMenuItem :one
INSERT INTO menu_items (restaurant_id, name, price, track_stock, stock_quantity)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	RestaurantID  uuid.UUID      `json:"restaurant_id"`
	Name          string         `json:"name"`
	Price         pgtype.Numeric `json:"price"`
	TrackStock    bool           `json:"track_stock"`
	StockQuantity pgtype.Int4    `json:"stock_quantity"`
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, createMenuItem,
		arg.RestaurantID,
		arg.Name,
		arg.Price,
		arg.TrackStock,
		arg.StockQuantity,
	))
}
