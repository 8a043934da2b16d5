package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const itemColumns = `i.id, i.batch_id, i.menu_item_id, i.quantity, i.unit_price, i.total_price, i.status, i.notes, i.cancel_reason, i.price_rule_id, i.prepared_at, i.served_at, i.cancelled_at, i.created_at, i.updated_at`

func itemFields(i *OrderItem) []interface{} {
	return []interface{}{
		&i.ID,
		&i.BatchID,
		&i.MenuItemID,
		&i.Quantity,
		&i.UnitPrice,
		&i.TotalPrice,
		&i.Status,
		&i.Notes,
		&i.CancelReason,
		&i.PriceRuleID,
		&i.PreparedAt,
		&i.ServedAt,
		&i.CancelledAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	}
}

func scanOrderItem(row scanner) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(itemFields(&i)...)
	return i, err
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items AS i (
    batch_id, menu_item_id, quantity, unit_price, total_price, notes, price_rule_id
) VALUES (
    $1, $2, $3, $4, $5, $6, $7
)
RETURNING ` + itemColumns

type CreateOrderItemParams struct {
	BatchID     uuid.UUID      `json:"batch_id"`
	MenuItemID  uuid.UUID      `json:"menu_item_id"`
	Quantity    int32          `json:"quantity"`
	UnitPrice   pgtype.Numeric `json:"unit_price"`
	TotalPrice  pgtype.Numeric `json:"total_price"`
	Notes       pgtype.Text    `json:"notes"`
	PriceRuleID pgtype.UUID    `json:"price_rule_id"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, createOrderItem,
		arg.BatchID,
		arg.MenuItemID,
		arg.Quantity,
		arg.UnitPrice,
		arg.TotalPrice,
		arg.Notes,
		arg.PriceRuleID,
	))
}

const getOrderItem = `-- name: GetOrderItem :one
SELECT ` + itemColumns + ` FROM order_items i WHERE i.id = $1
`

func (q *Queries) GetOrderItem(ctx context.Context, id uuid.UUID) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, getOrderItem, id))
}

const updateOrderItemStatus = `-- name: UpdateOrderItemStatus :one
UPDATE order_items AS i
SET status        = $2,
    cancel_reason = COALESCE($4, i.cancel_reason),
    prepared_at   = COALESCE($5, i.prepared_at),
    served_at     = COALESCE($6, i.served_at),
    cancelled_at  = COALESCE($7, i.cancelled_at),
    updated_at    = now()
WHERE i.id = $1 AND i.status = $3
RETURNING ` + itemColumns

type UpdateOrderItemStatusParams struct {
	ID           uuid.UUID          `json:"id"`
	Status       ItemStatus         `json:"status"`
	Status_2     ItemStatus         `json:"status_2"`
	CancelReason pgtype.Text        `json:"cancel_reason"`
	PreparedAt   pgtype.Timestamptz `json:"prepared_at"`
	ServedAt     pgtype.Timestamptz `json:"served_at"`
	CancelledAt  pgtype.Timestamptz `json:"cancelled_at"`
}

// UpdateOrderItemStatus only applies when the stored status still equals
// Status_2; otherwise it returns pgx.ErrNoRows.
func (q *Queries) UpdateOrderItemStatus(ctx context.Context, arg UpdateOrderItemStatusParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, updateOrderItemStatus,
		arg.ID,
		arg.Status,
		arg.Status_2,
		arg.CancelReason,
		arg.PreparedAt,
		arg.ServedAt,
		arg.CancelledAt,
	))
}

const listItemsByBatch = `-- name: ListItemsByBatch :many
SELECT ` + itemColumns + `, m.name
FROM order_items i
JOIN menu_items m ON m.id = i.menu_item_id
WHERE i.batch_id = $1
ORDER BY i.created_at, i.id
`

type ListItemsByBatchRow struct {
	OrderItem    OrderItem `json:"order_item"`
	MenuItemName string    `json:"menu_item_name"`
}

func (q *Queries) ListItemsByBatch(ctx context.Context, batchID uuid.UUID) ([]ListItemsByBatchRow, error) {
	rows, err := q.db.Query(ctx, listItemsByBatch, batchID)
	if err != nil {
		return nil, err
	}
	return collectItemRows(rows)
}

const listItemsBySession = `-- name: ListItemsBySession :many
SELECT ` + itemColumns + `, m.name
FROM order_items i
JOIN order_batches b ON b.id = i.batch_id
JOIN menu_items m ON m.id = i.menu_item_id
WHERE b.session_id = $1
ORDER BY b.created_at, i.created_at, i.id
`

func (q *Queries) ListItemsBySession(ctx context.Context, sessionID uuid.UUID) ([]ListItemsByBatchRow, error) {
	rows, err := q.db.Query(ctx, listItemsBySession, sessionID)
	if err != nil {
		return nil, err
	}
	return collectItemRows(rows)
}

func collectItemRows(rows pgx.Rows) ([]ListItemsByBatchRow, error) {
	defer rows.Close()
	items := []ListItemsByBatchRow{}
	for rows.Next() {
		var i ListItemsByBatchRow
		dest := append(itemFields(&i.OrderItem), &i.MenuItemName)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
