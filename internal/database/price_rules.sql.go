package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const priceRuleColumns = `id, restaurant_id, menu_item_id, name, rule_type, special_price, start_time, end_time, days, start_date, end_date, priority, is_active, created_at`

func scanPriceRule(row scanner) (PriceRule, error) {
	var i PriceRule
	err := row.Scan(
		&i.ID,
		&i.RestaurantID,
		&i.MenuItemID,
		&i.Name,
		&i.RuleType,
		&i.SpecialPrice,
		&i.StartTime,
		&i.EndTime,
		&i.Days,
		&i.StartDate,
		&i.EndDate,
		&i.Priority,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const listActivePriceRules = `-- name: ListActivePriceRules :many
SELECT ` + priceRuleColumns + ` FROM price_rules
WHERE restaurant_id = $1 AND menu_item_id = $2 AND is_active
ORDER BY priority DESC, created_at
`

type ListActivePriceRulesParams struct {
	RestaurantID uuid.UUID `json:"restaurant_id"`
	MenuItemID   uuid.UUID `json:"menu_item_id"`
}

func (q *Queries) ListActivePriceRules(ctx context.Context, arg ListActivePriceRulesParams) ([]PriceRule, error) {
	rows, err := q.db.Query(ctx, listActivePriceRules, arg.RestaurantID, arg.MenuItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []PriceRule{}
	for rows.Next() {
		i, err := scanPriceRule(rows)
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

const createPriceRule = `-- name: CreatePriceRule :one
INSERT INTO price_rules (
    restaurant_id, menu_item_id, name, rule_type, special_price,
    start_time, end_time, days, start_date, end_date, priority
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
)
RETURNING ` + priceRuleColumns

type CreatePriceRuleParams struct {
	RestaurantID uuid.UUID      `json:"restaurant_id"`
	MenuItemID   uuid.UUID      `json:"menu_item_id"`
	Name         string         `json:"name"`
	RuleType     PriceRuleType  `json:"rule_type"`
	SpecialPrice pgtype.Numeric `json:"special_price"`
	StartTime    pgtype.Text    `json:"start_time"`
	EndTime      pgtype.Text    `json:"end_time"`
	Days         []string       `json:"days"`
	StartDate    pgtype.Date    `json:"start_date"`
	EndDate      pgtype.Date    `json:"end_date"`
	Priority     int32          `json:"priority"`
}

func (q *Queries) CreatePriceRule(ctx context.Context, arg CreatePriceRuleParams) (PriceRule, error) {
	return scanPriceRule(q.db.QueryRow(ctx, createPriceRule,
		arg.RestaurantID,
		arg.MenuItemID,
		arg.Name,
		arg.RuleType,
		arg.SpecialPrice,
		arg.StartTime,
		arg.EndTime,
		arg.Days,
		arg.StartDate,
		arg.EndDate,
		arg.Priority,
	))
}
