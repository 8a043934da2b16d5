package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, restaurant_id, name, email, role, is_active, created_at, updated_at`

func scanUser(row scanner) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.RestaurantID,
		&i.Name,
		&i.Email,
		&i.Role,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getUser = `-- name: GetUser :one
SELECT ` + userColumns + ` FROM users WHERE id = $1
`

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUser, id))
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (restaurant_id, name, email, role)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns

type CreateUserParams struct {
	RestaurantID pgtype.UUID `json:"restaurant_id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Role         string      `json:"role"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, createUser,
		arg.RestaurantID,
		arg.Name,
		arg.Email,
		arg.Role,
	))
}
