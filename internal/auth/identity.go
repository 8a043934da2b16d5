package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dinepoint/pos-api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrUnknownUser  = errors.New("user not found")
	ErrInactiveUser = errors.New("user is inactive")
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID       uuid.UUID
	Role         string
	RestaurantID uuid.UUID // uuid.Nil when not assigned to a restaurant
	IsActive     bool
}

// UserStore is satisfied by *database.Queries.
type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (database.User, error)
}

// IdentityProvider turns a bearer token into an active Actor.
type IdentityProvider struct {
	secret string
	users  UserStore
}

func NewIdentityProvider(secret string, users UserStore) *IdentityProvider {
	return &IdentityProvider{secret: secret, users: users}
}

// Resolve validates the token and loads the user it names. Role and
// restaurant come from the stored user, not from the token.
func (p *IdentityProvider) Resolve(ctx context.Context, token string) (*Actor, error) {
	claims, err := ValidateToken(p.secret, token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := p.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	actor := &Actor{
		UserID:   user.ID,
		Role:     user.Role,
		IsActive: user.IsActive,
	}
	if user.RestaurantID.Valid {
		actor.RestaurantID = user.RestaurantID.Bytes
	}
	return actor, nil
}
