package service

import (
	"context"

	"github.com/dinepoint/pos-api/internal/auth"
	"github.com/dinepoint/pos-api/internal/database"
	"github.com/dinepoint/pos-api/internal/enum"
	"github.com/dinepoint/pos-api/internal/events"
	"github.com/google/uuid"
)

// CanAccessRestaurant reports whether actor is in scope for r: super admins
// see every restaurant, owners see the ones they own, everyone else only
// the restaurant they are assigned to.
func CanAccessRestaurant(actor *auth.Actor, r database.Restaurant) bool {
	if actor == nil {
		return false
	}
	if actor.Role == enum.UserRoleSuperAdmin {
		return true
	}
	if actor.Role == enum.UserRoleOwner && r.OwnerID.Valid && uuid.UUID(r.OwnerID.Bytes) == actor.UserID {
		return true
	}
	return actor.RestaurantID != uuid.Nil && actor.RestaurantID == r.ID
}

// authorize is the capability check every operation starts with.
func (s *OrderService) authorize(ctx context.Context, actor *auth.Actor, restaurantID uuid.UUID, roles []string) (database.Restaurant, error) {
	if actor == nil || !actor.IsActive {
		return database.Restaurant{}, ErrNotAuthenticated
	}
	restaurant, err := s.store.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return database.Restaurant{}, notFoundAs(err, ErrRestaurantNotFound, "get restaurant")
	}
	if !CanAccessRestaurant(actor, restaurant) {
		return database.Restaurant{}, ErrAccessDenied
	}
	if !enum.HasRole(actor.Role, roles) {
		return database.Restaurant{}, ErrRoleNotPermitted
	}
	return restaurant, nil
}

func requireRole(actor *auth.Actor, roles []string) error {
	if !enum.HasRole(actor.Role, roles) {
		return ErrRoleNotPermitted
	}
	return nil
}

// AuthorizeChannel decides whether actor may subscribe to a real-time
// channel. Any role in scope of the channel's restaurant may join.
func (s *OrderService) AuthorizeChannel(ctx context.Context, actor *auth.Actor, channel string) error {
	scope, id, err := events.ParseChannel(channel)
	if err != nil {
		return ErrUnknownChannel
	}

	restaurantID := id
	if scope == events.ScopeTable {
		table, err := s.store.GetTableByID(ctx, id)
		if err != nil {
			return notFoundAs(err, ErrTableNotFound, "get table")
		}
		restaurantID = table.RestaurantID
	}

	_, err = s.authorize(ctx, actor, restaurantID, enum.AllRoles)
	return err
}
