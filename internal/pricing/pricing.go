// Package pricing resolves the effective unit price of a menu item at a given
// moment from its base price and its active price rules.
package pricing

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/dinepoint/pos-api/internal/database"
	"github.com/dinepoint/pos-api/internal/money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrMenuItemNotFound is returned when the item is not in the restaurant.
var ErrMenuItemNotFound = errors.New("menu item not found")

// Result is the effective price and the rule that produced it, if any.
type Result struct {
	Price       decimal.Decimal
	BasePrice   decimal.Decimal
	AppliedRule *database.PriceRule
}

// Resolve picks the winning rule for at. It reads wall-clock fields from at
// as-is, so at must already be in the restaurant's location.
func Resolve(base decimal.Decimal, rules []database.PriceRule, at time.Time) Result {
	var matching []database.PriceRule
	for _, r := range rules {
		if r.IsActive && Matches(r, at) {
			matching = append(matching, r)
		}
	}
	if len(matching) == 0 {
		return Result{Price: base, BasePrice: base}
	}
	slices.SortStableFunc(matching, compareRules)
	winner := matching[0]
	return Result{
		Price:       money.FromNumeric(winner.SpecialPrice),
		BasePrice:   base,
		AppliedRule: &winner,
	}
}

// compareRules orders by priority descending; LIMITED_TIME wins ties.
func compareRules(a, b database.PriceRule) int {
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}
	return cmp.Compare(typeRank(a.RuleType), typeRank(b.RuleType))
}

func typeRank(t database.PriceRuleType) int {
	if t == database.PriceRuleTypeLIMITEDTIME {
		return 0
	}
	return 1
}

// Matches reports whether rule r applies at the wall-clock moment at.
func Matches(r database.PriceRule, at time.Time) bool {
	switch r.RuleType {
	case database.PriceRuleTypeLIMITEDTIME:
		if !inDateRange(r, at) {
			return false
		}
	case database.PriceRuleTypeRECURRINGWEEKLY:
		if !hasDay(r.Days, at.Weekday()) {
			return false
		}
	default:
		return false
	}
	if r.StartTime.Valid && r.EndTime.Valid {
		now := at.Format("15:04")
		return now >= r.StartTime.String && now <= r.EndTime.String
	}
	return true
}

// inDateRange compares calendar days; a rule missing either bound never matches.
func inDateRange(r database.PriceRule, at time.Time) bool {
	if !r.StartDate.Valid || !r.EndDate.Valid {
		return false
	}
	day := dayKey(at.Year(), at.Month(), at.Day())
	start := r.StartDate.Time.UTC()
	end := r.EndDate.Time.UTC()
	return day >= dayKey(start.Year(), start.Month(), start.Day()) &&
		day <= dayKey(end.Year(), end.Month(), end.Day())
}

func dayKey(y int, m time.Month, d int) int {
	return y*10000 + int(m)*100 + d
}

func hasDay(days []string, wd time.Weekday) bool {
	name := wd.String()
	for _, d := range days {
		if strings.EqualFold(d, name) {
			return true
		}
	}
	return false
}

// Store defines the DB methods needed to resolve prices.
// Satisfied by *database.Queries (and its WithTx variant).
type Store interface {
	GetMenuItemPricing(ctx context.Context, arg database.GetMenuItemPricingParams) (database.GetMenuItemPricingRow, error)
	ListActivePriceRules(ctx context.Context, arg database.ListActivePriceRulesParams) ([]database.PriceRule, error)
}

// Resolver loads pricing inputs from a Store and evaluates them in the
// restaurant's timezone.
type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// EffectivePrice returns the unit price of menuItemID at the instant at.
func (r *Resolver) EffectivePrice(ctx context.Context, restaurantID, menuItemID uuid.UUID, at time.Time) (Result, error) {
	item, err := r.store.GetMenuItemPricing(ctx, database.GetMenuItemPricingParams{
		ID:           menuItemID,
		RestaurantID: restaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Result{}, ErrMenuItemNotFound
		}
		return Result{}, fmt.Errorf("get menu item pricing: %w", err)
	}

	rules, err := r.store.ListActivePriceRules(ctx, database.ListActivePriceRulesParams{
		RestaurantID: restaurantID,
		MenuItemID:   menuItemID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("list price rules: %w", err)
	}

	return Resolve(money.FromNumeric(item.Price), rules, at.In(location(item.Timezone))), nil
}

func location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("WARN: unknown timezone %q, using UTC: %v", name, err)
		return time.UTC
	}
	return loc
}
