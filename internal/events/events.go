// Package events defines the real-time event vocabulary and the publishers
// that carry events to websocket subscribers and downstream consumers.
//
// Delivery is best-effort: a failed publish is logged by Notifier and never
// returned to the operation that produced the event.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
)

// Event names.
const (
	SessionOpened        = "session:opened"
	SessionStatusChanged = "session:status:changed"
	BatchCreated         = "batch:created"
	BatchStatusChanged   = "batch:status:changed"
	ItemStatusChanged    = "item:status:changed"
	TableStatusChanged   = "table:status:changed"
	BillGenerated        = "bill:generated"
	PaymentRecorded      = "payment:recorded"
	BillPaid             = "bill:paid"
)

// Channel scopes.
const (
	ScopeRestaurant = "restaurant"
	ScopeKitchen    = "kitchen"
	ScopeBilling    = "billing"
	ScopeTable      = "table"
)

var ErrInvalidChannel = errors.New("invalid channel")

func RestaurantChannel(id uuid.UUID) string { return ScopeRestaurant + ":" + id.String() }
func KitchenChannel(id uuid.UUID) string    { return ScopeKitchen + ":" + id.String() }
func BillingChannel(id uuid.UUID) string    { return ScopeBilling + ":" + id.String() }
func TableChannel(id uuid.UUID) string      { return ScopeTable + ":" + id.String() }

// ParseChannel splits "scope:uuid" into its parts.
func ParseChannel(channel string) (scope string, id uuid.UUID, err error) {
	scope, rest, ok := strings.Cut(channel, ":")
	if !ok {
		return "", uuid.Nil, ErrInvalidChannel
	}
	switch scope {
	case ScopeRestaurant, ScopeKitchen, ScopeBilling, ScopeTable:
	default:
		return "", uuid.Nil, ErrInvalidChannel
	}
	id, err = uuid.Parse(rest)
	if err != nil {
		return "", uuid.Nil, ErrInvalidChannel
	}
	return scope, id, nil
}

// Envelope is the wire form of an event, shared by the websocket, Redis and
// Kafka transports.
type Envelope struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

func NewEnvelope(channel, event string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Envelope{Type: event, Channel: channel, Payload: data}, nil
}

// Publisher delivers one envelope to its channel's subscribers.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, env Envelope) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Notifier is what the order services call after a state change.
type Notifier struct {
	pub Publisher
}

// NewNotifier returns a Notifier; a nil publisher discards every event.
func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{pub: pub}
}

// Emit sends event to each channel. Failures are logged and swallowed.
func (n *Notifier) Emit(ctx context.Context, event string, payload any, channels ...string) {
	if n == nil || n.pub == nil {
		return
	}
	for _, ch := range channels {
		env, err := NewEnvelope(ch, event, payload)
		if err != nil {
			log.Printf("WARN: broadcast %s to %s: %v", event, ch, err)
			continue
		}
		if err := n.pub.Publish(ctx, env); err != nil {
			log.Printf("WARN: broadcast %s to %s: %v", event, ch, err)
		}
	}
}
