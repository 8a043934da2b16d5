package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/dinepoint/pos-api/internal/events"
)

var (
	ErrHubClosed   = errors.New("ws: hub closed")
	ErrBacklogFull = errors.New("ws: broadcast backlog full")
)

// subscription is a client joining or leaving one channel.
type subscription struct {
	client  *Client
	channel string
	join    bool
}

// direct is a reply addressed to a single client.
type direct struct {
	client  *Client
	message []byte
}

// Hub maintains the set of active clients and fans events out to the
// clients subscribed to each channel.
type Hub struct {
	// Subscribed clients by channel name
	rooms map[string]map[*Client]bool

	// Channels each registered client is in
	clients map[*Client]map[string]bool

	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription
	replies    chan direct

	// Outbound events to broadcast
	broadcast chan events.Envelope

	// Closed when Run returns
	done chan struct{}

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		clients:    make(map[*Client]map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		replies:    make(chan direct, 64),
		broadcast:  make(chan events.Envelope, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and blocks until ctx is cancelled, after
// which every client's send channel is closed.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = make(map[string]bool)
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case sub := <-h.subscribe:
			h.mu.Lock()
			h.apply(sub)
			h.mu.Unlock()

		case r := <-h.replies:
			h.mu.Lock()
			if _, ok := h.clients[r.client]; ok {
				h.deliver(r.client, r.message)
			}
			h.mu.Unlock()

		case env := <-h.broadcast:
			// Marshal event to JSON once
			message, err := json.Marshal(env)
			if err != nil {
				log.Printf("WARN: ws marshal %s: %v", env.Type, err)
				continue
			}
			h.mu.Lock()
			for client := range h.rooms[env.Channel] {
				h.deliver(client, message)
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) apply(sub subscription) {
	channels, ok := h.clients[sub.client]
	if !ok {
		return
	}
	if sub.join {
		if h.rooms[sub.channel] == nil {
			h.rooms[sub.channel] = make(map[*Client]bool)
		}
		h.rooms[sub.channel][sub.client] = true
		channels[sub.channel] = true
		return
	}
	delete(channels, sub.channel)
	h.leave(sub.client, sub.channel)
}

// deliver queues message for client. A client whose buffer is full is
// dropped. Callers hold h.mu.
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.send <- message:
	default:
		h.drop(client)
	}
}

// drop closes client's send channel and removes it from every room.
// Callers hold h.mu.
func (h *Hub) drop(client *Client) {
	channels, ok := h.clients[client]
	if !ok {
		return
	}
	for ch := range channels {
		h.leave(client, ch)
	}
	delete(h.clients, client)
	close(client.send)
}

func (h *Hub) leave(client *Client, channel string) {
	clients, ok := h.rooms[channel]
	if !ok {
		return
	}
	delete(clients, client)
	// Clean up empty rooms
	if len(clients) == 0 {
		delete(h.rooms, channel)
	}
}

// Publish queues env for its channel's subscribers without blocking.
func (h *Hub) Publish(ctx context.Context, env events.Envelope) error {
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}
	select {
	case h.broadcast <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBacklogFull
	}
}

// Subscribers returns how many clients are subscribed to channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[channel])
}

// The helpers below hand requests to the Run loop and give up once the hub
// has stopped.

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leaveAll(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) changeSubscription(sub subscription) {
	select {
	case h.subscribe <- sub:
	case <-h.done:
	}
}

func (h *Hub) reply(c *Client, message []byte) {
	select {
	case h.replies <- direct{client: c, message: message}:
	case <-h.done:
	}
}
