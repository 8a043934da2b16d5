package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/dinepoint/pos-api/internal/auth"
	"github.com/dinepoint/pos-api/internal/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// Time allowed to authorize one subscription
	authorizeTimeout = 5 * time.Second
)

// Client actions.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionPing        = "ping"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins (we validate the token)
	},
}

// ChannelAuthorizer decides whether an actor may join a channel.
// Satisfied by *service.OrderService.
type ChannelAuthorizer interface {
	AuthorizeChannel(ctx context.Context, actor *auth.Actor, channel string) error
}

// inbound is a control message sent by the client.
type inbound struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

// outbound is a reply to a control message.
type outbound struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Client represents a single WebSocket connection
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	actor   *auth.Actor
	authz   ChannelAuthorizer
	limiter *rate.Limiter
	send    chan []byte
}

// ReadPump reads control messages until the connection fails. The
// application runs ReadPump in a per-connection goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.leaveAll(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}
		c.handle(data)
	}
}

// handle processes one control message and queues the reply.
func (c *Client) handle(data []byte) {
	if !c.limiter.Allow() {
		c.replyError("", "rate limit exceeded")
		return
	}

	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		c.replyError("", "invalid message")
		return
	}

	switch msg.Action {
	case ActionSubscribe:
		ctx, cancel := context.WithTimeout(context.Background(), authorizeTimeout)
		err := c.authz.AuthorizeChannel(ctx, c.actor, msg.Channel)
		cancel()
		if err != nil {
			c.replyError(msg.Channel, err.Error())
			return
		}
		c.hub.changeSubscription(subscription{client: c, channel: msg.Channel, join: true})
		c.replyJSON(outbound{Type: "subscribed", Channel: msg.Channel})

	case ActionUnsubscribe:
		c.hub.changeSubscription(subscription{client: c, channel: msg.Channel})
		c.replyJSON(outbound{Type: "unsubscribed", Channel: msg.Channel})

	case ActionPing:
		c.replyJSON(outbound{Type: "pong"})

	default:
		c.replyError(msg.Channel, "unknown action")
	}
}

func (c *Client) replyError(channel, message string) {
	c.replyJSON(outbound{Type: "error", Channel: channel, Payload: map[string]string{"message": message}})
}

func (c *Client) replyJSON(msg outbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("WARN: ws marshal reply: %v", err)
		return
	}
	c.hub.reply(c, data)
}

// WritePump pumps messages from the hub to the WebSocket connection
// The application runs WritePump in a per-connection goroutine
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One envelope per frame so clients can parse each message as JSON
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Handler upgrades authenticated requests to event subscriptions.
type Handler struct {
	hub   *Hub
	idp   middleware.Identifier
	authz ChannelAuthorizer
	limit rate.Limit
	burst int
}

// NewHandler returns a Handler. limit and burst bound how many control
// messages a single connection may send.
func NewHandler(hub *Hub, idp middleware.Identifier, authz ChannelAuthorizer, limit rate.Limit, burst int) *Handler {
	return &Handler{hub: hub, idp: idp, authz: authz, limit: limit, burst: burst}
}

// ServeWS handles WebSocket requests from clients.
// Endpoint: WS /ws?token=JWT[&channel=kitchen:<restaurant_id>...]
// The token may also be sent as an Authorization bearer header.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	// 1. Extract token from query param or header
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = middleware.BearerToken(r.Header.Get("Authorization"))
	}
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	// 2. Resolve the caller
	actor, err := h.idp.Resolve(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	// 3. Authorize channels requested up front
	initial := r.URL.Query()["channel"]
	for _, ch := range initial {
		if err := h.authz.AuthorizeChannel(r.Context(), actor, ch); err != nil {
			http.Error(w, "channel "+ch+": "+err.Error(), http.StatusForbidden)
			return
		}
	}

	// 4. Upgrade to WebSocket
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	// 5. Create client and register with hub
	client := &Client{
		hub:     h.hub,
		conn:    conn,
		actor:   actor,
		authz:   h.authz,
		limiter: rate.NewLimiter(h.limit, h.burst),
		send:    make(chan []byte, 256),
	}
	if !h.hub.join(client) {
		conn.Close()
		return
	}
	for _, ch := range initial {
		h.hub.changeSubscription(subscription{client: client, channel: ch, join: true})
	}

	// 6. Start pumps in separate goroutines
	go client.WritePump()
	go client.ReadPump()
}
