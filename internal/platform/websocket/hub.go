// Package websocket provides the real-time notification hub. It implements a
// hub-and-spoke pattern where each connection is subscribed to a set of
// channels derived from the caller's identity and role, and events published
// for a channel fan out to every connection on it.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicq/clinicq/internal/platform/auth"
)

// Channel names. A doctor's connections receive every change to that
// doctor's queue, a patient's connections receive changes affecting that
// patient, and admin connections receive everything.
const AdminChannel = "admin:*"

func DoctorChannel(doctorID string) string { return "doctor:" + doctorID }

func PatientChannel(patientID string) string { return "patient:" + patientID }

// Event is a real-time notification delivered to subscribers. Payloads are
// invalidation hints: receivers re-fetch authoritative state rather than
// applying the event as a delta, so missed events are tolerated.
type Event struct {
	Type      string          `json:"type"`
	Channels  []string        `json:"-"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// EventPublisher is the interface the mutation service publishes through.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a single WebSocket connection.
type Client struct {
	ID       string
	Channels []string
	Send     chan []byte
	hub      *Hub
	conn     Conn
}

// Hub is the central connection registry. All operations are thread-safe via
// sync.RWMutex; the registry is read on every publish and written only on
// connect/disconnect.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // channel -> set of clients
	all     map[*Client]struct{}
}

// NewHub creates a new Hub ready to manage WebSocket clients.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
	}
}

// Register adds a client to the hub and subscribes it to its channels.
// Registering an already-registered client is a no-op.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; ok {
		return
	}
	h.all[client] = struct{}{}

	for _, ch := range client.Channels {
		if h.clients[ch] == nil {
			h.clients[ch] = make(map[*Client]struct{})
		}
		h.clients[ch][client] = struct{}{}
	}
}

// Unregister removes a client from the hub and all channel subscriptions and
// closes the client's Send channel. Unregistering twice is a no-op.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}

	for _, ch := range client.Channels {
		if subscribers, ok := h.clients[ch]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.clients, ch)
			}
		}
	}

	delete(h.all, client)
	close(client.Send)
}

// Publish implements EventPublisher. The event is delivered to every
// connection on every channel it names, once per connection even when a
// connection subscribes to several of the named channels. Delivery is
// best-effort: a connection whose send buffer is full is skipped, never
// blocked on; within one connection events arrive in publish order.
func (h *Hub) Publish(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[*Client]struct{})
	for _, ch := range event.Channels {
		for client := range h.clients[ch] {
			if _, dup := seen[client]; dup {
				continue
			}
			seen[client] = struct{}{}
			select {
			case client.Send <- data:
			default:
				// Client buffer full; skip. The client re-syncs on its
				// next event or reconnect.
			}
		}
	}
	return nil
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// ChannelCount returns the number of clients subscribed to a channel.
func (h *Hub) ChannelCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[channel])
}

// ---------------------------------------------------------------------------
// Handler: Echo HTTP handler for WebSocket connections
// ---------------------------------------------------------------------------

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// Handler upgrades HTTP connections to WebSocket and registers them with the
// hub under the channels their authenticated role grants.
type Handler struct {
	hub    *Hub
	logger zerolog.Logger
}

// NewHandler creates a new handler bound to the given Hub.
func NewHandler(hub *Hub, logger zerolog.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

// RegisterRoutes registers the WebSocket endpoint on the provided Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws", h.HandleConnect)
}

// ChannelsForIdentity maps an authenticated identity to the channels it may
// subscribe to. Identity is never taken from the client's request payload.
func ChannelsForIdentity(userID, role string) []string {
	switch role {
	case auth.RolePatient:
		return []string{PatientChannel(userID)}
	case auth.RoleDoctor:
		return []string{DoctorChannel(userID)}
	case auth.RoleAdmin:
		return []string{AdminChannel}
	default:
		return nil
	}
}

// HandleConnect upgrades the connection, derives the caller's channels from
// its authenticated identity, and starts the read/write pumps.
func (h *Handler) HandleConnect(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.UserIDFromContext(ctx)
	role := auth.RoleFromContext(ctx)

	channels := ChannelsForIdentity(userID, role)
	if len(channels) == 0 {
		return echo.NewHTTPError(http.StatusForbidden, "role has no subscription channels")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		ID:       uuid.New().String(),
		Channels: channels,
		Send:     make(chan []byte, 256),
		hub:      h.hub,
		conn:     &gorillaConnAdapter{ws},
	}

	h.hub.Register(client)
	h.logger.Debug().
		Str("client_id", client.ID).
		Strs("channels", channels).
		Msg("websocket client connected")

	go h.writePump(client)
	go h.readPump(client)

	return nil
}

// readPump drains inbound messages and unregisters the client when the
// connection drops. Inbound payloads are ignored: subscriptions are fixed by
// role at connect time.
func (h *Handler) readPump(client *Client) {
	defer func() {
		h.hub.Unregister(client)
		client.conn.Close()
	}()

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump writes messages from the Send channel to the connection.
func (h *Handler) writePump(client *Client) {
	defer client.conn.Close()

	for message := range client.Send {
		if err := client.conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			break
		}
	}
}

// gorillaConnAdapter wraps a gorilla/websocket.Conn to satisfy the Conn interface.
type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
