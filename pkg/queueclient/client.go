// Package queueclient is the Go client for the queue service. It wraps the
// REST read path and the WebSocket push channel behind a typed event bus:
// callers register handlers, the client keeps the connection alive, and every
// push event or reconnect prompts a re-fetch of authoritative state.
package queueclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// QueueChanged mirrors the server's push payload. Events are invalidation
// hints: handlers should re-fetch state, never apply the event as a delta.
type QueueChanged struct {
	DoctorID  uuid.UUID `json:"doctor_id"`
	PatientID uuid.UUID `json:"patient_id"`
	EntryID   uuid.UUID `json:"entry_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Entry mirrors the server's queue entry representation.
type Entry struct {
	ID                   uuid.UUID `json:"id"`
	DoctorID             uuid.UUID `json:"doctor_id"`
	PatientID            uuid.UUID `json:"patient_id"`
	Status               string    `json:"status"`
	Priority             string    `json:"priority"`
	Position             int       `json:"position"`
	EstimatedWaitMinutes int       `json:"estimated_wait_minutes"`
	Notes                *string   `json:"notes,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// DoctorQueue mirrors the server's doctor queue view.
type DoctorQueue struct {
	DoctorID       uuid.UUID `json:"doctor_id"`
	InConsultation *Entry    `json:"in_consultation,omitempty"`
	Waiting        []*Entry  `json:"waiting"`
}

type pushEvent struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

const eventQueueChanged = "queue.changed"

// readConn is the subset of the WebSocket connection the listener needs.
// Abstracted so tests can drive the loop with scripted frames.
type readConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

type dialFunc func(ctx context.Context) (readConn, error)

// Client connects to one queue service as one authenticated identity. Safe
// for concurrent use.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	dial    dialFunc

	reconnectWait time.Duration

	mu             sync.Mutex
	changeHandlers []func(QueueChanged)
	resyncHandlers []func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithReconnectWait sets the pause between reconnect attempts.
func WithReconnectWait(d time.Duration) Option {
	return func(c *Client) { c.reconnectWait = d }
}

func withDialer(dial dialFunc) Option {
	return func(c *Client) { c.dial = dial }
}

// New creates a client for the service at baseURL (e.g.
// "http://localhost:8080") authenticating with the given bearer token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		token:         token,
		httpc:         &http.Client{Timeout: 15 * time.Second},
		reconnectWait: 2 * time.Second,
	}
	c.dial = c.dialWebSocket
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnQueueChanged registers a handler invoked for every queue change event.
// Handlers run on the listen goroutine and should hand work off quickly.
func (c *Client) OnQueueChanged(handler func(QueueChanged)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changeHandlers = append(c.changeHandlers, handler)
}

// OnResync registers a handler invoked after every successful connect,
// including reconnects. Missed events are not replayed, so this is where a
// caller re-fetches the state it cares about.
func (c *Client) OnResync(handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resyncHandlers = append(c.resyncHandlers, handler)
}

// Listen connects to the push channel and dispatches events until the
// context is cancelled. Dropped connections are re-dialed after a pause;
// each successful connect fires the resync handlers first.
func (c *Client) Listen(ctx context.Context) error {
	for {
		conn, err := c.dial(ctx)
		if err != nil {
			if !c.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}

		c.fireResync()
		c.readLoop(ctx, conn)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !c.sleep(ctx) {
			return ctx.Err()
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn readConn) {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var ev pushEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		if ev.Type != eventQueueChanged {
			continue
		}
		var changed QueueChanged
		if err := json.Unmarshal(ev.Data, &changed); err != nil {
			continue
		}
		c.fireChanged(changed)
	}
}

func (c *Client) fireChanged(ev QueueChanged) {
	c.mu.Lock()
	handlers := make([]func(QueueChanged), len(c.changeHandlers))
	copy(handlers, c.changeHandlers)
	c.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (c *Client) fireResync() {
	c.mu.Lock()
	handlers := make([]func(), len(c.resyncHandlers))
	copy(handlers, c.resyncHandlers)
	c.mu.Unlock()
	for _, h := range handlers {
		h()
	}
}

func (c *Client) sleep(ctx context.Context) bool {
	timer := time.NewTimer(c.reconnectWait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *Client) dialWebSocket(ctx context.Context) (readConn, error) {
	wsURL, err := url.Parse(c.baseURL + "/api/v1/ws")
	if err != nil {
		return nil, err
	}
	switch wsURL.Scheme {
	case "http":
		wsURL.Scheme = "ws"
	case "https":
		wsURL.Scheme = "wss"
	}
	q := wsURL.Query()
	q.Set("token", c.token)
	wsURL.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL.Host, err)
	}
	return conn, nil
}

// ---------------------------------------------------------------------------
// REST read path
// ---------------------------------------------------------------------------

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// DoctorQueue fetches the doctor's current queue view.
func (c *Client) DoctorQueue(ctx context.Context, doctorID uuid.UUID) (*DoctorQueue, error) {
	var view DoctorQueue
	if err := c.get(ctx, "/api/v1/queue/doctors/"+doctorID.String(), &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// PatientStatus fetches the patient's active entry.
func (c *Client) PatientStatus(ctx context.Context, patientID uuid.UUID) (*Entry, error) {
	var entry Entry
	if err := c.get(ctx, "/api/v1/queue/patients/"+patientID.String()+"/status", &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
