package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pspwatch/pspwatch/server/internal/events"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins; callers should apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SummaryFunc builds the payload of the periodic summary event.
type SummaryFunc func(ctx context.Context) (any, error)

// Connected is the payload of the event sent to a client on connect.
type Connected struct {
	ClientID string `json:"client_id"`
	Clients  int    `json:"clients"`
}

// Hub manages WebSocket client connections and fans out events to all of
// them.
type Hub struct {
	bus      events.Bus
	interval time.Duration
	summary  SummaryFunc

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// client represents one connected WebSocket client.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub relaying events from bus and broadcasting summary every
// interval. summary may be nil to disable periodic summaries.
func New(bus events.Bus, interval time.Duration, summary SummaryFunc) *Hub {
	return &Hub{
		bus:      bus,
		interval: interval,
		summary:  summary,
		clients:  make(map[*client]struct{}),
	}
}

// Run relays bus events and broadcasts summaries until ctx is cancelled, then
// closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	sub, unsubscribe := h.bus.Subscribe(ctx)
	defer unsubscribe()

	var tick <-chan time.Time
	if h.summary != nil {
		t := time.NewTicker(h.interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case e, ok := <-sub:
			if !ok {
				// Bus closed; keep serving summaries.
				sub = nil
				continue
			}
			h.broadcastEvent(e)

		case <-tick:
			h.broadcastSummary(ctx)
		}
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	// Queued before register so it precedes any broadcast.
	if data, err := encode(events.TypeConnected, Connected{ClientID: c.id, Clients: h.Count() + 1}); err == nil {
		c.send <- data
	}
	if !h.register(c) {
		conn.Close()
		return
	}
	defer h.unregister(c)

	go c.writePump()
	c.readPump() // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func encode(typ events.Type, data any) ([]byte, error) {
	e, err := events.New(typ, data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

func (h *Hub) broadcastSummary(ctx context.Context) {
	if h.Count() == 0 {
		return
	}
	payload, err := h.summary(ctx)
	if err != nil {
		slog.Error("ws: build summary failed", "err", err)
		return
	}
	data, err := encode(events.TypeSummary, payload)
	if err != nil {
		slog.Error("ws: encode summary failed", "err", err)
		return
	}
	h.broadcast(data)
}

func (h *Hub) broadcastEvent(e events.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("ws: encode event failed", "type", e.Type, "err", err)
		return
	}
	h.broadcast(data)
}

// broadcast queues data for every client. Clients whose outgoing buffer is
// full are disconnected.
func (h *Hub) broadcast(data []byte) {
	var slow []*client

	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		slog.Debug("ws: disconnecting slow client", "client", c.id)
		h.unregister(c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the connection to process control messages (pong,
// close) and detect disconnects. Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
