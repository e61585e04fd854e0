package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/wricardo/tictactoe-server/logging"
	"github.com/wricardo/tictactoe-server/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Outbound frames buffered per client before it is dropped.
	sendBufferSize = 64

	defaultEventsPerSecond = 20
	defaultEventBurst      = 40
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventHandler receives the decoded events of every connection. Calls for
// one connection are made sequentially from that connection's read
// goroutine, in arrival order.
type EventHandler interface {
	HandleEvent(ctx context.Context, connID string, msg Message)
	HandleDisconnect(ctx context.Context, connID string)
}

// Client represents a WebSocket client
type Client struct {
	id      string
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter

	// rooms is owned by the hub event loop.
	rooms map[string]bool
}

// ID returns the opaque connection id.
func (c *Client) ID() string {
	return c.id
}

type roomRequest struct {
	connID string
	room   string
}

// delivery is an encoded frame addressed either to one connection or to a
// room, optionally skipping one member.
type delivery struct {
	room    string
	to      string
	exclude string
	data    []byte
}

// Hub maintains the set of active clients and their rooms. Its event loop is
// the only goroutine that touches membership or writes to client send
// channels.
type Hub struct {
	clients map[string]*Client
	rooms   map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	join       chan roomRequest
	outbound   chan delivery

	// Closed when Run returns; sends after that are dropped.
	done chan struct{}

	eventsPerSecond rate.Limit
	eventBurst      int
	metrics         *metrics.Metrics
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithRateLimit sets the per-connection inbound event rate.
func WithRateLimit(perSecond float64, burst int) HubOption {
	return func(h *Hub) {
		h.eventsPerSecond = rate.Limit(perSecond)
		h.eventBurst = burst
	}
}

// WithMetrics records connection counts.
func WithMetrics(m *metrics.Metrics) HubOption {
	return func(h *Hub) {
		h.metrics = m
	}
}

// NewHub creates a new WebSocket hub
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients:         make(map[string]*Client),
		rooms:           make(map[string]map[*Client]bool),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		join:            make(chan roomRequest),
		outbound:        make(chan delivery),
		done:            make(chan struct{}),
		eventsPerSecond: defaultEventsPerSecond,
		eventBurst:      defaultEventBurst,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run starts the hub's event loop and blocks until ctx is cancelled, at
// which point every client is closed.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, client := range h.clients {
				h.unregisterClient(client)
			}
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case req := <-h.join:
			h.joinRoom(req)

		case d := <-h.outbound:
			h.deliver(d)
		}
	}
}

// ServeWS upgrades the request and attaches the connection to the hub.
// Events read from the connection are passed to events.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, events EventHandler) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "WebSocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		id:      uuid.NewString(),
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		limiter: rate.NewLimiter(h.eventsPerSecond, h.eventBurst),
		rooms:   make(map[string]bool),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// The request context ends when this handler returns.
	ctx := context.WithoutCancel(r.Context())

	go client.writePump()
	go client.readPump(ctx, events)
}

// Handler returns an http.Handler that serves WebSocket connections for events.
func (h *Hub) Handler(events EventHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r, events)
	})
}

// Join adds the connection to room.
func (h *Hub) Join(connID, room string) {
	select {
	case h.join <- roomRequest{connID: connID, room: room}:
	case <-h.done:
	}
}

// EmitToRoom sends an event to every member of room.
func (h *Hub) EmitToRoom(room, event string, data any) {
	h.emit(delivery{room: room}, event, data)
}

// EmitToOthers sends an event to every member of room except connID.
func (h *Hub) EmitToOthers(room, connID, event string, data any) {
	h.emit(delivery{room: room, exclude: connID}, event, data)
}

// EmitTo sends an event to a single connection.
func (h *Hub) EmitTo(connID, event string, data any) {
	h.emit(delivery{to: connID}, event, data)
}

func (h *Hub) emit(d delivery, event string, data any) {
	frame, err := encodeMessage(event, data)
	if err != nil {
		slog.Error("Failed to marshal WebSocket message", "event", event, "error", err)
		return
	}
	d.data = frame

	select {
	case h.outbound <- d:
	case <-h.done:
	}
}

// registerClient adds a client to the hub
func (h *Hub) registerClient(client *Client) {
	h.clients[client.id] = client
	h.metrics.ConnectionOpened()

	logging.WithConn(client.id).Debug("Client connected", "total_clients", len(h.clients))
}

// unregisterClient removes a client from the hub and all its rooms. It is a
// no-op for clients already removed.
func (h *Hub) unregisterClient(client *Client) {
	if h.clients[client.id] != client {
		return
	}
	delete(h.clients, client.id)

	for room := range client.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			// Clean up empty rooms
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	client.rooms = nil
	close(client.send)
	h.metrics.ConnectionClosed()

	logging.WithConn(client.id).Debug("Client disconnected", "remaining_clients", len(h.clients))
}

func (h *Hub) joinRoom(req roomRequest) {
	client, ok := h.clients[req.connID]
	if !ok {
		return
	}
	if h.rooms[req.room] == nil {
		h.rooms[req.room] = make(map[*Client]bool)
	}
	h.rooms[req.room][client] = true
	client.rooms[req.room] = true
}

func (h *Hub) deliver(d delivery) {
	if d.to != "" {
		if client, ok := h.clients[d.to]; ok {
			h.sendTo(client, d.data)
		}
		return
	}

	for client := range h.rooms[d.room] {
		if client.id == d.exclude {
			continue
		}
		h.sendTo(client, d.data)
	}
}

func (h *Hub) sendTo(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		// Client's send buffer is full, drop it
		logging.WithConn(client.id).Warn("Dropping slow WebSocket client")
		h.unregisterClient(client)
	}
}

// readPump decodes frames from the connection and hands them to events.
func (c *Client) readPump(ctx context.Context, events EventHandler) {
	log := logging.WithConn(c.id)
	defer func() {
		events.HandleDisconnect(ctx, c.id)
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
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
				log.WarnContext(ctx, "WebSocket error", "error", err)
			}
			return
		}

		if !c.limiter.Allow() {
			c.hub.EmitTo(c.id, EventError, MsgTooManyRequests)
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Event == "" {
			c.hub.EmitTo(c.id, EventError, MsgInvalidPayload)
			continue
		}

		events.HandleEvent(ctx, c.id, msg)
	}
}

// writePump pumps messages from the hub to the WebSocket connection, one
// frame per message.
func (c *Client) writePump() {
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
