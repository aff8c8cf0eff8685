package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Outbound messages queued before Publish starts dropping.
	broadcastBuffer = 256
)

const (
	// EventStartGame is the only event accepted from observers.
	EventStartGame = "start_game"

	eventRoster = "update_boards"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The UI is served from the same host but may be reached through a tunnel.
		return true
	},
}

// Message is the envelope for every frame in both directions.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Client represents a WebSocket client
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains the set of connected observers and broadcasts messages to
// all of them.
type Hub struct {
	clients map[*Client]bool

	// Encoded messages waiting to be fanned out.
	broadcast chan []byte

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	roster  func() map[string]string
	onStart func(ctx context.Context) error
	log     zerolog.Logger
	count   atomic.Int64
}

// Option configures a Hub.
type Option func(*Hub)

// WithRoster sets the function that supplies the board roster sent to each
// newly connected observer.
func WithRoster(fn func() map[string]string) Option {
	return func(h *Hub) {
		h.roster = fn
	}
}

// WithStartHandler sets the function called when an observer sends
// start_game.
func WithStartHandler(fn func(ctx context.Context) error) Option {
	return func(h *Hub) {
		h.onStart = fn
	}
}

// WithLogger sets the hub logger.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Hub) {
		h.log = l
	}
}

// NewHub creates a new WebSocket hub
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log.Logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With().Str("component", "websocket").Logger()
	return h
}

// SetStartHandler replaces the start_game handler. It must be called before
// the hub starts serving connections.
func (h *Hub) SetStartHandler(fn func(ctx context.Context) error) {
	h.onStart = fn
}

// SetRoster replaces the roster function. It must be called before the hub
// starts serving connections.
func (h *Hub) SetRoster(fn func() map[string]string) {
	h.roster = fn
}

// Run starts the hub's event loop. It returns when ctx is done, after
// closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case data := <-h.broadcast:
			h.broadcastMessage(data)

		case <-ctx.Done():
			for client := range h.clients {
				h.unregisterClient(client)
			}
			return
		}
	}
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// Publish queues an event for every connected observer. It never blocks: if
// the queue is full the event is dropped.
func (h *Hub) Publish(topic string, payload any) {
	data, err := encode(topic, payload)
	if err != nil {
		h.log.Error().Err(err).Str("event", topic).Msg("failed to marshal broadcast message")
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.log.Warn().Str("event", topic).Msg("broadcast queue full, dropping event")
	}
}

// ClientCount returns the number of connected observers.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

func encode(event string, data any) ([]byte, error) {
	return json.Marshal(&Message{Event: event, Data: data})
}

// registerClient adds a client and sends it the current roster.
func (h *Hub) registerClient(client *Client) {
	h.clients[client] = true
	h.count.Store(int64(len(h.clients)))

	if h.roster != nil {
		if data, err := encode(eventRoster, h.roster()); err == nil {
			client.send <- data
		}
	}

	h.log.Info().Int("clients", len(h.clients)).Msg("observer connected")
}

// unregisterClient removes a client
func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.count.Store(int64(len(h.clients)))

		h.log.Info().Int("clients", len(h.clients)).Msg("observer disconnected")
	}
}

// broadcastMessage sends an encoded message to every client
func (h *Hub) broadcastMessage(data []byte) {
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// Client's send channel is full, drop it
			h.unregisterClient(client)
		}
	}
}

// handle acts on one inbound frame.
func (c *Client) handle(raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.hub.log.Debug().Err(err).Msg("ignoring malformed observer message")
		return
	}

	switch msg.Event {
	case EventStartGame:
		c.hub.log.Info().Msg("start game requested by observer")
		if c.hub.onStart == nil {
			return
		}
		if err := c.hub.onStart(context.Background()); err != nil {
			c.hub.log.Info().Err(err).Msg("start game refused")
		}
	default:
		c.hub.log.Debug().Str("event", msg.Event).Msg("ignoring observer event")
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
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
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn().Err(err).Msg("websocket error")
			}
			break
		}
		c.handle(raw)
	}
}

// writePump pumps messages from the hub to the WebSocket connection. Each
// event is written as its own frame.
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
