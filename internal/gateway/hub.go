package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordseek/internal/game"
)

// Hub manages WebSocket subscribers per room and implements game.Transport.
type Hub struct {
	// Connection pools organized by room
	rooms map[string]map[*Connection]bool
	mu    sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	handler Handler
	hmu     sync.RWMutex
}

// Client identifies the player behind a connection.
type Client struct {
	PlayerID string
	Name     string
}

// Handler receives text posted by a subscriber over its socket.
type Handler func(ctx context.Context, room string, from Client, text string)

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID     string
	Room   string
	Client Client
	Conn   *websocket.Conn
	send   chan []byte
	hub    *Hub

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

// Frame is the JSON document written to subscribers for every room message.
type Frame struct {
	Type    string    `json:"type"`
	Room    string    `json:"room"`
	Text    string    `json:"text"`
	HTML    bool      `json:"html,omitempty"`
	Mention string    `json:"mention,omitempty"`
	At      time.Time `json:"at"`
}

// inbound is what a client may write: {"text": "..."}. Plain text frames
// are accepted too.
type inbound struct {
	Text string `json:"text"`
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      64,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewHub creates a hub. Zero-valued config fields take defaults.
func NewHub(config ConnectionConfig) *Hub {
	d := DefaultConnectionConfig()
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = d.WriteTimeout
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = d.ReadTimeout
	}
	if config.PingInterval <= 0 {
		config.PingInterval = d.PingInterval
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = d.MaxMessageSize
	}
	if config.SendBuffer <= 0 {
		config.SendBuffer = d.SendBuffer
	}
	if config.CheckOrigin == nil {
		config.CheckOrigin = d.CheckOrigin
	}
	return &Hub{
		rooms: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
	}
}

// SetHandler installs the receiver of inbound socket text.
func (h *Hub) SetHandler(fn Handler) {
	h.hmu.Lock()
	defer h.hmu.Unlock()
	h.handler = fn
}

// Serve upgrades the request and subscribes the connection to room.
// It returns once the pumps are running.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, room string, client Client) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &Connection{
		ID:          uuid.New().String(),
		Room:        room,
		Client:      client,
		Conn:        conn,
		send:        make(chan []byte, h.config.SendBuffer),
		hub:         h,
		ConnectedAt: time.Now(),
	}
	h.register(c)

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.ID).
		Str("player", client.PlayerID).
		Str("room", room).
		Msg("WebSocket connection established")
	return nil
}

func (h *Hub) register(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[c.Room] == nil {
		h.rooms[c.Room] = make(map[*Connection]bool)
	}
	h.rooms[c.Room][c] = true

	log.Debug().
		Str("connection_id", c.ID).
		Str("room", c.Room).
		Int("total_connections", len(h.rooms[c.Room])).
		Msg("connection registered")
}

// unregister removes c and closes its send queue. Safe to call twice.
func (h *Hub) unregister(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.rooms[c.Room]
	if !ok || !conns[c] {
		return
	}
	delete(conns, c)
	close(c.send)
	if len(conns) == 0 {
		delete(h.rooms, c.Room)
	}
	log.Info().
		Str("connection_id", c.ID).
		Str("player", c.Client.PlayerID).
		Str("room", c.Room).
		Msg("connection unregistered")
}

// Send fans msg out to every subscriber of msg.Room. It never blocks:
// a subscriber whose queue is full is disconnected.
func (h *Hub) Send(_ context.Context, msg game.Message) error {
	data, err := json.Marshal(Frame{
		Type:    "message",
		Room:    msg.Room,
		Text:    msg.Text,
		HTML:    msg.Options.HTML,
		Mention: string(msg.Options.Mention),
		At:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	var slow []*Connection
	h.mu.RLock()
	for c := range h.rooms[msg.Room] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	n := len(h.rooms[msg.Room])
	h.mu.RUnlock()

	for _, c := range slow {
		log.Warn().
			Str("connection_id", c.ID).
			Str("player", c.Client.PlayerID).
			Msg("connection send buffer full, closing connection")
		h.unregister(c)
		_ = c.Conn.Close()
	}

	log.Debug().Str("room", msg.Room).Int("connections", n).Msg("message broadcasted")
	return nil
}

// Subscribers returns the number of connections in room.
func (h *Hub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Stats returns statistics about active connections.
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	counts := make(map[string]int, len(h.rooms))
	for room, conns := range h.rooms {
		total += len(conns)
		counts[room] = len(conns)
	}
	return map[string]interface{}{
		"total_connections": total,
		"active_rooms":      len(h.rooms),
		"room_connections":  counts,
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.RLock()
	var all []*Connection
	for _, conns := range h.rooms {
		for c := range conns {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		h.unregister(c)
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
		c.hub.unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump reads client text and hands it to the hub's handler.
func (c *Connection) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.hub.config.MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			return
		}
		c.handleClientMessage(message)
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	}
}

func (c *Connection) handleClientMessage(message []byte) {
	text := strings.TrimSpace(string(message))
	var in inbound
	if strings.HasPrefix(text, "{") {
		if err := json.Unmarshal(message, &in); err != nil {
			log.Debug().Err(err).Str("connection_id", c.ID).Msg("ignoring malformed client message")
			return
		}
		text = strings.TrimSpace(in.Text)
	}
	if text == "" {
		return
	}

	c.hub.hmu.RLock()
	fn := c.hub.handler
	c.hub.hmu.RUnlock()
	if fn == nil {
		return
	}
	fn(context.Background(), c.Room, c.Client, text)
}
