package notification

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"noshow-service/internal/logging"
)

const (
	// DefaultMaxConnections caps live dashboard connections.
	DefaultMaxConnections = 10
	// DefaultSendQueueSize is how many frames a connection may lag behind before it is dropped.
	DefaultSendQueueSize = 64

	writeWait = 5 * time.Second
)

var (
	ErrConnectionClosed = errors.New("websocket connection closed")
	ErrSendQueueFull    = errors.New("websocket send queue full")
)

// Envelope is the frame pushed to websocket clients.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// client owns the only goroutine that writes data frames to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub manages the websocket connections of live dashboards.
// Broadcast never blocks on a client; a client that falls behind is dropped.
type Hub struct {
	connections    map[*websocket.Conn]*client
	mutex          sync.Mutex
	logger         *logging.Logger
	maxConnections int
	queueSize      int
}

// NewHub creates an empty hub with the default connection cap and send queue size.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		connections:    make(map[*websocket.Conn]*client),
		logger:         logger,
		maxConnections: DefaultMaxConnections,
		queueSize:      DefaultSendQueueSize,
	}
}

// AddConnection registers conn and starts its writer. It returns false when the hub is full.
func (h *Hub) AddConnection(conn *websocket.Conn) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if len(h.connections) >= h.maxConnections {
		h.logger.Warnf("Max websocket connections reached (%d)", h.maxConnections)
		return false
	}
	c := &client{conn: conn, send: make(chan []byte, h.queueSize)}
	h.connections[conn] = c
	go h.writeLoop(c)
	h.logger.Infof("Added websocket connection %s (total: %d)", conn.RemoteAddr(), len(h.connections))
	return true
}

// RemoveConnection drops conn and closes it.
func (h *Hub) RemoveConnection(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.drop(conn) {
		h.logger.Infof("Removed websocket connection %s (remaining: %d)", conn.RemoteAddr(), len(h.connections))
	}
}

// Len returns the number of live connections.
func (h *Hub) Len() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.connections)
}

// Send queues one event for a single connection, ordered with broadcasts.
func (h *Hub) Send(conn *websocket.Conn, event string, payload interface{}) error {
	msg, err := encode(event, payload)
	if err != nil {
		return err
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	c, ok := h.connections[conn]
	if !ok {
		return ErrConnectionClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		h.drop(conn)
		return ErrSendQueueFull
	}
}

// Broadcast queues one event for every connection. Connections whose queue is full are dropped.
func (h *Hub) Broadcast(event string, payload interface{}) {
	msg, err := encode(event, payload)
	if err != nil {
		h.logger.Errorf("Failed to encode %s event: %v", event, err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn, c := range h.connections {
		select {
		case c.send <- msg:
		default:
			h.logger.Warnf("Dropping slow websocket connection %s", conn.RemoteAddr())
			h.drop(conn)
		}
	}
}

// Close closes every connection.
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.connections {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		h.drop(conn)
	}
}

// drop must be called with the mutex held.
func (h *Hub) drop(conn *websocket.Conn) bool {
	c, ok := h.connections[conn]
	if !ok {
		return false
	}
	delete(h.connections, conn)
	close(c.send)
	_ = conn.Close()
	return true
}

func (h *Hub) writeLoop(c *client) {
	for msg := range c.send {
		err := c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err == nil {
			err = c.conn.WriteMessage(websocket.TextMessage, msg)
		}
		if err != nil {
			h.logger.Errorf("Failed to send websocket message to %s: %v", c.conn.RemoteAddr(), err)
			h.RemoveConnection(c.conn)
			// drain until the queue is closed
			for range c.send {
			}
			return
		}
	}
}

func encode(event string, payload interface{}) ([]byte, error) {
	msg, err := json.Marshal(Envelope{Type: event, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return msg, nil
}
