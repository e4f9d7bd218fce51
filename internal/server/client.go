package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

// client is one player's WebSocket connection to a match room.
type client struct {
	room     *room
	conn     *websocket.Conn
	send     chan []byte
	playerID string
	logger   *zap.Logger

	mu     sync.Mutex
	closed bool
}

func newClient(r *room, conn *websocket.Conn, playerID string, logger *zap.Logger) *client {
	return &client{
		room:     r,
		conn:     conn,
		send:     make(chan []byte, 64),
		playerID: playerID,
		logger:   logger.With(zap.String("player", playerID)),
	}
}

// enqueue serializes a message onto the send channel, dropping the client
// when its buffer is full. Messages enqueued after the client was dropped
// are discarded.
func (c *client) enqueue(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("marshaling server message", zap.Error(err))
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.send <- data:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		c.logger.Warn("send buffer full, dropping client")
		c.room.unregister(c)
	}
}

// closeSend closes the send channel exactly once. All closes go through
// here so a concurrent enqueue can never hit a closed channel.
func (c *client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump consumes client messages until the connection dies.
func (c *client) readPump() {
	defer func() {
		c.room.unregister(c)
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(ServerMessage{Type: "error", Error: "malformed message"})
			continue
		}

		switch msg.Type {
		case "command":
			if msg.Command == nil {
				c.enqueue(ServerMessage{Type: "error", Error: "command message without a command"})
				continue
			}
			c.room.handleCommand(c, *msg.Command)
		default:
			c.enqueue(ServerMessage{Type: "error", Error: "unknown message type " + msg.Type})
		}
	}
}

// writePump flushes the send channel and keeps the connection alive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
