package chathub

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"globalchat/backend/internal/config"
)

// WebSocketClient implements Client over a gorilla websocket connection.
type WebSocketClient struct {
	id   string
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool

	maxMessageSize int64
	log            *slog.Logger
}

// NewWebSocketClient wraps conn with a send buffer of bufferSize events.
func NewWebSocketClient(conn *websocket.Conn, bufferSize int, maxMessageSize int64, log *slog.Logger) *WebSocketClient {
	return &WebSocketClient{
		id:             uuid.NewString(),
		conn:           conn,
		send:           make(chan []byte, bufferSize),
		maxMessageSize: maxMessageSize,
		log:            log,
	}
}

func (c *WebSocketClient) ID() string { return c.id }

func (c *WebSocketClient) Deliver(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		c.log.Warn("Send buffer full, dropping event", "conn", c.id)
		return false
	}
}

// Close closes the send channel, which stops writePump and with it the connection.
func (c *WebSocketClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Reject terminates a connection that failed admission.
func (c *WebSocketClient) Reject(reason string) {
	deadline := time.Now().Add(config.WriteWait)
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		c.log.Debug("Failed to send close frame", "conn", c.id, "error", err)
	}
	_ = c.conn.Close()
}

// Run starts the pumps for an admitted session.
func (c *WebSocketClient) Run(ctx context.Context, hub *ManagerService, s *Session) {
	go c.writePump()
	go c.readPump(ctx, hub, s)
}

func (c *WebSocketClient) readPump(ctx context.Context, hub *ManagerService, s *Session) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		hub.Disconnect(s)
		c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Warn("Read failed", "conn", c.id, "error", err)
			}
			return
		}

		if err := s.Handle(ctx, message); errors.Is(err, ErrSessionClosed) {
			return
		}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(config.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One event per frame; clients parse each frame as a single JSON object.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug("Write failed", "conn", c.id, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
