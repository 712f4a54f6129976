// Package server manages individual WebSocket clients, handling the read
// loop, synchronous writes from the hub, and lifecycle control for each
// connection.
package server

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/castrelay/castrelay/internal/logging"
)

// Conn is the subset of *websocket.Conn a Client needs. Tests substitute
// their own implementations to simulate broken connections.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	Close() error
}

// Client represents one connected peer. Its identity is the open connection;
// nothing about it is persisted. The read loop publishes every received frame
// to the hub verbatim, and the hub's distribution loop calls write directly.
// There is no per-client outbound queue: a write failure is detected
// synchronously by the distribution loop and treated as a disconnect.
type Client struct {
	id             string
	conn           Conn
	hub            *Hub
	addr           string
	logger         *slog.Logger
	limiter        *messageLimiter
	idleTimeout    time.Duration
	writeTimeout   time.Duration
	maxMessageSize int64
	closeOnce      sync.Once
}

// NewClient creates a Client for an upgraded connection. The configuration
// decides the optional hardening knobs: read limit, idle timeout, and
// per-connection rate limiting, all disabled by default.
func NewClient(conn Conn, hub *Hub, addr string, cfg Config) *Client {
	if conn != nil && cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	id := uuid.NewString()
	return &Client{
		id:             id,
		conn:           conn,
		hub:            hub,
		addr:           addr,
		logger:         logging.WithClient(slog.Default(), id, addr),
		limiter:        newMessageLimiter(cfg.RatePerSecond, cfg.RateBurst),
		idleTimeout:    cfg.IdleTimeout,
		writeTimeout:   cfg.WriteTimeout,
		maxMessageSize: cfg.MaxMessageSize,
	}
}

// ID returns the client's connection-scoped identifier.
func (c *Client) ID() string {
	return c.id
}

// Addr returns the remote address the client connected from.
func (c *Client) Addr() string {
	return c.addr
}

// Close closes the underlying connection. Safe to call more than once; only
// the first call has any effect.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if c.conn == nil {
			return
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Warn("error closing connection", "error", err)
		}
	})
}

// readLoop blocks on the connection and publishes each received frame to the
// hub untouched. It exits on the first read error, which covers peer close,
// protocol errors, and the idle timeout when one is configured.
func (c *Client) readLoop() {
	defer c.hub.registry.Remove(c)

	for {
		if c.idleTimeout > 0 {
			if err := c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout)); err != nil {
				c.logger.Warn("error setting read deadline", "error", err)
				return
			}
		}

		_, message, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if c.limiter != nil && !c.limiter.allow() {
			c.logger.Warn("rate limit exceeded, discarding message")
			continue
		}

		c.hub.Publish(message)
	}
}

// write delivers one frame to the peer. Called only by the hub's distribution
// loop, so there is never more than one concurrent writer per connection.
func (c *Client) write(message []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// logReadError classifies a read failure. Every read error terminates the
// connection; classification only decides how loudly it is logged.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn("message exceeded maximum size", "max_message_size", c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.logger.Debug("client disconnected", "error", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.logger.Debug("connection closed", "error", err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.logger.Warn("unexpected close", "error", err)
	default:
		c.logger.Warn("read error", "error", err)
	}
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
