// AngelaMos | 2026
// conn.go

package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/carterperez-dev/community-api/internal/config"
	"github.com/carterperez-dev/community-api/internal/core"
	"github.com/carterperez-dev/community-api/internal/metrics"
)

type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Conn is one live socket bound to an authenticated user. Once closed it is
// never reopened; a reconnecting client gets a new Conn.
type Conn struct {
	id     string
	userID string
	ws     *websocket.Conn
	hub    *Hub
	cfg    config.RealtimeConfig
	logger *slog.Logger

	send      chan []byte
	done      chan struct{}
	state     atomic.Int32
	closeOnce sync.Once
}

func newConn(
	hub *Hub,
	ws *websocket.Conn,
	userID string,
	cfg config.RealtimeConfig,
) *Conn {
	c := &Conn{
		id:     uuid.New().String(),
		userID: userID,
		ws:     ws,
		hub:    hub,
		cfg:    cfg,
		send:   make(chan []byte, cfg.SendBuffer),
		done:   make(chan struct{}),
	}
	c.logger = hub.logger.With("conn_id", c.id, "user_id", userID)
	c.state.Store(int32(StateConnecting))
	return c
}

func (c *Conn) ID() string     { return c.id }
func (c *Conn) UserID() string { return c.userID }

func (c *Conn) State() State {
	return State(c.state.Load())
}

// Send enqueues msg without blocking. It reports false when the connection
// is closed or its buffer is full; the message is dropped in both cases.
func (c *Conn) Send(msg Message) bool {
	if c.State() == StateClosed {
		metrics.RealtimeDropped.WithLabelValues("closed").Inc()
		return false
	}

	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Warn("encode outbound message", "type", msg.Type, "error", err)
		return false
	}

	select {
	case <-c.done:
		metrics.RealtimeDropped.WithLabelValues("closed").Inc()
		return false
	case c.send <- data:
		metrics.RealtimeMessages.WithLabelValues("out", msg.Type).Inc()
		return true
	default:
		metrics.RealtimeDropped.WithLabelValues("buffer_full").Inc()
		c.logger.Warn("dropping message; send buffer full", "type", msg.Type)
		return false
	}
}

// SendError reports a failed inbound frame to the client. Only AppError
// messages are exposed.
func (c *Conn) SendError(err error) {
	text := "request failed"
	var appErr *core.AppError
	if errors.As(err, &appErr) {
		text = appErr.Message
	}

	msg, encErr := NewMessage(TypeError, ErrorPayload{Message: text})
	if encErr != nil {
		return
	}
	c.Send(msg)
}

func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.done)
		c.hub.unregister(c)
	})
}

// run registers the connection and pumps frames until either side closes.
// It blocks until the read side ends.
func (c *Conn) run(ctx context.Context) {
	c.state.Store(int32(StateOpen))
	c.hub.register(c)

	go c.writePump()
	c.readPump(ctx)
}

func (c *Conn) readPump(ctx context.Context) {
	defer c.Close()

	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout)) //nolint:errcheck // deadline on fresh conn
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
			) {
				c.logger.Debug("connection closed unexpectedly", "error", err)
			}
			return
		}

		_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout)) //nolint:errcheck // refreshed on next read

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			c.SendError(core.BadRequestError("malformed message"))
			continue
		}

		c.hub.dispatch(ctx, c, msg)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close() //nolint:errcheck // connection is being torn down
	}()

	for {
		select {
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			//nolint:errcheck // best-effort close frame
			_ = c.write(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			)
			return
		}
	}
}

func (c *Conn) write(messageType int, data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, data)
}
