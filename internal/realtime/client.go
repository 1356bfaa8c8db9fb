// AngelaMos | 2026
// client.go

package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

var (
	ErrReconnectExhausted = errors.New("realtime: reconnect attempts exhausted")
	ErrNotConnected       = errors.New("realtime: not connected")
)

type ClientConfig struct {
	URL             string
	Token           string
	MaxAttempts     uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Dialer          *websocket.Dialer
}

func (c *ClientConfig) applyDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 500 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 10 * time.Second
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
}

// Client keeps a connection to the relay open. An abnormal closure or a
// failed dial is retried with exponential backoff; MaxAttempts consecutive
// failures end Run with ErrReconnectExhausted. A normal closure ends Run
// with a nil error.
type Client struct {
	cfg       ClientConfig
	onMessage func(Message)
	logger    *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewClient(
	cfg ClientConfig,
	onMessage func(Message),
	logger *slog.Logger,
) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:       cfg,
		onMessage: onMessage,
		logger:    logger.With("component", "realtime_client"),
	}
}

func (c *Client) Run(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.InitialInterval
	policy.MaxInterval = c.cfg.MaxInterval
	policy.MaxElapsedTime = 0

	retry := backoff.WithContext(
		backoff.WithMaxRetries(policy, c.cfg.MaxAttempts),
		ctx,
	)

	for {
		connected, err := c.session(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if connected {
			retry.Reset()
		}

		wait := retry.NextBackOff()
		if wait == backoff.Stop {
			c.logger.Warn("giving up on realtime connection", "error", err)
			return ErrReconnectExhausted
		}

		c.logger.Debug("reconnecting", "error", err, "wait", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Send writes msg on the current connection.
func (c *Client) Send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close ends the session with a normal closure, which stops Run.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	return c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// session dials once and reads until the connection ends. It returns nil
// only for a normal closure.
func (c *Client) session(ctx context.Context) (bool, error) {
	target, err := c.dialURL()
	if err != nil {
		return false, err
	}

	conn, resp, err := c.cfg.Dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close() //nolint:errcheck // handshake body unused
	}
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close() //nolint:errcheck // unblocks the read loop
	})

	defer func() {
		stop()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close() //nolint:errcheck // session over
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return true, nil
			}
			return true, err
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug("ignoring malformed frame", "error", err)
			continue
		}

		if c.onMessage != nil {
			c.onMessage(msg)
		}
	}
}

func (c *Client) dialURL() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if c.cfg.Token != "" {
		q := u.Query()
		q.Set("token", c.cfg.Token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
