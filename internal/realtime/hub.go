// AngelaMos | 2026
// hub.go

package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/carterperez-dev/community-api/internal/metrics"
)

// InboundHandler processes one client frame of a registered type.
type InboundHandler func(ctx context.Context, c *Conn, msg Message) error

type Stats struct {
	Connections int `json:"connections"`
	Users       int `json:"users"`
}

// Hub tracks the open connections of each user on this instance and routes
// inbound frames to handlers registered by type.
type Hub struct {
	mu       sync.RWMutex
	conns    map[string]map[*Conn]struct{}
	handlers map[string]InboundHandler
	logger   *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		conns:    make(map[string]map[*Conn]struct{}),
		handlers: make(map[string]InboundHandler),
		logger:   logger.With("component", "realtime_hub"),
	}
}

// Handle registers fn for inbound frames of typ, replacing any previous one.
func (h *Hub) Handle(typ string, fn InboundHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[typ] = fn
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	set, ok := h.conns[c.userID]
	if !ok {
		set = make(map[*Conn]struct{})
		h.conns[c.userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	metrics.RealtimeConnections.Inc()
	h.logger.Debug("connection registered", "user_id", c.userID, "conn_id", c.id)
}

func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	set, ok := h.conns[c.userID]
	if ok {
		if _, present := set[c]; !present {
			ok = false
		}
		delete(set, c)
		if len(set) == 0 {
			delete(h.conns, c.userID)
		}
	}
	h.mu.Unlock()

	if ok {
		metrics.RealtimeConnections.Dec()
		h.logger.Debug("connection released", "user_id", c.userID, "conn_id", c.id)
	}
}

// SendToUser enqueues msg on every open connection of userID and returns
// how many accepted it. Zero means the user is offline here or every buffer
// was full; callers treat that as a silent miss.
func (h *Hub) SendToUser(userID string, msg Message) int {
	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.conns[userID]))
	for c := range h.conns[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		metrics.RealtimeDropped.WithLabelValues("offline").Inc()
		return 0
	}

	delivered := 0
	for _, c := range targets {
		if c.Send(msg) {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID]) > 0
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := Stats{Users: len(h.conns)}
	for _, set := range h.conns {
		stats.Connections += len(set)
	}
	return stats
}

// Shutdown closes every open connection with a normal closure.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	all := make([]*Conn, 0)
	for _, set := range h.conns {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		c.Close()
	}
}

func (h *Hub) dispatch(ctx context.Context, c *Conn, msg Message) {
	metrics.RealtimeMessages.WithLabelValues("in", msg.Type).Inc()

	if msg.Type == TypePing {
		c.Send(Message{Type: TypePong})
		return
	}

	h.mu.RLock()
	fn, ok := h.handlers[msg.Type]
	h.mu.RUnlock()

	if !ok {
		h.logger.Debug("ignoring unknown message type",
			"type", msg.Type,
			"user_id", c.userID,
		)
		return
	}

	if err := fn(ctx, c, msg); err != nil {
		h.logger.Warn("inbound handler failed",
			"type", msg.Type,
			"user_id", c.userID,
			"error", err,
		)
		c.SendError(err)
	}
}

// Deliver is the Bus forwarder callback.
func (h *Hub) Deliver(env Envelope) {
	h.SendToUser(env.UserID, env.Message)
}
