// AngelaMos | 2026
// bus.go

package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Bus carries envelopes to the hub of every instance. A single-process
// deployment uses LocalBus; RedisBus fans out over one pub/sub channel.
type Bus interface {
	Publish(ctx context.Context, env Envelope) error
	StartForwarder(ctx context.Context, onMsg func(Envelope)) error
	Close() error
}

// Publisher is the outbound seam services depend on.
type Publisher interface {
	Publish(ctx context.Context, userID string, msg Message) error
}

type busPublisher struct {
	bus Bus
}

func NewPublisher(bus Bus) Publisher {
	return &busPublisher{bus: bus}
}

func (p *busPublisher) Publish(
	ctx context.Context,
	userID string,
	msg Message,
) error {
	return p.bus.Publish(ctx, Envelope{UserID: userID, Message: msg})
}

var ErrBusNotStarted = errors.New("realtime bus forwarder not started")

type LocalBus struct {
	mu    sync.RWMutex
	onMsg func(Envelope)
}

func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

func (b *LocalBus) Publish(_ context.Context, env Envelope) error {
	b.mu.RLock()
	onMsg := b.onMsg
	b.mu.RUnlock()

	if onMsg == nil {
		return ErrBusNotStarted
	}
	onMsg(env)
	return nil
}

func (b *LocalBus) StartForwarder(_ context.Context, onMsg func(Envelope)) error {
	if onMsg == nil {
		return fmt.Errorf("start forwarder: callback required")
	}
	b.mu.Lock()
	b.onMsg = onMsg
	b.mu.Unlock()
	return nil
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	b.onMsg = nil
	b.mu.Unlock()
	return nil
}

// RedisBus shares the application's Redis client; Close releases only the
// subscription.
type RedisBus struct {
	rdb     *redis.Client
	channel string
	logger  *slog.Logger

	mu  sync.Mutex
	sub *redis.PubSub
}

func NewRedisBus(rdb *redis.Client, channel string, logger *slog.Logger) *RedisBus {
	return &RedisBus{
		rdb:     rdb,
		channel: channel,
		logger:  logger.With("component", "realtime_redis_bus"),
	}
}

func (b *RedisBus) Publish(ctx context.Context, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBus) StartForwarder(ctx context.Context, onMsg func(Envelope)) error {
	if onMsg == nil {
		return fmt.Errorf("start forwarder: callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close() //nolint:errcheck // subscription never started
		return fmt.Errorf("redis subscribe: %w", err)
	}

	b.mu.Lock()
	b.sub = sub
	b.mu.Unlock()

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close() //nolint:errcheck // shutting down
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					b.logger.Warn("bad realtime payload", "error", err)
					continue
				}
				onMsg(env)
			}
		}
	}()

	return nil
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sub == nil {
		return nil
	}
	err := b.sub.Close()
	b.sub = nil
	return err
}
