package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"dialer/internal/config"
	"dialer/internal/logging"
)

// DefaultChannel is the Redis channel used when none is configured.
const DefaultChannel = "dialer:assets"

// RedisBus publishes signals on a Redis pub/sub channel so that registries in
// other processes refresh too.
type RedisBus struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger

	mu     sync.Mutex
	subs   map[int]*redisSubscription
	next   int
	closed bool
}

type redisSubscription struct {
	pubsub *redis.PubSub
	done   chan struct{}
}

// NewRedisBus wraps an existing client.
func NewRedisBus(client *redis.Client, channel string, logger *slog.Logger) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBus{
		client:  client,
		channel: channel,
		logger:  logging.NewComponentLogger(logger, "asset-bus"),
		subs:    map[int]*redisSubscription{},
	}
}

// NewBusFromConfig returns a RedisBus when a Redis address is configured and
// a LocalBus otherwise.
func NewBusFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Bus, error) {
	if cfg == nil || cfg.Bus.RedisAddr == "" {
		return NewLocalBus(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Bus.RedisAddr,
		Password: cfg.Bus.RedisPassword,
		DB:       cfg.Bus.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Bus.RedisAddr, err)
	}
	return NewRedisBus(client, cfg.Bus.Channel, logger), nil
}

// Publish sends sig to every subscriber of the channel, including this one.
func (b *RedisBus) Publish(ctx context.Context, sig Signal) error {
	if sig.At.IsZero() {
		sig.At = time.Now().UTC()
	}
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", b.channel, err)
	}
	return nil
}

// Subscribe starts receiving signals for fn. Undecodable payloads are logged
// and skipped.
func (b *RedisBus) Subscribe(fn func(Signal)) (func(), error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, fmt.Errorf("redis bus closed")
	}
	b.mu.Unlock()

	ctx := context.Background()
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}
	sub := &redisSubscription{pubsub: pubsub, done: make(chan struct{})}

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	go func() {
		defer close(sub.done)
		for msg := range pubsub.Channel() {
			var sig Signal
			if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
				b.logger.Debug("dropped undecodable asset signal", logging.Error(err))
				continue
			}
			fn(sig)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			_ = pubsub.Close()
			<-sub.done
		})
	}, nil
}

// Close stops every subscription and the client.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = map[int]*redisSubscription{}
	b.mu.Unlock()

	for _, sub := range subs {
		_ = sub.pubsub.Close()
		<-sub.done
	}
	return b.client.Close()
}
