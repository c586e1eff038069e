package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBus is a Bus backed by a Redis pub/sub channel.
type RedisBus struct {
	client  *redis.Client
	channel string
}

// NewRedisBus returns a RedisBus publishing on channel through client.
func NewRedisBus(client *redis.Client, channel string) *RedisBus {
	return &RedisBus{client: client, channel: channel}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("events: redis ping %s: %w", addr, err)
	}
	return client, nil
}

// Publish encodes e as JSON and publishes it on the channel.
func (b *RedisBus) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", e.Type, err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("events: publish %s: %w", e.Type, err)
	}
	return nil
}

// Resubscribe backoff bounds.
const (
	resubscribeInitial = time.Second
	resubscribeMax     = 30 * time.Second
)

// Subscribe opens a dedicated pub/sub connection and relays decoded events.
// When the first attempt succeeds the subscription is confirmed before
// Subscribe returns, so events published afterwards are not missed. When
// Redis cannot be reached the channel stays open and the subscription is
// retried with backoff until ctx is done or cancel is called.
func (b *RedisBus) Subscribe(ctx context.Context) (<-chan Event, func()) {
	out := make(chan Event, subBufSize)
	ctx, cancel := context.WithCancel(ctx)

	ps, err := b.subscribe(ctx)
	if err != nil {
		slog.Error("events: redis subscribe failed, retrying", "channel", b.channel, "err", err)
	}

	go func() {
		defer close(out)
		if ps == nil {
			if ps = b.resubscribe(ctx); ps == nil {
				return
			}
		}
		defer ps.Close()
		b.relay(ctx, ps, out)
	}()
	return out, cancel
}

func (b *RedisBus) subscribe(ctx context.Context) (*redis.PubSub, error) {
	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	return ps, nil
}

// resubscribe retries subscribe with doubling delays. It returns nil once ctx
// is done.
func (b *RedisBus) resubscribe(ctx context.Context) *redis.PubSub {
	delay := resubscribeInitial
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		ps, err := b.subscribe(ctx)
		if err == nil {
			slog.Info("events: redis subscription established", "channel", b.channel)
			return ps
		}
		slog.Warn("events: redis subscribe retry failed", "channel", b.channel, "err", err, "next", delay)
		delay *= 2
		if delay > resubscribeMax {
			delay = resubscribeMax
		}
	}
}

func (b *RedisBus) relay(ctx context.Context, ps *redis.PubSub, out chan<- Event) {
	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				slog.Warn("events: discarding malformed message", "channel", b.channel, "err", err)
				continue
			}
			select {
			case out <- e:
			default:
				slog.Debug("events: subscriber buffer full, dropping event", "type", e.Type)
			}
		}
	}
}

// Close closes the underlying client.
func (b *RedisBus) Close() error {
	return b.client.Close()
}
