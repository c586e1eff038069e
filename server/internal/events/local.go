package events

import (
	"context"
	"log/slog"
	"sync"
)

// LocalBus is an in-process Bus.
type LocalBus struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
}

// NewLocalBus returns an empty LocalBus.
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[chan Event]struct{})}
}

// Publish delivers e to every subscriber with room in its buffer.
func (b *LocalBus) Publish(_ context.Context, e Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			slog.Debug("events: subscriber buffer full, dropping event", "type", e.Type)
		}
	}
	return nil
}

// Subscribe registers a subscriber.
func (b *LocalBus) Subscribe(ctx context.Context) (<-chan Event, func()) {
	ch := make(chan Event, subBufSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			close(done)
			b.mu.Lock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return ch, cancel
}

// Count returns the number of active subscribers.
func (b *LocalBus) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later Subscribe calls return a
// closed channel.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
	b.closed = true
	return nil
}
