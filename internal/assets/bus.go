package assets

import (
	"context"
	"sync"
	"time"
)

// Signal announces that the recording list changed.
type Signal struct {
	Key    string    `json:"key,omitempty"`
	Reason string    `json:"reason"`
	Origin string    `json:"origin,omitempty"`
	At     time.Time `json:"at"`
}

// Signal reasons.
const (
	ReasonUploaded  = "uploaded"
	ReasonDeleted   = "deleted"
	ReasonGenerated = "generated"
	ReasonActivated = "activated"
)

// Bus carries "asset changed" signals between unrelated components.
type Bus interface {
	Publish(ctx context.Context, sig Signal) error
	// Subscribe registers fn for every signal until the returned cancel runs.
	Subscribe(fn func(Signal)) (cancel func(), err error)
	Close() error
}

// LocalBus delivers signals synchronously within one process.
type LocalBus struct {
	mu       sync.RWMutex
	handlers map[int]func(Signal)
	next     int
}

// NewLocalBus constructs an empty LocalBus.
func NewLocalBus() *LocalBus {
	return &LocalBus{handlers: map[int]func(Signal){}}
}

// Publish calls every subscriber in the caller's goroutine.
func (b *LocalBus) Publish(_ context.Context, sig Signal) error {
	if sig.At.IsZero() {
		sig.At = time.Now().UTC()
	}
	b.mu.RLock()
	handlers := make([]func(Signal), 0, len(b.handlers))
	for _, fn := range b.handlers {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()
	for _, fn := range handlers {
		fn(sig)
	}
	return nil
}

// Subscribe registers fn.
func (b *LocalBus) Subscribe(fn func(Signal)) (func(), error) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}, nil
}

// Close drops all subscribers.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	b.handlers = map[int]func(Signal){}
	b.mu.Unlock()
	return nil
}
