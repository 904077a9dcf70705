// Package observe provides the change feed every store exposes to front ends.
package observe

import "sync"

const defaultBuffer = 64

// Bus fans values out to subscribers. Publish never blocks: a subscriber whose
// buffer is full misses the value.
type Bus[T any] struct {
	mu   sync.RWMutex
	subs map[chan T]struct{}
}

// NewBus constructs an empty bus.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[chan T]struct{})}
}

// Subscribe registers a listener. The returned func unregisters it and closes
// the channel; calling it more than once is safe.
func (b *Bus[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	ch := make(chan T, buffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers v to every subscriber with room in its buffer.
func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// Len returns the current subscriber count.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
