package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryBroadcaster drops messages for slow consumers rather than blocking the broadcast operation.
// All methods are safe for concurrent use.
type MemoryBroadcaster[T any] struct {
	subscribers map[*subscriber[T]]struct{}
	bufferSize  int
	closed      bool
	dropped     atomic.Uint64
	done        chan struct{}
	mu          sync.RWMutex
	cleanupWg   sync.WaitGroup
}

// NewMemoryBroadcaster creates a new in-memory broadcaster.
// bufferSize is the per-subscriber channel capacity, at least 1.
func NewMemoryBroadcaster[T any](bufferSize int) *MemoryBroadcaster[T] {
	return &MemoryBroadcaster[T]{
		subscribers: make(map[*subscriber[T]]struct{}),
		bufferSize:  max(bufferSize, 1),
		done:        make(chan struct{}),
	}
}

// Subscribe creates a subscriber for topics, or for all topics when none are
// given. If the broadcaster is already closed, returns a closed subscriber.
func (b *MemoryBroadcaster[T]) Subscribe(ctx context.Context, topics ...string) Subscriber[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := newSubscriber[T](b.bufferSize, topics)
	if b.closed {
		_ = sub.Close()
		return sub
	}
	b.subscribers[sub] = struct{}{}

	if ctx.Done() != nil {
		b.cleanupWg.Add(1)
		go func() {
			defer b.cleanupWg.Done()
			select {
			case <-ctx.Done():
				b.unsubscribe(sub)
			case <-b.done:
			}
		}()
	}

	return sub
}

// Broadcast sends msg to every subscriber of its topic without blocking.
// A subscriber whose buffer is full misses the message and is removed.
func (b *MemoryBroadcaster[T]) Broadcast(ctx context.Context, msg Message[T]) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	for sub := range b.subscribers {
		if !sub.wants(msg.Topic) {
			continue
		}
		if !sub.send(msg) {
			b.dropped.Add(1)
			// unsubscribe takes the write lock, so it cannot run under this read lock.
			go b.unsubscribe(sub)
		}
	}

	return nil
}

// Subscribers returns the number of active subscribers.
func (b *MemoryBroadcaster[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped returns how many deliveries were lost to full or closed subscribers.
func (b *MemoryBroadcaster[T]) Dropped() uint64 {
	return b.dropped.Load()
}

// Close shuts down the broadcaster and closes all subscribers.
// It is safe to call Close multiple times.
func (b *MemoryBroadcaster[T]) Close() error {
	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()
		return nil
	}

	b.closed = true
	close(b.done)
	for sub := range b.subscribers {
		_ = sub.Close()
	}
	clear(b.subscribers)
	b.mu.Unlock()

	b.cleanupWg.Wait()

	return nil
}

func (b *MemoryBroadcaster[T]) unsubscribe(sub *subscriber[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	_ = sub.Close()
}
