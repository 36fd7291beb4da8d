package broadcast

import (
	"context"
	"slices"
	"sync"
)

// Message wraps data of type T published under a topic.
type Message[T any] struct {
	Topic string
	Data  T
}

// Subscriber receives messages from a Broadcaster.
// Implementations must be safe for concurrent use.
type Subscriber[T any] interface {
	// Receive returns the channel messages are delivered on.
	// The channel is closed when the subscription ends.
	Receive(ctx context.Context) <-chan Message[T]

	// Close ends the subscription. It is idempotent.
	Close() error
}

// Broadcaster fans messages out to subscribers. Broadcast returns once the
// message is handed to the transport; whether that involves I/O depends on
// the implementation.
type Broadcaster[T any] interface {
	// Subscribe registers a subscriber for the given topics, or for every
	// topic when none are given. The subscription ends when ctx is cancelled.
	Subscribe(ctx context.Context, topics ...string) Subscriber[T]

	// Broadcast delivers msg to every matching subscriber. Subscribers whose
	// buffer is full lose the message and are unsubscribed.
	Broadcast(ctx context.Context, msg Message[T]) error

	// Close ends all subscriptions. Later broadcasts return ErrClosed.
	Close() error
}

type subscriber[T any] struct {
	ch     chan Message[T]
	topics []string
	closed bool
	mu     sync.RWMutex
}

func newSubscriber[T any](bufferSize int, topics []string) *subscriber[T] {
	return &subscriber[T]{
		ch:     make(chan Message[T], bufferSize),
		topics: slices.Clone(topics),
	}
}

func (s *subscriber[T]) Receive(ctx context.Context) <-chan Message[T] {
	return s.ch
}

func (s *subscriber[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	return nil
}

func (s *subscriber[T]) wants(topic string) bool {
	return len(s.topics) == 0 || slices.Contains(s.topics, topic)
}

// send reports false when the subscriber is closed or its buffer is full.
func (s *subscriber[T]) send(msg Message[T]) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}
