package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a RedisBroadcaster.
type RedisConfig struct {
	ChannelPrefix string `env:"BROADCAST_CHANNEL_PREFIX" envDefault:"transit:"` // ChannelPrefix is prepended to every topic to build the Redis channel name.
	BufferSize    int    `env:"BROADCAST_BUFFER_SIZE" envDefault:"64"`         // BufferSize is the per-subscriber channel capacity.
}

// RedisBroadcaster publishes messages over Redis pub/sub so that subscribers
// in other processes receive them. Data is JSON encoded; a topic maps to the
// channel ChannelPrefix+topic.
type RedisBroadcaster[T any] struct {
	client  redis.UniversalClient
	cfg     RedisConfig
	subs    map[*redisSubscription[T]]struct{}
	closed  bool
	dropped atomic.Uint64
	mu      sync.Mutex
	wg      sync.WaitGroup
}

type redisSubscription[T any] struct {
	pubsub *redis.PubSub
	sub    *subscriber[T]
}

// NewRedisBroadcaster creates a broadcaster on top of an existing client.
// The client is not closed by Close.
func NewRedisBroadcaster[T any](client redis.UniversalClient, cfg RedisConfig) *RedisBroadcaster[T] {
	return &RedisBroadcaster[T]{
		client: client,
		cfg: RedisConfig{
			ChannelPrefix: cfg.ChannelPrefix,
			BufferSize:    max(cfg.BufferSize, 1),
		},
		subs: make(map[*redisSubscription[T]]struct{}),
	}
}

// Subscribe subscribes to the channels of topics, or to every channel under
// the prefix when no topic is given. It waits for Redis to confirm the
// subscription; if that fails the returned subscriber is already closed.
func (b *RedisBroadcaster[T]) Subscribe(ctx context.Context, topics ...string) Subscriber[T] {
	sub := newSubscriber[T](b.cfg.BufferSize, topics)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = sub.Close()
		return sub
	}

	var pubsub *redis.PubSub
	if len(topics) == 0 {
		pubsub = b.client.PSubscribe(ctx, b.channel("*"))
	} else {
		channels := make([]string, len(topics))
		for i, topic := range topics {
			channels[i] = b.channel(topic)
		}
		pubsub = b.client.Subscribe(ctx, channels...)
	}
	rs := &redisSubscription[T]{pubsub: pubsub, sub: sub}
	b.subs[rs] = struct{}{}
	b.wg.Add(1)
	b.mu.Unlock()

	if _, err := pubsub.Receive(ctx); err != nil {
		b.remove(rs)
		b.wg.Done()
		return sub
	}

	go b.forward(ctx, rs)
	return sub
}

// Broadcast publishes msg to the channel of its topic and blocks until the
// server acknowledges the PUBLISH or ctx ends.
func (b *RedisBroadcaster[T]) Broadcast(ctx context.Context, msg Message[T]) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	payload, err := json.Marshal(msg.Data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncodeMessage, err)
	}
	if err := b.client.Publish(ctx, b.channel(msg.Topic), payload).Err(); err != nil {
		return errors.Join(ErrPublishFailed, err)
	}
	return nil
}

// Dropped returns how many received messages were lost to full subscribers
// or undecodable payloads.
func (b *RedisBroadcaster[T]) Dropped() uint64 {
	return b.dropped.Load()
}

// Close ends all subscriptions. It is safe to call Close multiple times.
func (b *RedisBroadcaster[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*redisSubscription[T], 0, len(b.subs))
	for rs := range b.subs {
		subs = append(subs, rs)
	}
	b.mu.Unlock()

	for _, rs := range subs {
		b.remove(rs)
	}
	b.wg.Wait()
	return nil
}

func (b *RedisBroadcaster[T]) forward(ctx context.Context, rs *redisSubscription[T]) {
	defer b.wg.Done()
	defer b.remove(rs)

	ch := rs.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case in, ok := <-ch:
			if !ok {
				return
			}
			var data T
			if err := json.Unmarshal([]byte(in.Payload), &data); err != nil {
				b.dropped.Add(1)
				continue
			}
			msg := Message[T]{
				Topic: strings.TrimPrefix(in.Channel, b.cfg.ChannelPrefix),
				Data:  data,
			}
			if !rs.sub.send(msg) {
				b.dropped.Add(1)
				return
			}
		}
	}
}

func (b *RedisBroadcaster[T]) remove(rs *redisSubscription[T]) {
	b.mu.Lock()
	_, ok := b.subs[rs]
	delete(b.subs, rs)
	b.mu.Unlock()

	if ok {
		_ = rs.pubsub.Close()
		_ = rs.sub.Close()
	}
}

func (b *RedisBroadcaster[T]) channel(topic string) string {
	return b.cfg.ChannelPrefix + topic
}
