package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBroadcaster_Subscribe(t *testing.T) {
	t.Parallel()

	t.Run("subscribe creates active subscriber", func(t *testing.T) {
		t.Parallel()
		b := NewMemoryBroadcaster[string](10)
		defer b.Close()

		ctx := context.Background()
		sub := b.Subscribe(ctx)
		require.NotNil(t, sub)
		require.NotNil(t, sub.Receive(ctx))
		assert.Equal(t, 1, b.Subscribers())
	})

	t.Run("subscribe after close returns closed subscriber", func(t *testing.T) {
		t.Parallel()
		b := NewMemoryBroadcaster[string](10)
		require.NoError(t, b.Close())

		ctx := context.Background()
		sub := b.Subscribe(ctx)
		require.NotNil(t, sub)

		_, ok := <-sub.Receive(ctx)
		assert.False(t, ok)
	})

	t.Run("context cancellation unsubscribes", func(t *testing.T) {
		t.Parallel()
		b := NewMemoryBroadcaster[string](10)
		defer b.Close()

		ctx, cancel := context.WithCancel(context.Background())
		sub := b.Subscribe(ctx)
		cancel()

		require.Eventually(t, func() bool { return b.Subscribers() == 0 }, time.Second, 5*time.Millisecond)

		require.NoError(t, b.Broadcast(context.Background(), Message[string]{Data: "test"}))
		_, ok := <-sub.Receive(context.Background())
		assert.False(t, ok, "channel should be closed after context cancel")
	})

	t.Run("close does not wait for live subscription contexts", func(t *testing.T) {
		t.Parallel()
		b := NewMemoryBroadcaster[string](10)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		_ = b.Subscribe(ctx)

		done := make(chan struct{})
		go func() {
			_ = b.Close()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Close blocked on an active subscription context")
		}
	})
}

func TestMemoryBroadcaster_Broadcast(t *testing.T) {
	t.Parallel()

	t.Run("broadcast to multiple subscribers", func(t *testing.T) {
		t.Parallel()
		b := NewMemoryBroadcaster[int](10)
		defer b.Close()

		ctx := context.Background()
		const numSubs = 5
		subs := make([]Subscriber[int], numSubs)
		for i := range numSubs {
			subs[i] = b.Subscribe(ctx)
		}

		require.NoError(t, b.Broadcast(ctx, Message[int]{Data: 42}))

		for i, sub := range subs {
			select {
			case received := <-sub.Receive(ctx):
				assert.Equal(t, 42, received.Data, "subscriber %d", i)
			case <-time.After(100 * time.Millisecond):
				t.Fatalf("subscriber %d timeout", i)
			}
		}
	})

	t.Run("topic filter", func(t *testing.T) {
		t.Parallel()
		b := NewMemoryBroadcaster[string](10)
		defer b.Close()

		ctx := context.Background()
		orders := b.Subscribe(ctx, "orders")
		all := b.Subscribe(ctx)

		require.NoError(t, b.Broadcast(ctx, Message[string]{Topic: "users", Data: "u1"}))
		require.NoError(t, b.Broadcast(ctx, Message[string]{Topic: "orders", Data: "o1"}))

		got := <-orders.Receive(ctx)
		assert.Equal(t, "o1", got.Data)
		assert.Len(t, orders.Receive(ctx), 0)

		assert.Equal(t, "u1", (<-all.Receive(ctx)).Data)
		assert.Equal(t, "o1", (<-all.Receive(ctx)).Data)
	})

	t.Run("broadcast after close fails", func(t *testing.T) {
		t.Parallel()
		b := NewMemoryBroadcaster[string](10)
		require.NoError(t, b.Close())

		err := b.Broadcast(context.Background(), Message[string]{Data: "test"})
		assert.ErrorIs(t, err, ErrClosed)
	})

	t.Run("slow subscriber is dropped", func(t *testing.T) {
		t.Parallel()
		b := NewMemoryBroadcaster[int](1)
		defer b.Close()

		ctx := context.Background()
		sub := b.Subscribe(ctx)

		for i := range 10 {
			require.NoError(t, b.Broadcast(ctx, Message[int]{Data: i}))
		}

		assert.Positive(t, b.Dropped())
		require.Eventually(t, func() bool { return b.Subscribers() == 0 }, time.Second, 5*time.Millisecond)

		count := 0
		for range sub.Receive(ctx) {
			count++
		}
		assert.Equal(t, 1, count)
	})
}

func TestMemoryBroadcaster_Close(t *testing.T) {
	t.Parallel()

	t.Run("close closes all subscribers", func(t *testing.T) {
		t.Parallel()
		b := NewMemoryBroadcaster[string](10)

		ctx := context.Background()
		subs := make([]Subscriber[string], 3)
		for i := range subs {
			subs[i] = b.Subscribe(ctx)
		}

		require.NoError(t, b.Close())

		for i, sub := range subs {
			_, ok := <-sub.Receive(ctx)
			assert.False(t, ok, "subscriber %d channel should be closed", i)
		}
	})

	t.Run("double close is safe", func(t *testing.T) {
		t.Parallel()
		b := NewMemoryBroadcaster[string](10)
		require.NoError(t, b.Close())
		require.NoError(t, b.Close())
	})
}

func TestMemoryBroadcaster_Concurrent(t *testing.T) {
	t.Parallel()

	b := NewMemoryBroadcaster[int](1000)
	defer b.Close()

	ctx := context.Background()
	sub := b.Subscribe(ctx)

	const numGoroutines = 10
	const msgsPerGoroutine = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := range numGoroutines {
		go func(base int) {
			defer wg.Done()
			for j := range msgsPerGoroutine {
				assert.NoError(t, b.Broadcast(ctx, Message[int]{Data: base*1000 + j}))
			}
		}(i)
	}
	wg.Wait()

	received := make(map[int]bool)
	for range numGoroutines * msgsPerGoroutine {
		msg := <-sub.Receive(ctx)
		received[msg.Data] = true
	}
	assert.Len(t, received, numGoroutines*msgsPerGoroutine)
}

func BenchmarkMemoryBroadcaster_Broadcast(b *testing.B) {
	broadcaster := NewMemoryBroadcaster[string](100)
	defer broadcaster.Close()

	ctx := context.Background()
	for range 10 {
		sub := broadcaster.Subscribe(ctx)
		go func(s Subscriber[string]) {
			for range s.Receive(ctx) {
			}
		}(sub)
	}

	msg := Message[string]{Data: "benchmark"}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = broadcaster.Broadcast(ctx, msg)
		}
	})
}
