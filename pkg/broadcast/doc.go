// Package broadcast provides type-safe fan-out of messages to subscribers,
// in process (MemoryBroadcaster) or across processes over Redis pub/sub
// (RedisBroadcaster). MemoryBroadcaster never blocks the publisher; a
// RedisBroadcaster publish waits for the server round trip.
//
// It is the event sink of the state machine package: every transition is
// published as a Message whose Topic is the machine ID, so one broadcaster
// can serve many machines and subscribers pick the machines they follow.
//
// Basic usage:
//
//	b := broadcast.NewMemoryBroadcaster[string](10)
//	defer b.Close()
//
//	ctx := context.Background()
//	sub := b.Subscribe(ctx, "orders")
//	defer sub.Close()
//
//	_ = b.Broadcast(ctx, broadcast.Message[string]{Topic: "orders", Data: "created"})
//
//	for msg := range sub.Receive(ctx) {
//		fmt.Println(msg.Data)
//	}
//
// A subscription ends when its context is cancelled, when it falls behind
// (its buffer is full at publish time), or when the broadcaster is closed.
// Publishers never wait for subscribers.
//
// RedisBroadcaster implements the same interface on a go-redis client:
//
//	client, err := redis.Connect(ctx, redisCfg)
//	if err != nil {
//		return err
//	}
//	b := broadcast.NewRedisBroadcaster[statemachine.TransitEvent](client, broadcast.RedisConfig{
//		ChannelPrefix: "transit:",
//		BufferSize:    64,
//	})
//
// Data is JSON encoded, so T must round-trip through encoding/json.
package broadcast
