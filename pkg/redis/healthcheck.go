package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Healthcheck returns a check that the server answers and accepts the
// pub/sub commands used by broadcast.RedisBroadcaster. channel is only
// queried, nothing is published to it.
func Healthcheck(client redis.UniversalClient, channel string) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrUnavailable, err)
		}
		if err := client.PubSubNumSub(ctx, channel).Err(); err != nil {
			return errors.Join(ErrUnavailable, err)
		}
		return nil
	}
}
