// Package redis connects to the Redis server used to distribute transit
// events between processes (see broadcast.RedisBroadcaster).
//
// Configuration is read from the environment with pkg/config:
//
//	var cfg redis.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//	if cfg.Enabled() {
//		client, err := redis.Connect(ctx, cfg)
//		if err != nil {
//			return err
//		}
//		defer client.Close()
//	}
//
// Connect retries the initial ping RetryAttempts times, RetryInterval apart,
// and gives up after ConnectTimeout with ErrNotReady. Healthcheck also
// verifies that pub/sub commands are permitted, which a restricted ACL user
// may be denied even when PING succeeds.
package redis
