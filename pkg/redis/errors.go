package redis

import "errors"

var (
	ErrNoURL       = errors.New("redis: connection URL is not set")
	ErrInvalidURL  = errors.New("redis: invalid connection URL")
	ErrNotReady    = errors.New("redis: server did not answer in time")
	ErrUnavailable = errors.New("redis: server cannot carry transit events")
)
