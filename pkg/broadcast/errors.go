package broadcast

import "errors"

var (
	// ErrClosed is returned by Broadcast after the broadcaster was closed.
	ErrClosed = errors.New("broadcast: broadcaster is closed")

	ErrEncodeMessage = errors.New("broadcast: failed to encode message")
	ErrPublishFailed = errors.New("broadcast: failed to publish message")
)
