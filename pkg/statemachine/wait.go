package statemachine

import (
	"context"
	"slices"

	"github.com/dmitrymomot/transit/pkg/broadcast"
)

// WaitFor blocks until sub delivers a transition into one of states and
// returns that event. Subscribe before starting the machine or triggering the
// transition, otherwise the event may be missed.
func WaitFor(ctx context.Context, sub broadcast.Subscriber[TransitEvent], states ...string) (TransitEvent, error) {
	events := sub.Receive(ctx)
	for {
		select {
		case <-ctx.Done():
			return TransitEvent{}, ctx.Err()
		case msg, ok := <-events:
			if !ok {
				return TransitEvent{}, ErrSubscriptionClosed
			}
			if slices.Contains(states, msg.Data.To) {
				return msg.Data, nil
			}
		}
	}
}
