package statemachine

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/transit/pkg/broadcast"
)

// Option configures a state machine during construction.
type Option func(*Machine) error

// WithLogger sets the logger used for transition diagnostics.
// Nil loggers are ignored.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) error {
		if l != nil {
			m.logger = l
		}
		return nil
	}
}

// WithID overrides the randomly generated machine identifier.
func WithID(id uuid.UUID) Option {
	return func(m *Machine) error {
		if id == uuid.Nil {
			return errors.New("machine id cannot be nil uuid")
		}
		m.id = id
		return nil
	}
}

// WithObserver registers observers notified after every transition, in order.
func WithObserver(observers ...Observer) Option {
	return func(m *Machine) error {
		for _, o := range observers {
			if o != nil {
				m.observers = append(m.observers, o)
			}
		}
		return nil
	}
}

// WithBroadcaster publishes every transition to b, from the transition loop
// after the observers. The loop waits for Broadcast to return: the in-memory
// broadcaster never blocks, RedisBroadcaster waits for the PUBLISH round
// trip. A failed broadcast is logged and does not fail the transition.
func WithBroadcaster(b broadcast.Broadcaster[TransitEvent]) Option {
	return func(m *Machine) error {
		if b == nil {
			return errors.New("broadcaster cannot be nil")
		}
		m.broadcaster = b
		return nil
	}
}
