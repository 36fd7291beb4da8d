package statemachine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// TransitEvent describes a completed transition.
// From is empty for the transition performed by Start.
type TransitEvent struct {
	ID        ulid.ULID `json:"id"`
	MachineID uuid.UUID `json:"machine_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Token     string    `json:"token"`
	At        time.Time `json:"at"`
}

// Observer is notified synchronously after the target state's Enter returned.
// It may drive the machine further through ctx: Transit and Process calls
// made with it are queued behind the current chain and return without
// waiting.
type Observer func(ctx context.Context, m *Machine, e TransitEvent)

func newTransitEvent(machineID uuid.UUID, from, to, token string) TransitEvent {
	now := time.Now()
	return TransitEvent{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()),
		MachineID: machineID,
		From:      from,
		To:        to,
		Token:     token,
		At:        now,
	}
}
