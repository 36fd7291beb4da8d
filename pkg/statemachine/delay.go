package statemachine

import (
	"sync"
	"time"
)

// Delay requests a transition once after a timeout. A state typically owns
// one, schedules it from Enter and cancels it from Leave when another
// transition wins. The zero value is ready to use.
type Delay struct {
	// OnError receives the error returned by a delayed transition.
	OnError func(error)

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// Schedule arms the delay. It reports false and does nothing while a
// previously scheduled transition is still pending.
func (d *Delay) Schedule(after time.Duration, t Transit, token any, args ...any) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		return false
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(max(after, 0), func() {
		d.mu.Lock()
		if d.gen != gen || d.timer == nil {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		onError := d.OnError
		d.mu.Unlock()

		if err := t(token, args...); err != nil && onError != nil {
			onError(err)
		}
	})
	return true
}

// Cancel disarms a pending delay and reports whether one was pending.
func (d *Delay) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	return true
}

// Pending reports whether a transition is scheduled.
func (d *Delay) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
