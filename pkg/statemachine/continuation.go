package statemachine

import (
	"context"
	"reflect"
)

// resolution records how a continuation was last used.
type resolution uint8

const (
	// unresolved: the continuation has not been called.
	unresolved resolution = iota
	// captured: called while its Enter hook was still running. The request
	// is the next step of the same chain; a later call in the hook replaces it.
	captured
	// queued: called while the loop was busy with another chain. The request
	// runs after that chain, in arrival order.
	queued
	// resumed: called while the machine was idle; the call ran the loop.
	resumed
)

func (r resolution) String() string {
	switch r {
	case captured:
		return "captured"
	case queued:
		return "queued"
	case resumed:
		return "resumed"
	default:
		return "unresolved"
	}
}

// continuation is the Transit handed to a single Enter or Process call.
// Fields other than m and ctx are guarded by the machine mutex.
type continuation struct {
	m   *Machine
	ctx context.Context

	// open is set while the Enter hook that received the continuation runs.
	open bool
	// nested is set while a Process hook runs on the loop goroutine, for
	// instance when an observer calls Process.
	nested bool
	status resolution
	next   request
}

func newContinuation(m *Machine, ctx context.Context) *continuation {
	return &continuation{m: m, ctx: offLoop(context.WithoutCancel(ctx))}
}

func (c *continuation) transit(token any, args ...any) error {
	return c.m.dispatch(c.ctx, request{token: token, args: args}, c)
}

// resolve must be called with the machine mutex held.
func (c *continuation) resolve(r resolution) {
	if c != nil {
		c.status = r
	}
}

// close ends the synchronous window of an Enter continuation and returns the
// request captured during it, if any.
func (c *continuation) close() (request, bool) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	c.open = false
	if c.status != captured {
		return request{}, false
	}
	return c.next, true
}

type loopKey struct{}

// onLoop reports whether ctx is the one the loop of m hands to observers,
// meaning the caller runs on the loop goroutine and must not wait for it.
func onLoop(ctx context.Context, m *Machine) bool {
	owner, _ := ctx.Value(loopKey{}).(*Machine)
	return owner == m
}

func withLoop(ctx context.Context, m *Machine) context.Context {
	return context.WithValue(ctx, loopKey{}, m)
}

func offLoop(ctx context.Context) context.Context {
	if ctx.Value(loopKey{}) == nil {
		return ctx
	}
	return context.WithValue(ctx, loopKey{}, (*Machine)(nil))
}

// request is a transition waiting to be executed by the loop.
type request struct {
	token any
	args  []any
}

// normalize validates the token and rewrites errors to ErrorToken, prepending
// the error to the arguments. cause is the error to return when nothing
// handles the error token.
func (r request) normalize() (token string, args []any, cause error, err error) {
	switch t := r.token.(type) {
	case nil:
		return "", nil, nil, ErrInvalidTransition
	case error:
		return ErrorToken, append([]any{t}, r.args...), t, nil
	case string:
		token = t
	default:
		v := reflect.ValueOf(t)
		if v.Kind() != reflect.String {
			return "", nil, nil, ErrInvalidTransition
		}
		token = v.String()
	}
	if token == "" {
		return "", nil, nil, ErrInvalidTransition
	}
	if token == ErrorToken && len(r.args) > 0 {
		cause, _ = r.args[0].(error)
	}
	return token, r.args, cause, nil
}
