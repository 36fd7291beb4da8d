package statemachine

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/transit/pkg/broadcast"
	"github.com/dmitrymomot/transit/pkg/logger"
)

// Machine drives a set of states through rule-based transitions.
// Machines are created by a Builder.
//
// Chained transitions requested synchronously from Enter hooks run in a flat
// loop. Other Transit calls arriving while that loop runs, from observers,
// timers or other goroutines, are queued and executed by the same loop once
// the current chain ends, so at most one transition executes at a time.
type Machine struct {
	id          uuid.UUID
	states      map[string]*definition
	initial     string
	errorState  string
	logger      *slog.Logger
	broadcaster broadcast.Broadcaster[TransitEvent]

	mu        sync.RWMutex
	observers []Observer
	current   *definition
	started   bool
	running   bool
	queue     []*queuedRequest
}

// queuedRequest is a transit waiting for the busy loop. done receives the
// outcome of its chain.
type queuedRequest struct {
	ctx  context.Context
	req  request
	done chan error
}

func newMachine() *Machine {
	return &Machine{
		id:     uuid.New(),
		states: make(map[string]*definition),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// ID returns the machine identifier carried by its transit events.
func (m *Machine) ID() uuid.UUID {
	return m.id
}

// InitialState returns the name of the state entered by Start.
func (m *Machine) InitialState() string {
	return m.initial
}

// ErrorState returns the name of the catch-all error state, if any.
func (m *Machine) ErrorState() string {
	return m.errorState
}

// Started reports whether Start has been called.
func (m *Machine) Started() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.started
}

// Current returns the handler of the active state, or nil before the machine
// entered its initial state.
func (m *Machine) Current() Handler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil || m.current.name == "" {
		return nil
	}
	return m.current.handler
}

// CurrentName returns the name of the active state, or an empty string before
// the machine entered its initial state.
func (m *Machine) CurrentName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return ""
	}
	return m.current.name
}

// State returns the handler registered under name, entered or not.
func (m *Machine) State(name string) (Handler, bool) {
	d, ok := m.states[name]
	if !ok {
		return nil, false
	}
	return d.handler, true
}

// Observe adds an observer notified after every subsequent transition.
func (m *Machine) Observe(o Observer) {
	if o == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Start enters the initial state, passing args to its Enter hook.
// A machine can be started once.
func (m *Machine) Start(ctx context.Context, args ...any) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.current = preInitial(m.initial)
	m.mu.Unlock()

	return m.dispatch(ctx, request{token: StartToken, args: args}, nil)
}

// Transit applies the rules of the active state to token and moves to the
// resolved state, passing args to its Enter hook.
//
// An error token is matched as ErrorToken with the error prepended to args.
// When no rule accepts it, the machine moves to the error state, or returns
// the error unchanged if no error state is configured.
func (m *Machine) Transit(ctx context.Context, token any, args ...any) error {
	return m.dispatch(ctx, request{token: token, args: args}, nil)
}

// Process passes args to the Process hook of the active state.
// An error returned by the hook, or a recovered panic, is fed back as an
// error token.
func (m *Machine) Process(ctx context.Context, args ...any) error {
	m.mu.RLock()
	started, cur := m.started, m.current
	m.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	c := newContinuation(m, ctx)
	nested := onLoop(ctx, m)
	if nested {
		m.mu.Lock()
		c.nested = true
		m.mu.Unlock()
	}
	err := callProcess(cur, c.transit, args)
	if nested {
		m.mu.Lock()
		c.nested = false
		m.mu.Unlock()
	}

	if err != nil {
		m.logger.LogAttrs(ctx, slog.LevelDebug, "process hook failed",
			logger.Machine(m.id),
			logger.State(cur.name),
			logger.Error(err),
		)
		return m.dispatch(ctx, request{token: err}, nil)
	}
	return nil
}

func callProcess(d *definition, t Transit, args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HookPanicError{StateName: d.name, Value: r}
		}
	}()
	return d.handler.Process(t, args...)
}

// dispatch routes req. A call from the Enter hook being executed is captured
// as the next step of the chain. Otherwise an idle machine runs the loop on
// the calling goroutine, and a busy one queues the request and waits for its
// outcome. Callers on the loop goroutine itself do not wait; the outcome of
// their request is logged.
// c is the continuation that issued the request, nil for direct calls.
func (m *Machine) dispatch(ctx context.Context, req request, c *continuation) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return ErrNotStarted
	}
	if c != nil && c.open {
		c.next = req
		c.resolve(captured)
		m.mu.Unlock()
		return nil
	}
	if !m.running {
		m.running = true
		c.resolve(resumed)
		m.mu.Unlock()
		return m.run(ctx, req)
	}

	q := &queuedRequest{ctx: ctx, req: req, done: make(chan error, 1)}
	m.queue = append(m.queue, q)
	c.resolve(queued)
	wait := !onLoop(ctx, m) && (c == nil || !c.nested)
	m.mu.Unlock()

	if !wait {
		return nil
	}
	select {
	case err := <-q.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run owns the loop: it executes the chain started by req, then every queued
// request in arrival order. It returns the outcome of the first chain.
func (m *Machine) run(ctx context.Context, req request) error {
	defer func() {
		if r := recover(); r != nil {
			m.abort()
			panic(r)
		}
	}()

	err := m.chain(ctx, req)
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.running = false
			m.mu.Unlock()
			return err
		}
		q := m.queue[0]
		m.queue[0] = nil
		m.queue = m.queue[1:]
		m.mu.Unlock()

		m.runQueued(q)
	}
}

func (m *Machine) runQueued(q *queuedRequest) {
	defer func() {
		if r := recover(); r != nil {
			q.done <- ErrTransitAborted
			panic(r)
		}
	}()

	err := m.chain(q.ctx, q.req)
	if err != nil && onLoop(q.ctx, m) {
		m.logger.LogAttrs(q.ctx, slog.LevelWarn, "queued transition failed",
			logger.Machine(m.id),
			logger.Error(err),
		)
	}
	q.done <- err
}

// abort releases the loop after a panic and fails every queued request.
func (m *Machine) abort() {
	m.mu.Lock()
	queue := m.queue
	m.queue = nil
	m.running = false
	m.mu.Unlock()

	for _, q := range queue {
		q.done <- ErrTransitAborted
	}
}

// chain executes req and every request captured synchronously after it,
// iteratively.
func (m *Machine) chain(ctx context.Context, req request) error {
	for {
		next, ok, err := m.step(ctx, req)
		if err != nil || !ok {
			return err
		}
		req = next
	}
}

// step performs a single transition and returns the request captured by the
// Enter hook of the target state. Only the loop goroutine writes current.
func (m *Machine) step(ctx context.Context, req request) (request, bool, error) {
	token, args, cause, err := req.normalize()
	if err != nil {
		return request{}, false, err
	}

	loopCtx := withLoop(ctx, m)
	from := m.current
	target, ok := from.resolve(token)
	if !ok && token == ErrorToken {
		if m.errorState == "" {
			if cause != nil {
				return request{}, false, cause
			}
			return request{}, false, NewUndefinedTransitionError(from.name, token)
		}
		target, ok = m.errorState, true
		m.logger.LogAttrs(loopCtx, slog.LevelWarn, "routing error to error state",
			logger.Machine(m.id),
			logger.Transition(from.name, target),
			logger.Error(cause),
		)
	}
	if !ok {
		return request{}, false, NewUndefinedTransitionError(from.name, token)
	}

	to, ok := m.states[target]
	if !ok {
		return request{}, false, NewInvalidStateError(target)
	}

	if err := from.handler.Leave(target); err != nil {
		return request{}, false, err
	}

	c := newContinuation(m, ctx)
	m.mu.Lock()
	m.current = to
	c.open = true
	m.mu.Unlock()

	err = to.handler.Enter(c.transit, args...)
	next, captured := c.close()
	if err != nil {
		return request{}, false, err
	}

	m.logger.LogAttrs(loopCtx, slog.LevelDebug, "state transition",
		logger.Machine(m.id),
		logger.Transition(from.name, to.name),
		logger.Token(token),
	)
	m.notify(loopCtx, newTransitEvent(m.id, from.name, to.name, token))
	return next, captured, nil
}

func (m *Machine) notify(ctx context.Context, e TransitEvent) {
	m.mu.RLock()
	observers := m.observers
	m.mu.RUnlock()

	for _, o := range observers {
		o(ctx, m, e)
	}

	if m.broadcaster == nil {
		return
	}
	if err := m.broadcaster.Broadcast(ctx, broadcast.Message[TransitEvent]{
		Topic: m.id.String(),
		Data:  e,
	}); err != nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "failed to broadcast transition",
			logger.Machine(m.id),
			logger.Transition(e.From, e.To),
			logger.Error(err),
		)
	}
}
