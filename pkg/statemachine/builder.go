package statemachine

import (
	"context"
	"fmt"
)

// Builder provides a fluent API for defining a state machine:
//
//	State(name, h) [When(cond).To(target)]* [Fallback(target)]
//
// The first error is recorded and returned by Build; calls after an error are
// ignored.
type Builder struct {
	machine  *Machine
	err      error
	consumed bool
}

// StateBuilder adds rules to the state being defined.
type StateBuilder struct {
	b   *Builder
	def *definition
}

// RuleBuilder holds a condition waiting for its target.
// The rule is registered only by To.
type RuleBuilder struct {
	s       *StateBuilder
	matcher Matcher
}

// NewBuilder creates a new state machine builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{machine: newMachine()}
	for _, opt := range opts {
		if err := opt(b.machine); err != nil {
			b.fail(err)
			break
		}
	}
	return b
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) usable() bool {
	if b.consumed {
		b.fail(ErrBuilderConsumed)
	}
	return b.err == nil
}

// State registers a state and makes it the one rules are added to.
// A state defined again under the same name replaces the earlier one.
// The first state becomes the initial state unless Init is used.
func (b *Builder) State(name string, h Handler) *StateBuilder {
	s := &StateBuilder{b: b}
	if !b.usable() {
		return s
	}
	if name == "" {
		b.fail(ErrInvalidStateName)
		return s
	}
	if h == nil {
		b.fail(fmt.Errorf("state '%s': %w", name, ErrNilHandler))
		return s
	}

	s.def = &definition{name: name, handler: h}
	b.machine.states[name] = s.def
	if b.machine.initial == "" {
		b.machine.initial = name
	}
	return s
}

// Error sets the state entered for error tokens no rule accepts.
func (b *Builder) Error(name string) *Builder {
	if !b.usable() {
		return b
	}
	if name == "" {
		b.fail(fmt.Errorf("error state: %w", ErrInvalidStateName))
		return b
	}
	b.machine.errorState = name
	return b
}

// Init overrides the initial state, which defaults to the first defined state.
func (b *Builder) Init(name string) *Builder {
	if !b.usable() {
		return b
	}
	if name == "" {
		b.fail(fmt.Errorf("initial state: %w", ErrInvalidStateName))
		return b
	}
	b.machine.initial = name
	return b
}

// Build returns the defined machine or the first definition error.
// The builder cannot be used afterwards.
func (b *Builder) Build() (*Machine, error) {
	if !b.usable() {
		return nil, b.err
	}
	if b.machine.initial == "" {
		b.fail(ErrNoInitialState)
		return nil, b.err
	}
	b.consumed = true
	return b.machine, nil
}

// MustBuild works like Build but panics on a definition error.
func (b *Builder) MustBuild() *Machine {
	m, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build state machine: %v", err))
	}
	return m
}

// Start builds the machine and starts it with args.
func (b *Builder) Start(ctx context.Context, args ...any) (*Machine, error) {
	m, err := b.Build()
	if err != nil {
		return nil, err
	}
	if err := m.Start(ctx, args...); err != nil {
		return m, err
	}
	return m, nil
}

// When opens a rule matching cond, which may be a string (exact match),
// a *regexp.Regexp, a func(string) bool, a []string (membership) or a Matcher.
func (s *StateBuilder) When(cond any) *RuleBuilder {
	r := &RuleBuilder{s: s}
	if s.def == nil || !s.b.usable() {
		return r
	}
	m, err := newMatcher(cond)
	if err != nil {
		s.b.fail(fmt.Errorf("state '%s': %w", s.def.name, err))
		return r
	}
	r.matcher = m
	return r
}

// Fallback adds a rule accepting any token. Rules added after it never match.
func (s *StateBuilder) Fallback(target string) *StateBuilder {
	return s.When(Always()).To(target)
}

// State finishes the current state and starts defining the next one.
func (s *StateBuilder) State(name string, h Handler) *StateBuilder {
	return s.b.State(name, h)
}

// Error sets the machine error state.
func (s *StateBuilder) Error(name string) *StateBuilder {
	s.b.Error(name)
	return s
}

// Init sets the machine initial state.
func (s *StateBuilder) Init(name string) *StateBuilder {
	s.b.Init(name)
	return s
}

// Build returns the defined machine.
func (s *StateBuilder) Build() (*Machine, error) {
	return s.b.Build()
}

// MustBuild returns the defined machine and panics on a definition error.
func (s *StateBuilder) MustBuild() *Machine {
	return s.b.MustBuild()
}

// Start builds and starts the machine.
func (s *StateBuilder) Start(ctx context.Context, args ...any) (*Machine, error) {
	return s.b.Start(ctx, args...)
}

// To completes the rule with its target state and appends it to the state.
func (r *RuleBuilder) To(target string) *StateBuilder {
	s := r.s
	if r.matcher == nil || !s.b.usable() {
		return s
	}
	if target == "" {
		s.b.fail(fmt.Errorf("state '%s' rule target: %w", s.def.name, ErrInvalidStateName))
		return s
	}
	s.def.rules = append(s.def.rules, Rule{Matcher: r.matcher, Target: target})
	return s
}
