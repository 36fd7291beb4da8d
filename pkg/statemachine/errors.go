package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStateName  = errors.New("invalid state name: name cannot be empty")
	ErrNilHandler        = errors.New("invalid state: handler cannot be nil")
	ErrInvalidCondition  = errors.New("invalid rule condition")
	ErrBuilderConsumed   = errors.New("builder already produced a machine")
	ErrNoInitialState    = errors.New("no initial state defined")
	ErrNotStarted        = errors.New("state machine not started")
	ErrAlreadyStarted    = errors.New("state machine already started")
	ErrInvalidTransition = errors.New("invalid transition: token must be a non-empty string or an error")
	ErrTransitAborted    = errors.New("queued transition aborted: a state hook panicked")

	ErrSubscriptionClosed = errors.New("transit event subscription closed")
)

// UndefinedTransitionError indicates that no rule of the current state accepts the token.
type UndefinedTransitionError struct {
	StateName string
	Token     string
}

func (e *UndefinedTransitionError) Error() string {
	return fmt.Sprintf("undefined transition for '%s' in state '%s'", e.Token, e.StateName)
}

func NewUndefinedTransitionError(stateName, token string) *UndefinedTransitionError {
	return &UndefinedTransitionError{
		StateName: stateName,
		Token:     token,
	}
}

// InvalidStateError indicates that a rule or Init names a state that was never defined.
type InvalidStateError struct {
	StateName string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state '%s'", e.StateName)
}

func NewInvalidStateError(stateName string) *InvalidStateError {
	return &InvalidStateError{StateName: stateName}
}

// HookPanicError carries a value recovered from a panicking Process hook.
type HookPanicError struct {
	StateName string
	Value     any
}

func (e *HookPanicError) Error() string {
	return fmt.Sprintf("process hook of state '%s' panicked: %v", e.StateName, e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *HookPanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

func IsUndefinedTransitionError(err error) bool {
	var e *UndefinedTransitionError
	return errors.As(err, &e)
}

func IsInvalidStateError(err error) bool {
	var e *InvalidStateError
	return errors.As(err, &e)
}

func IsHookPanicError(err error) bool {
	var e *HookPanicError
	return errors.As(err, &e)
}
