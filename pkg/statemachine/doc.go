// Package statemachine provides an embeddable, rule-based state machine.
//
// A machine drives user-supplied state objects through named states. Each
// state implements Handler, with Enter, Leave and Process hooks, and declares
// ordered rules mapping a transition token to a target state:
//
//	State(name, handler) [When(cond).To(target)]* [Fallback(target)]
//
// Rules are evaluated in declaration order and the first match wins. A
// condition is an exact string, a *regexp.Regexp, a func(string) bool, a
// []string (membership) or any Matcher.
//
// # Usage
//
//	m, err := statemachine.NewBuilder(statemachine.WithLogger(log)).
//	    State("idle", idle).
//	        When("fetch").To("fetching").
//	    State("fetching", fetching).
//	        When(regexp.MustCompile(`^done`)).To("done").
//	        When([]string{"timeout", "refused"}).To("idle").
//	    State("done", statemachine.NopHandler{}).
//	    State("failed", failed).
//	    Error("failed").
//	    Build()
//	if err != nil {
//	    return err
//	}
//	if err := m.Start(ctx); err != nil {
//	    return err
//	}
//	_ = m.Process(ctx, "https://example.com")
//
// Embed NopHandler in a state type to implement only the hooks it needs, or
// use HandlerFuncs for function-based states.
//
// # Transitions
//
// Enter and Process receive a Transit callback. Calling it from Enter before
// the hook returns schedules the next transition of the running loop; only the
// last such call counts. Chains of synchronous transitions run iteratively, so
// arbitrarily long chains do not grow the stack. A hook may instead keep the
// callback and call it later, for instance from a timer (see Delay); the call
// then performs the transition and returns its outcome.
//
// For every transition the engine calls Leave on the outgoing state, makes the
// target state current, calls its Enter, then notifies observers and the
// optional broadcaster with a TransitEvent. A rule targeting the current
// state re-enters it: Leave and Enter both run.
//
// # Error Handling
//
// Definition mistakes are recorded by the Builder and returned by Build.
// Driver misuse yields ErrNotStarted, ErrAlreadyStarted, ErrInvalidTransition,
// UndefinedTransitionError or InvalidStateError:
//
//	if statemachine.IsUndefinedTransitionError(err) { /* ... */ }
//
// Domain errors travel as tokens. An error passed to Transit, or returned by
// a Process hook, is matched as the token "error" with the error prepended to
// the Enter arguments. Without a matching rule the machine enters the state
// set by Builder.Error; without an error state the original error is returned
// to the caller. Errors returned by Enter and Leave are returned unchanged.
//
// # Concurrency
//
// The engine never starts goroutines and transitions on one machine never run
// concurrently. A Transit call made while a loop is running on another
// goroutine is queued; the loop runs queued requests in arrival order after
// its current chain, and the caller waits for the outcome of its own request
// (or for ctx to be done; the request still runs). Observers drive the machine
// with the context they receive, which queues without waiting. Hooks must use
// the Transit they were given: calling Machine.Transit from a hook waits for
// the loop that runs the hook. Introspection methods are safe to call from any
// goroutine.
package statemachine
