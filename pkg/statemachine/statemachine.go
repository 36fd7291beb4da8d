package statemachine

// ErrorToken is the token an error value is rewritten to before rule matching.
const ErrorToken = "error"

// StartToken is the token used for the transition into the initial state.
const StartToken = "start"

// Transit requests a transition. A state receives one in Enter and Process.
//
// token is a non-empty string (or a named string type) or a non-nil error.
// Called from Enter before the hook returns, the request becomes the next
// step of the running loop and only the last such call counts. Called later,
// e.g. from a timer, it runs the transition, or waits for the busy loop to run
// it, and reports its outcome. A Transit kept past its hook must not be called
// synchronously from another hook of the same machine: it would wait for the
// loop it is running on.
type Transit func(token any, args ...any) error

// Handler is the user-supplied state object.
// Embed NopHandler to implement only the hooks a state needs.
type Handler interface {
	// Enter runs after the machine switched to the state.
	Enter(t Transit, args ...any) error
	// Leave runs before the machine switches to next.
	Leave(next string) error
	// Process handles input passed to Machine.Process while the state is active.
	Process(t Transit, args ...any) error
}

// NopHandler implements Handler with no-op hooks.
type NopHandler struct{}

func (NopHandler) Enter(Transit, ...any) error   { return nil }
func (NopHandler) Leave(string) error            { return nil }
func (NopHandler) Process(Transit, ...any) error { return nil }

// HandlerFuncs adapts plain functions to Handler. Nil fields are no-ops.
type HandlerFuncs struct {
	OnEnter   func(t Transit, args ...any) error
	OnLeave   func(next string) error
	OnProcess func(t Transit, args ...any) error
}

func (h HandlerFuncs) Enter(t Transit, args ...any) error {
	if h.OnEnter == nil {
		return nil
	}
	return h.OnEnter(t, args...)
}

func (h HandlerFuncs) Leave(next string) error {
	if h.OnLeave == nil {
		return nil
	}
	return h.OnLeave(next)
}

func (h HandlerFuncs) Process(t Transit, args ...any) error {
	if h.OnProcess == nil {
		return nil
	}
	return h.OnProcess(t, args...)
}

// Rule maps tokens accepted by Matcher to the Target state.
type Rule struct {
	Matcher Matcher
	Target  string
}

// definition is a registered state: its handler and ordered rules.
type definition struct {
	name    string
	handler Handler
	rules   []Rule
}

// resolve returns the target of the first rule matching token.
func (d *definition) resolve(token string) (string, bool) {
	for _, r := range d.rules {
		if r.Matcher.Match(token) {
			return r.Target, true
		}
	}
	return "", false
}

// preInitial is the pseudo-state the machine starts from; its only rule
// targets the initial state.
func preInitial(initial string) *definition {
	return &definition{
		handler: NopHandler{},
		rules:   []Rule{{Matcher: Always(), Target: initial}},
	}
}
