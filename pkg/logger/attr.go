package logger

import "log/slog"

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Machine records the state machine identifier under the key "machine_id".
// If id is nil, it returns an empty Attr.
func Machine(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("machine_id", id)
}

// State records a state name under the key "state".
func State(name string) slog.Attr {
	return slog.String("state", name)
}

// Transition groups the source and target states under the key "transition".
// The source is omitted for the transition into the initial state.
func Transition(from, to string) slog.Attr {
	if from == "" {
		return Group("transition", slog.String("to", to))
	}
	return Group("transition", slog.String("from", from), slog.String("to", to))
}

// Token records a transition token under the key "token".
func Token(token string) slog.Attr {
	return slog.String("token", token)
}

// Attempt records an attempt number under the key "attempt".
func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
