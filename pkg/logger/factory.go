package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler New builds.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ParseFormat validates a format name read from configuration.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatText:
		return f, nil
	default:
		return "", fmt.Errorf("invalid log format %q: must be %q or %q", s, FormatJSON, FormatText)
	}
}

// Deployment environments recognised by WithEnvironment.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// ParseLevel converts a level name such as "debug" or "WARN" to slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

// Option configures New.
type Option func(*config)

type config struct {
	level      slog.Level
	format     Format
	output     io.Writer
	attrs      []slog.Attr
	extractors []ContextExtractor
}

// environment maps an environment name, or its short alias, to its canonical
// name and logging defaults. Unknown names are treated as development.
func environment(env string) (name string, level slog.Level, format Format) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case EnvProduction, "prod":
		return EnvProduction, slog.LevelInfo, FormatJSON
	case EnvStaging, "stage":
		return EnvStaging, slog.LevelInfo, FormatJSON
	default:
		return EnvDevelopment, slog.LevelDebug, FormatText
	}
}

// WithEnvironment applies the defaults of env: debug text logs in
// development, info JSON logs elsewhere. Every record is tagged with the
// canonical environment and, when set, the service name. Later WithLevel or
// WithFormat options override the defaults.
func WithEnvironment(env, service string) Option {
	return func(c *config) {
		name, level, format := environment(env)
		c.level, c.format = level, format
		c.attrs = append(c.attrs, slog.String("env", name))
		if service != "" {
			c.attrs = append(c.attrs, slog.String("service", service))
		}
	}
}

func WithLevel(l slog.Level) Option {
	return func(c *config) { c.level = l }
}

// WithFormat sets the output format. Unknown formats are ignored; validate
// user input with ParseFormat.
func WithFormat(f Format) Option {
	return func(c *config) {
		if f == FormatJSON || f == FormatText {
			c.format = f
		}
	}
}

// WithOutput sets the destination. A nil writer is ignored.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithAttr adds static attributes to every record. Attributes with an empty
// string value are skipped, so optional build metadata can be passed as is.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) {
		for _, a := range attrs {
			if a.Value.Kind() == slog.KindString && a.Value.String() == "" {
				continue
			}
			c.attrs = append(c.attrs, a)
		}
	}
}

// WithContextValue logs the value stored in the record's context under key
// as the attribute name. Records without the value are left unchanged.
func WithContextValue(name string, key any) Option {
	return func(c *config) {
		if name == "" || key == nil {
			return
		}
		c.extractors = append(c.extractors, func(ctx context.Context) (slog.Attr, bool) {
			if v := ctx.Value(key); v != nil {
				return slog.Any(name, v), true
			}
			return slog.Attr{}, false
		})
	}
}

// SetAsDefault makes l the logger behind the slog package functions, which
// third-party code and the standard log package write through.
func SetAsDefault(l *slog.Logger) {
	slog.SetDefault(l)
}

// New builds a logger writing JSON at info level to stdout unless options
// say otherwise. Context values registered with WithContextValue are added
// to each record as it is handled.
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		level:  slog.LevelInfo,
		format: FormatJSON,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	handlerOpts := &slog.HandlerOptions{Level: cfg.level}
	var handler slog.Handler
	if cfg.format == FormatText {
		handler = slog.NewTextHandler(cfg.output, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(cfg.output, handlerOpts)
	}
	if len(cfg.attrs) > 0 {
		handler = handler.WithAttrs(cfg.attrs)
	}
	return slog.New(NewLogHandlerDecorator(handler, cfg.extractors...))
}
