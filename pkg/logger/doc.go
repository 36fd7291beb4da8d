// Package logger builds the slog.Logger shared by the state machine and the
// commands embedding it, and defines the attribute helpers that keep key
// names consistent across their records.
//
// New starts from JSON output at info level on stdout. WithEnvironment
// switches to the defaults of a deployment environment and tags records with
// env and service; WithLevel and WithFormat given after it take precedence.
// WithContextValue copies a context value into every record logged with that
// context, which is how a job ID set once on the context given to
// Machine.Start ends up on every transition record:
//
//	log := logger.New(
//	    logger.WithEnvironment(os.Getenv("APP_ENV"), "transitdemo"),
//	    logger.WithAttr(slog.String("version", version)),
//	    logger.WithContextValue("job_id", jobIDKey{}),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "transition",
//	    logger.Machine(m.ID()),
//	    logger.Transition(e.From, e.To),
//	    logger.Token(e.Token),
//	)
//
// Error and Machine return an empty attribute for nil input, which slog
// drops, so they can be passed without a nil check. Level and format names
// read from configuration are validated with ParseLevel and ParseFormat.
package logger
