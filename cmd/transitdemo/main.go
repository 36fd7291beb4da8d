// Command transitdemo drives a retrying fetch job with a state machine.
// Transit events go through Redis when REDIS_URL is set, in memory otherwise.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/transit/pkg/broadcast"
	"github.com/dmitrymomot/transit/pkg/config"
	"github.com/dmitrymomot/transit/pkg/logger"
	"github.com/dmitrymomot/transit/pkg/redis"
	"github.com/dmitrymomot/transit/pkg/statemachine"
)

// jobIDKey carries the job ID in the context; the logger adds it to every
// record logged with that context.
type jobIDKey struct{}

type appConfig struct {
	Env       string        `env:"APP_ENV" envDefault:"development"`
	Version   string        `env:"APP_VERSION"`
	LogLevel  string        `env:"LOG_LEVEL"`
	LogFormat string        `env:"LOG_FORMAT"`
	JobID     string        `env:"DEMO_JOB_ID" envDefault:"fetch-1"`
	URL       string        `env:"DEMO_URL" envDefault:"https://example.com/archive.tar.gz"`
	Attempts  int           `env:"DEMO_ATTEMPTS" envDefault:"3"`
	Failures  int           `env:"DEMO_FAILURES" envDefault:"2"`
	Delay     time.Duration `env:"DEMO_DELAY" envDefault:"200ms"`
	Timeout   time.Duration `env:"DEMO_TIMEOUT" envDefault:"10s"`
	Redis     redis.Config
	Broadcast broadcast.RedisConfig
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	ctx = context.WithValue(ctx, jobIDKey{}, cfg.JobID)

	events, closeEvents, err := newBroadcaster(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeEvents()

	job := &fetchJob{
		failures:    cfg.Failures,
		maxAttempts: cfg.Attempts,
		delay:       cfg.Delay,
		log:         log.With(logger.Component("fetch-job")),
	}

	id := uuid.New()
	sub := events.Subscribe(ctx, id.String())
	defer sub.Close()

	m, err := job.machine(
		statemachine.WithID(id),
		statemachine.WithLogger(log),
		statemachine.WithBroadcaster(events),
		statemachine.WithObserver(logTransition(log)),
	)
	if err != nil {
		return fmt.Errorf("define job machine: %w", err)
	}
	if err := m.Start(ctx); err != nil {
		return fmt.Errorf("start job machine: %w", err)
	}
	if err := m.Process(ctx, cfg.URL); err != nil {
		return fmt.Errorf("submit job: %w", err)
	}

	e, err := statemachine.WaitFor(ctx, sub, stateDone, stateFailed)
	if err != nil {
		return fmt.Errorf("wait for job: %w", err)
	}
	if e.To == stateFailed {
		return fmt.Errorf("job failed after %d attempts: %w", job.attempts, job.err)
	}

	log.LogAttrs(ctx, slog.LevelInfo, "job finished",
		logger.Machine(m.ID()),
		logger.Attempt(job.attempts),
		slog.Int("bytes", job.size),
	)
	return nil
}

func newLogger(cfg appConfig) (*slog.Logger, error) {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, "transitdemo"),
		logger.WithAttr(slog.String("version", cfg.Version)),
		logger.WithContextValue("job_id", jobIDKey{}),
	}
	if cfg.LogLevel != "" {
		level, err := logger.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		opts = append(opts, logger.WithLevel(level))
	}
	if cfg.LogFormat != "" {
		format, err := logger.ParseFormat(cfg.LogFormat)
		if err != nil {
			return nil, err
		}
		opts = append(opts, logger.WithFormat(format))
	}
	return logger.New(opts...), nil
}

// newBroadcaster returns the transit event sink and a function releasing it.
func newBroadcaster(ctx context.Context, cfg appConfig, log *slog.Logger) (broadcast.Broadcaster[statemachine.TransitEvent], func(), error) {
	if !cfg.Redis.Enabled() {
		b := broadcast.NewMemoryBroadcaster[statemachine.TransitEvent](16)
		return b, func() { _ = b.Close() }, nil
	}

	client, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	if err := redis.Healthcheck(client, cfg.Broadcast.ChannelPrefix+"healthcheck")(ctx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	log.Info("publishing transit events to redis", slog.String("prefix", cfg.Broadcast.ChannelPrefix))

	b := broadcast.NewRedisBroadcaster[statemachine.TransitEvent](client, cfg.Broadcast)
	return b, func() {
		_ = b.Close()
		_ = client.Close()
	}, nil
}

func logTransition(log *slog.Logger) statemachine.Observer {
	return func(ctx context.Context, m *statemachine.Machine, e statemachine.TransitEvent) {
		log.LogAttrs(ctx, slog.LevelInfo, "transition",
			logger.Machine(e.MachineID),
			logger.Transition(e.From, e.To),
			logger.Token(e.Token),
		)
	}
}
