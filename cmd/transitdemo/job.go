package main

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/dmitrymomot/transit/pkg/logger"
	"github.com/dmitrymomot/transit/pkg/statemachine"
)

const (
	stateIdle     = "idle"
	stateFetching = "fetching"
	stateRetrying = "retrying"
	stateDone     = "done"
	stateFailed   = "failed"
)

var errFetchFailed = errors.New("fetch failed")

// fetchJob simulates a download that fails a fixed number of times before it
// succeeds. Its fields are only touched from state hooks, which the machine
// serializes.
type fetchJob struct {
	url         string
	failures    int
	maxAttempts int
	delay       time.Duration
	log         *slog.Logger

	attempts int
	size     int
	err      error
}

// machine wires the job states:
//
//	idle --fetch--> fetching --done-N--> done
//	                   |error
//	                   v
//	               retrying --retry--> fetching
//	                   |give-up
//	                   v
//	                 failed
//
// A Process error in idle goes straight to failed.
func (j *fetchJob) machine(opts ...statemachine.Option) (*statemachine.Machine, error) {
	return statemachine.NewBuilder(opts...).
		State(stateIdle, &idleState{}).
		When("fetch").To(stateFetching).
		When(statemachine.ErrorToken).To(stateFailed).
		State(stateFetching, &fetchingState{job: j}).
		When(regexp.MustCompile(`^done-\d+$`)).To(stateDone).
		State(stateRetrying, &retryingState{job: j}).
		When("retry").To(stateFetching).
		When("give-up").To(stateFailed).
		State(stateDone, &doneState{job: j}).
		State(stateFailed, &failedState{job: j}).
		Error(stateRetrying).
		Build()
}

type idleState struct {
	statemachine.NopHandler
}

func (idleState) Process(t statemachine.Transit, args ...any) error {
	if len(args) == 0 {
		return errors.New("process: url argument required")
	}
	url, ok := args[0].(string)
	if !ok || url == "" {
		return fmt.Errorf("process: invalid url %v", args[0])
	}
	return t("fetch", url)
}

type fetchingState struct {
	statemachine.NopHandler
	job   *fetchJob
	delay statemachine.Delay
}

func (s *fetchingState) Enter(t statemachine.Transit, args ...any) error {
	j := s.job
	if len(args) > 0 {
		if url, ok := args[0].(string); ok {
			j.url = url
		}
	}
	j.attempts++
	j.log.Info("fetching", slog.String("url", j.url), logger.Attempt(j.attempts))

	if s.delay.OnError == nil {
		s.delay.OnError = func(err error) {
			j.log.Error("delayed transition rejected", logger.State(stateFetching), logger.Error(err))
		}
	}

	if j.attempts <= j.failures {
		s.delay.Schedule(j.delay, t, fmt.Errorf("%w: %s: connection refused", errFetchFailed, j.url))
		return nil
	}
	size := 512 * j.attempts
	s.delay.Schedule(j.delay, t, fmt.Sprintf("done-%d", size), size)
	return nil
}

func (s *fetchingState) Leave(string) error {
	s.delay.Cancel()
	return nil
}

type retryingState struct {
	statemachine.NopHandler
	job   *fetchJob
	delay statemachine.Delay
}

func (s *retryingState) Enter(t statemachine.Transit, args ...any) error {
	j := s.job
	var cause error
	if len(args) > 0 {
		cause, _ = args[0].(error)
	}
	j.err = cause

	if j.attempts >= j.maxAttempts {
		return t("give-up")
	}

	backoff := j.delay * time.Duration(j.attempts)
	j.log.Warn("fetch attempt failed, retrying",
		logger.Attempt(j.attempts),
		logger.Duration(backoff),
		logger.Error(cause),
	)
	s.delay.Schedule(backoff, t, "retry")
	return nil
}

func (s *retryingState) Leave(string) error {
	s.delay.Cancel()
	return nil
}

type doneState struct {
	statemachine.NopHandler
	job *fetchJob
}

func (s *doneState) Enter(_ statemachine.Transit, args ...any) error {
	if len(args) > 0 {
		s.job.size, _ = args[0].(int)
	}
	s.job.err = nil
	return nil
}

type failedState struct {
	statemachine.NopHandler
	job *fetchJob
}

func (s *failedState) Enter(_ statemachine.Transit, args ...any) error {
	if len(args) > 0 {
		if err, ok := args[0].(error); ok {
			s.job.err = err
		}
	}
	s.job.log.Error("giving up", logger.Attempt(s.job.attempts), logger.Error(s.job.err))
	return nil
}
