// Package dispatch runs units of work fire-and-forget with a bounded retry
// policy. The webhook endpoint answers 200 immediately and submits the
// update here; Telegram's transport-level retries are deliberately not relied
// on, so retrying is this package's job.
package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultMaxAttempts    = 3
	defaultRetryDelay     = 2 * time.Second
	defaultAttemptTimeout = 90 * time.Second
)

// Policy bounds how a failed unit of work is retried before being surfaced
// as a final failure.
type Policy struct {
	// MaxAttempts caps total attempts, including the first (default 3).
	MaxAttempts int
	// Delay is the pause between attempts (default 2s).
	Delay time.Duration
	// Timeout bounds each individual attempt (default 90s).
	Timeout time.Duration
	// RetryIf decides whether a failed attempt is retried. A nil predicate
	// retries every error.
	RetryIf func(error) bool
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.Delay <= 0 {
		p.Delay = defaultRetryDelay
	}
	if p.Timeout <= 0 {
		p.Timeout = defaultAttemptTimeout
	}
	return p
}

// Submit schedules fn on its own goroutine and returns immediately. Once a
// unit of work starts it cannot be cancelled; each attempt runs under its own
// timeout and failures are retried per the policy. The final failure, if any,
// is logged and dropped.
func Submit(logger zerolog.Logger, name string, p Policy, fn func(ctx context.Context) error) {
	go Run(logger, name, p, fn)
}

// Run executes fn synchronously under the policy and returns the final
// error. Submit is Run on a goroutine; tests call Run directly.
func Run(logger zerolog.Logger, name string, p Policy, fn func(ctx context.Context) error) error {
	p = p.withDefaults()

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = runAttempt(p.Timeout, fn)
		if err == nil {
			if attempt > 1 {
				logger.Info().Str("task", name).Int("attempt", attempt).Msg("task succeeded after retry")
			}
			return nil
		}

		retriable := p.RetryIf == nil || p.RetryIf(err)
		if !retriable || attempt == p.MaxAttempts {
			break
		}
		logger.Warn().Err(err).
			Str("task", name).
			Int("attempt", attempt).
			Int("max_attempts", p.MaxAttempts).
			Msg("task attempt failed, retrying")
		time.Sleep(p.Delay)
	}

	logger.Error().Err(err).Str("task", name).Msg("task failed permanently")
	return err
}

func runAttempt(timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return fn(ctx)
}
