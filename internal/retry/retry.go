// Package retry wraps calls to flaky external HTTP endpoints with
// exponential backoff. Only transient throttling is retried; provider-declared
// hard caps and ordinary request errors propagate immediately.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 2 * time.Second
	DefaultMaxDelay    = 30 * time.Second
)

// Envelope executes an operation under the retry policy. The zero value is
// not usable; construct with New.
type Envelope struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	logger      zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an Envelope. Non-positive arguments fall back to the defaults.
func New(maxAttempts int, baseDelay, maxDelay time.Duration, logger zerolog.Logger) *Envelope {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	return &Envelope{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		logger:      logger,
		sleep:       sleepCtx,
	}
}

// Execute runs op, retrying transient failures with exponential backoff
// (base delay doubled per attempt, capped). Hard-cap errors and any error
// not classified transient fail immediately. When attempts are exhausted the
// last error is wrapped in domain.ErrRetriesExhausted.
func (e *Envelope) Execute(ctx context.Context, name string, op func(ctx context.Context) error) error {
	delay := e.baseDelay
	var lastErr error

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				e.logger.Info().Str("op", name).Int("attempt", attempt).Msg("retry: succeeded after backoff")
			}
			return nil
		}

		if domain.IsHardCap(err) {
			e.logger.Warn().Str("op", name).Err(err).Msg("retry: hard cap, giving up")
			return err
		}
		if !domain.IsTransient(err) {
			return err
		}

		lastErr = err
		if attempt == e.maxAttempts {
			break
		}

		e.logger.Warn().
			Str("op", name).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Err(err).
			Msg("retry: transient failure, backing off")

		if err := e.sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
		if delay > e.maxDelay {
			delay = e.maxDelay
		}
	}

	return fmt.Errorf("%w: %s after %d attempts: %v", domain.ErrRetriesExhausted, name, e.maxAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
