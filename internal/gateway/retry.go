package gateway

import (
	"context"
	"errors"
	"time"
)

// RetryConfig bounds the transient-failure retry budget applied around every
// gateway call.
type RetryConfig struct {
	MaxAttempts int // total attempts, including the first
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
	}
}

func (c RetryConfig) attempts() int {
	if c.MaxAttempts < 1 {
		return 1
	}
	return c.MaxAttempts
}

func (c RetryConfig) delayFor(attempt int) time.Duration {
	delay := c.BaseDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * c.Multiplier)
		if delay >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	if delay > c.MaxDelay {
		return c.MaxDelay
	}
	return delay
}

// WithRetry runs fn with exponential backoff. Only retryable gateway errors
// (timeout, rate limited) consume the budget; anything else surfaces
// immediately. Cancellation is observed between attempts.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func() error) (int, error) {
	var lastErr error
	retries := 0

	for attempt := 1; attempt <= cfg.attempts(); attempt++ {
		if attempt > 1 {
			retries++
			select {
			case <-ctx.Done():
				return retries, &Error{Kind: KindCanceled, Err: ctx.Err()}
			case <-time.After(cfg.delayFor(attempt - 1)):
			}
		}

		err := fn()
		if err == nil {
			return retries, nil
		}
		lastErr = err

		var ge *Error
		if !errors.As(err, &ge) || !ge.Retryable() {
			return retries, err
		}
		if ctx.Err() != nil {
			return retries, &Error{Kind: KindCanceled, Err: ctx.Err()}
		}
	}

	return retries, lastErr
}
