package generator

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"
)

// RetryConfig controls the backoff between generator calls. The wait before
// retry n (0-based) is BaseDelay * 2^n, capped at MaxDelay.
type RetryConfig struct {
	Retries   int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Retries:   3,
		BaseDelay: time.Second,
		MaxDelay:  30 * time.Second,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// permanent marks err as not worth retrying.
func permanent(err error) error {
	return &permanentError{err: err}
}

func withRetry(ctx context.Context, cfg RetryConfig, operation string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= cfg.Retries; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				slog.Info("operation succeeded after retry", "operation", operation, "attempt", attempt+1)
			}
			return nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		if attempt >= cfg.Retries {
			slog.Warn("max retries exceeded", "operation", operation, "attempts", attempt+1, "error", err)
			break
		}

		delay := backoff(cfg, attempt)
		slog.Warn("operation failed, retrying",
			"operation", operation,
			"attempt", attempt+1,
			"max_attempts", cfg.Retries+1,
			"backoff", delay,
			"error", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

func backoff(cfg RetryConfig, attempt int) time.Duration {
	d := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if cfg.MaxDelay > 0 && d > float64(cfg.MaxDelay) {
		d = float64(cfg.MaxDelay)
	}
	return time.Duration(d)
}
