// Package retry provides a reusable retry/backoff policy around the error
// taxonomy in apierr. The dispatcher applies it at the transport boundary;
// write-critical service calls can override the bounds.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/mamalink/mamalink-go/internal/apierr"
)

// Default retry bounds.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1 * time.Second
	DefaultMaxDelay   = 30 * time.Second
	DefaultFactor     = 2.0
)

// SleepFunc waits for d or until ctx is done. Tests inject a recording
// implementation so retry loops run without wall-clock delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config configures retry behavior.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Factor     float64
	Sleep      SleepFunc // nil selects the context-aware default
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		Factor:     DefaultFactor,
	}
}

// Delay returns the backoff before retry attempt n (1-based):
// BaseDelay * Factor^(n-1), capped at MaxDelay. Pure exponential, no jitter.
func Delay(attempt int, cfg Config) time.Duration {
	factor := cfg.Factor
	if factor <= 0 {
		factor = DefaultFactor
	}
	d := float64(cfg.BaseDelay) * math.Pow(factor, float64(attempt-1))
	if d > float64(cfg.MaxDelay) {
		return cfg.MaxDelay
	}
	return time.Duration(d)
}

// sleep waits for the specified duration or until context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Do executes fn, retrying transient failures up to MaxRetries times.
// An always-failing retryable fn is attempted exactly MaxRetries+1 times.
// The returned error is always a classified *apierr.Error (or a context
// error when the wait was cancelled), never the raw underlying failure.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	_, err := DoResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoResult executes fn with retry logic and returns both result and error.
func DoResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	doSleep := cfg.Sleep
	if doSleep == nil {
		doSleep = sleep
	}

	var lastErr *apierr.Error
	for attempt := 1; attempt <= cfg.MaxRetries+1; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = apierr.Classify(err)
		if !apierr.IsRetryable(lastErr) || attempt > cfg.MaxRetries {
			break
		}

		if ctx.Err() != nil {
			var zero T
			return zero, ctx.Err()
		}
		if sleepErr := doSleep(ctx, Delay(attempt, cfg)); sleepErr != nil {
			var zero T
			return zero, sleepErr
		}
	}

	var zero T
	return zero, lastErr
}
