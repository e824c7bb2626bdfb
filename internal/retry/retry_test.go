package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamalink/mamalink-go/internal/apierr"
)

// recordingSleep collects requested delays without waiting.
func recordingSleep(delays *[]time.Duration) SleepFunc {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestDelay(t *testing.T) {
	cfg := Config{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 30 * time.Second, Factor: 2}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second}, // capped
		{7, 30 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Delay(tt.attempt, cfg), "attempt %d", tt.attempt)
	}
}

func TestDo_RetryBound(t *testing.T) {
	var delays []time.Duration
	cfg := Config{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		Factor:     2,
		Sleep:      recordingSleep(&delays),
	}

	attempts := 0
	err := Do(context.Background(), cfg, func() error {
		attempts++
		return &apierr.HTTPError{Status: 503, StatusText: "Service Unavailable"}
	})

	require.Error(t, err)
	assert.Equal(t, 4, attempts, "maxRetries=3 means exactly 4 attempts")

	var classified *apierr.Error
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, apierr.KindHTTP, classified.Kind)
	assert.Equal(t, 503, classified.Status)

	// Pure exponential backoff: delays monotonically non-decreasing.
	require.Len(t, delays, 3)
	assert.Equal(t, 100*time.Millisecond, delays[0])
	assert.Equal(t, 200*time.Millisecond, delays[1])
	assert.Equal(t, 400*time.Millisecond, delays[2])
}

func TestDo_NonRetryableFailsFast(t *testing.T) {
	var delays []time.Duration
	cfg := DefaultConfig()
	cfg.Sleep = recordingSleep(&delays)

	attempts := 0
	err := Do(context.Background(), cfg, func() error {
		attempts++
		return &apierr.HTTPError{Status: 404, StatusText: "Not Found"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts, "404 is not retried")
	assert.Empty(t, delays)
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	var delays []time.Duration
	cfg := DefaultConfig()
	cfg.Sleep = recordingSleep(&delays)

	attempts := 0
	err := Do(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return &apierr.HTTPError{Status: 500, StatusText: "Internal Server Error"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Len(t, delays, 2)
}

func TestDoResult_ReturnsValue(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sleep = recordingSleep(&[]time.Duration{})

	got, err := DoResult(context.Background(), cfg, func() (string, error) {
		return "hello", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := DefaultConfig()
	cfg.Sleep = func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	}

	attempts := 0
	err := Do(ctx, cfg, func() error {
		attempts++
		cancel()
		return &apierr.HTTPError{Status: 500, StatusText: "Internal Server Error"}
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, attempts, "no further attempts after cancellation")
}

func TestDo_WallClockLowerBound(t *testing.T) {
	// Real sleeps: 100ms + 200ms before the final rejection.
	cfg := Config{
		MaxRetries: 2,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		Factor:     2,
	}

	start := time.Now()
	err := Do(context.Background(), cfg, func() error {
		return &apierr.HTTPError{Status: 500, StatusText: "Internal Server Error"}
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
}
