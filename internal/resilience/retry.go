package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig describes exponential backoff between attempts. Zero fields
// take the defaults from DefaultRetryConfig, except JitterFraction where
// zero means no jitter.
type RetryConfig struct {
	// MaxAttempts counts the first try; 1 disables retries.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	// JitterFraction spreads each delay by up to ±fraction of itself.
	JitterFraction float64

	// Retryable overrides IsTransient.
	Retryable func(err error) bool
	// OnRetry runs before each backoff with the 1-based attempt that failed.
	// When nil the retry is logged at debug level.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig makes three attempts starting at 500ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2,
		JitterFraction: 0.25,
	}
}

func (c RetryConfig) normalize() RetryConfig {
	d := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.Multiplier <= 0 {
		c.Multiplier = d.Multiplier
	}
	c.JitterFraction = math.Max(0, math.Min(c.JitterFraction, 1))
	if c.Retryable == nil {
		c.Retryable = IsTransient
	}
	if c.OnRetry == nil {
		c.OnRetry = func(attempt int, err error) {
			zap.L().Debug("resilience: retrying", zap.Int("attempt", attempt), zap.Error(err))
		}
	}
	return c
}

// backoff is the delay after the given 0-based attempt.
func (c RetryConfig) backoff(attempt int) time.Duration {
	d := math.Min(float64(c.InitialBackoff)*math.Pow(c.Multiplier, float64(attempt)), float64(c.MaxBackoff))
	if c.JitterFraction > 0 {
		d += d * c.JitterFraction * (2*rand.Float64() - 1)
	}
	return time.Duration(math.Max(d, 0))
}

// Do calls fn until it succeeds, returns a non-retryable error, runs out of
// attempts, or ctx ends. The last error is returned.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for calls that return a value.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.normalize()
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		switch {
		case err == nil:
			return v, nil
		case ctx.Err() != nil, !cfg.Retryable(err), attempt+1 >= cfg.MaxAttempts:
			return zero, err
		}
		cfg.OnRetry(attempt+1, err)
		if Sleep(ctx, cfg.backoff(attempt)) != nil {
			return zero, err
		}
	}
}
