package resilience

import (
	"context"
	"time"
)

// WithFallback runs fn behind b and substitutes def when the call fails or
// the circuit is open. The error is still returned so callers can log it.
func WithFallback[T any](ctx context.Context, b *Breaker, def T, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := ExecuteVal(ctx, b, fn)
	if err != nil {
		return def, err
	}
	return v, nil
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
