// Package resilience guards the Places, Claude and WhatsApp calls made
// during an audit with retries and per-service circuit breakers.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// CircuitState is where a breaker sits in its closed/open/half-open cycle.
// The numeric value is exported as the aidiscovery_circuit_state gauge.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s CircuitState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ErrCircuitOpen rejects calls while a service is cooling down.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// CircuitBreakerConfig tunes a Breaker. Zero fields take the defaults from
// DefaultCircuitBreakerConfig.
type CircuitBreakerConfig struct {
	// FailureThreshold consecutive tripping failures open the circuit.
	FailureThreshold int
	// ResetTimeout is the cooldown before a probe is let through.
	ResetTimeout time.Duration
	// Probes is how many half-open calls must succeed to close again.
	Probes int
	// ShouldTrip decides which errors count as failures. By default every
	// error does except the caller's own cancellation.
	ShouldTrip func(err error) bool
}

// DefaultCircuitBreakerConfig opens after 5 failures and probes after 30s.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{FailureThreshold: 5, ResetTimeout: 30 * time.Second, Probes: 1}
}

func (c CircuitBreakerConfig) normalize() CircuitBreakerConfig {
	d := DefaultCircuitBreakerConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = d.ResetTimeout
	}
	if c.Probes <= 0 {
		c.Probes = d.Probes
	}
	if c.ShouldTrip == nil {
		c.ShouldTrip = countsAsFailure
	}
	return c
}

func countsAsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// Breaker is a circuit breaker for one external service.
type Breaker struct {
	name     string
	cfg      CircuitBreakerConfig
	now      func() time.Time
	onChange func(service string, from, to CircuitState)

	mu        sync.Mutex
	state     CircuitState
	failures  int
	openedAt  time.Time
	inflight  int
	succeeded int
}

// NewBreaker creates a closed breaker for the named service.
func NewBreaker(name string, cfg CircuitBreakerConfig) *Breaker {
	return &Breaker{name: name, cfg: cfg.normalize(), now: time.Now}
}

// Name is the service the breaker guards.
func (b *Breaker) Name() string { return b.name }

// State reports the current state. An open breaker whose cooldown has
// elapsed reports half-open even before the next call moves it there.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == CircuitOpen && b.cooled() {
		return CircuitHalfOpen
	}
	return b.state
}

// Execute runs fn unless the circuit is open.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := ExecuteVal(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// ExecuteVal runs fn through b and returns its value. Rejected calls get
// ErrCircuitOpen without fn being invoked.
func ExecuteVal[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	probe, err := b.admit()
	if err != nil {
		var zero T
		return zero, eris.Wrapf(err, "%s", b.name)
	}
	v, err := fn(ctx)
	b.settle(probe, err)
	return v, err
}

func (b *Breaker) cooled() bool {
	return b.now().Sub(b.openedAt) >= b.cfg.ResetTimeout
}

// admit reports whether the call is a half-open probe.
func (b *Breaker) admit() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitOpen {
		if !b.cooled() {
			return false, ErrCircuitOpen
		}
		b.moveTo(CircuitHalfOpen)
	}
	if b.state == CircuitHalfOpen {
		if b.inflight >= b.cfg.Probes {
			return false, ErrCircuitOpen
		}
		b.inflight++
		return true, nil
	}
	return false, nil
}

func (b *Breaker) settle(probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		b.inflight--
	}
	failed := b.cfg.ShouldTrip(err)

	switch {
	case !failed && b.state == CircuitHalfOpen:
		b.succeeded++
		if b.succeeded >= b.cfg.Probes {
			b.moveTo(CircuitClosed)
		}
	case !failed:
		b.failures = 0
	case b.state == CircuitHalfOpen:
		b.trip()
	default:
		b.failures++
		if b.state == CircuitClosed && b.failures >= b.cfg.FailureThreshold {
			b.trip()
		}
	}
}

func (b *Breaker) trip() {
	b.openedAt = b.now()
	b.moveTo(CircuitOpen)
}

// moveTo must be called with mu held.
func (b *Breaker) moveTo(to CircuitState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.failures = 0
	b.succeeded = 0
	if b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}
