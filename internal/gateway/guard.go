package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ryanbastic/pixelboard/internal/message"
	"github.com/ryanbastic/pixelboard/internal/metrics"
)

// BreakerState is the circuit breaker state.
type BreakerState int

const (
	Closed   BreakerState = iota // Saves pass through.
	Open                         // Saves are dropped without touching the backend.
	HalfOpen                     // One trial save is allowed through.
)

func (s BreakerState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a save is dropped because the backend has
// been failing.
var ErrCircuitOpen = fmt.Errorf("%w: circuit breaker is open", ErrUnavailable)

// Breaker opens after maxFailures consecutive errors and lets a trial save through
// once resetTimeout has passed.
type Breaker struct {
	mu              sync.Mutex
	state           BreakerState
	failures        int
	maxFailures     int
	resetTimeout    time.Duration
	lastFailureTime time.Time
	onChange        func(BreakerState)
}

// NewBreaker creates a closed Breaker. onChange, if non-nil, is called with
// the new state on every transition, outside the breaker's lock.
func NewBreaker(maxFailures int, resetTimeout time.Duration, onChange func(BreakerState)) *Breaker {
	return &Breaker{
		state:        Closed,
		maxFailures:  max(maxFailures, 1),
		resetTimeout: resetTimeout,
		onChange:     onChange,
	}
}

// Execute runs fn unless the breaker is open.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	if b.state == Open {
		if time.Since(b.lastFailureTime) <= b.resetTimeout {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.state = HalfOpen
		b.mu.Unlock()
		b.notify(HalfOpen)
	} else {
		b.mu.Unlock()
	}

	err := fn()

	b.mu.Lock()
	prev := b.state
	if err != nil {
		b.failures++
		b.lastFailureTime = time.Now()
		if b.failures >= b.maxFailures || prev == HalfOpen {
			b.state = Open
		}
	} else {
		b.failures = 0
		b.state = Closed
	}
	next := b.state
	b.mu.Unlock()

	if next != prev {
		b.notify(next)
	}
	return err
}

func (b *Breaker) notify(s BreakerState) {
	if b.onChange != nil {
		b.onChange(s)
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Guarded wraps a Gateway with a circuit breaker on saves, wraps backend
// errors in ErrUnavailable, and records metrics for every call.
type Guarded struct {
	inner   Gateway
	breaker *Breaker
	logger  *slog.Logger
}

// Guard wraps inner.
func Guard(inner Gateway, maxFailures int, resetTimeout time.Duration, logger *slog.Logger) *Guarded {
	g := &Guarded{inner: inner, logger: logger}
	g.breaker = NewBreaker(maxFailures, resetTimeout, func(s BreakerState) {
		metrics.BreakerState(inner.Name(), int(s))
		logger.Warn("gateway breaker state changed", "backend", inner.Name(), "state", s.String())
	})
	metrics.BreakerState(inner.Name(), int(Closed))
	return g
}

func (g *Guarded) Name() string { return g.inner.Name() }

// Breaker exposes the breaker for health reporting.
func (g *Guarded) Breaker() *Breaker { return g.breaker }

func (g *Guarded) Save(ctx context.Context, snap message.Snapshot) error {
	err := g.breaker.Execute(func() error {
		return g.inner.Save(ctx, snap)
	})
	metrics.GatewayOp(g.inner.Name(), "save", err)
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: save: %w", ErrUnavailable, err)
}

func (g *Guarded) Subscribe(ctx context.Context, fn SnapshotFunc) (Subscription, error) {
	sub, err := g.inner.Subscribe(ctx, fn)
	metrics.GatewayOp(g.inner.Name(), "subscribe", err)
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe: %w", ErrUnavailable, err)
	}
	return sub, nil
}

// Ping reports ErrCircuitOpen while the breaker is open, and otherwise
// forwards to the wrapped backend when it supports readiness checks.
func (g *Guarded) Ping(ctx context.Context) error {
	if g.breaker.State() == Open {
		return ErrCircuitOpen
	}
	if p, ok := g.inner.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
