// Package gateway defines the persistence boundary of the board. A Gateway
// stores complete snapshots and pushes the latest snapshot to subscribers
// whenever it changes. Every pushed snapshot is authoritative: subscribers
// replace their local state rather than merging.
package gateway

import (
	"context"
	"errors"

	"github.com/ryanbastic/pixelboard/internal/message"
)

// ErrUnavailable wraps every failure to reach the backing store.
var ErrUnavailable = errors.New("gateway unavailable")

// SnapshotFunc receives a snapshot. Implementations call it from a single
// goroutine per subscription, never concurrently with itself. It must not
// call Save on the same gateway.
type SnapshotFunc func(message.Snapshot)

// Subscription is an active snapshot feed.
type Subscription interface {
	Close() error
}

// Gateway is durable storage for the whole board.
type Gateway interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Save replaces the stored board with snap.
	Save(ctx context.Context, snap message.Snapshot) error

	// Subscribe delivers the current board to fn before returning, and every
	// later change until the subscription is closed or ctx is cancelled.
	Subscribe(ctx context.Context, fn SnapshotFunc) (Subscription, error)
}

// Pinger is implemented by backends that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func() error

func (f SubscriptionFunc) Close() error { return f() }
