// Package board ties the message store to a persistence gateway and exposes
// the state viewers render: the shared Board and a per-viewer Session.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ryanbastic/pixelboard/internal/gateway"
	"github.com/ryanbastic/pixelboard/internal/grid"
	"github.com/ryanbastic/pixelboard/internal/message"
	"github.com/ryanbastic/pixelboard/internal/metrics"
)

// Observer is told about board changes made on this node. Calls are
// synchronous; implementations must not block.
type Observer interface {
	MessageCreated(ctx context.Context, r message.Record)
	MessagesPruned(ctx context.Context, rs []message.Record)
}

// Option configures a Board.
type Option func(*Board)

// WithObserver registers an Observer.
func WithObserver(o Observer) Option {
	return func(b *Board) { b.observers = append(b.observers, o) }
}

// WithClock overrides the time source used for record ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.storeOpts = append(b.storeOpts, message.WithClock(now)) }
}

// Board is the message store shared by every viewer on this node. Local
// creates are saved through the gateway; every snapshot the gateway pushes
// replaces the store wholesale.
type Board struct {
	gw        gateway.Gateway
	logger    *slog.Logger
	observers []Observer
	storeOpts []message.Option

	saveMu sync.Mutex // orders create+save pairs so saves land in creation order

	mu    sync.RWMutex
	store *message.Store

	notifyMu sync.Mutex // held while watchers run so they see changes in order
	watchMu  sync.Mutex
	watchers map[int]func(message.Snapshot)
	nextW    int

	sub gateway.Subscription
}

// New creates a Board. Call Start to load the stored board and follow
// changes.
func New(gw gateway.Gateway, colors message.ColorPicker, logger *slog.Logger, opts ...Option) *Board {
	b := &Board{
		gw:       gw,
		logger:   logger,
		watchers: make(map[int]func(message.Snapshot)),
	}
	for _, o := range opts {
		o(b)
	}
	b.store = message.NewStore(colors, b.storeOpts...)
	return b
}

// Start subscribes to the gateway. On failure the board keeps working from
// memory and the error is returned for the caller to report.
func (b *Board) Start(ctx context.Context) error {
	sub, err := b.gw.Subscribe(ctx, b.apply)
	if err != nil {
		return fmt.Errorf("subscribe to %s gateway: %w", b.gw.Name(), err)
	}
	b.sub = sub
	return nil
}

// Close ends the gateway subscription.
func (b *Board) Close() error {
	if b.sub == nil {
		return nil
	}
	return b.sub.Close()
}

// apply replaces the store with a pushed snapshot.
func (b *Board) apply(snap message.Snapshot) {
	b.mu.Lock()
	if b.store.Snapshot().Equal(snap) {
		b.mu.Unlock()
		return
	}
	b.store.Replace(snap)
	current := b.store.Snapshot()
	b.notifyMu.Lock()
	b.mu.Unlock()
	defer b.notifyMu.Unlock()

	metrics.SnapshotApplied(len(current))
	b.logger.Debug("board snapshot applied", "backend", b.gw.Name(), "messages", len(current))
	b.broadcast(current)
}

// Post creates a record from a committed selection, prunes shadowed records,
// and saves the board. Save failures are logged, not returned: the local
// store stays authoritative for this node.
func (b *Board) Post(ctx context.Context, cells []grid.CellID, content string, format message.Format) (message.Record, error) {
	b.saveMu.Lock()
	defer b.saveMu.Unlock()

	b.mu.Lock()
	rec, err := b.store.Create(cells, content, format)
	if err != nil {
		b.mu.Unlock()
		metrics.SubmissionRejected(rejectReason(err))
		b.logger.Debug("submission rejected", "error", err)
		return message.Record{}, err
	}
	pruned := b.store.ResolveOverlaps()
	snap := b.store.Snapshot()
	b.notifyMu.Lock()
	b.mu.Unlock()

	metrics.MessageCreated(len(snap))
	metrics.MessagesPruned(len(pruned))
	b.logger.Info("message created",
		"message_id", rec.ID,
		"cells", len(rec.Cells),
		"color", rec.Color,
		"pruned", len(pruned),
	)
	b.broadcast(snap)
	b.notifyMu.Unlock()

	if err := b.gw.Save(ctx, snap); err != nil {
		b.logger.Warn("board save failed", "backend", b.gw.Name(), "message_id", rec.ID, "error", err)
	}

	for _, o := range b.observers {
		o.MessageCreated(ctx, rec)
		if len(pruned) > 0 {
			o.MessagesPruned(ctx, pruned)
		}
	}
	return rec, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, message.ErrEmptyContent):
		return "empty_content"
	case errors.Is(err, message.ErrEmptySelection):
		return "empty_selection"
	default:
		return "invalid"
	}
}

// Snapshot returns the current board, oldest record first.
func (b *Board) Snapshot() message.Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store.Snapshot()
}

// Record returns the record with the given id.
func (b *Board) Record(id string) (message.Record, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store.Get(id)
}

// OwnerOf returns the record painted on top of cell.
func (b *Board) OwnerOf(cell grid.CellID) (message.Record, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	id, ok := b.store.Owners()[cell]
	if !ok {
		return message.Record{}, false
	}
	return b.store.Get(id)
}

// Len returns the number of records on the board.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store.Len()
}

// Paint returns the paint plan of the current board for a layout.
func (b *Board) Paint(l grid.Layout) []PaintedCell {
	return Paint(b.Snapshot(), l)
}

// Watch calls fn with the full board after every change until the returned
// function is called. fn runs synchronously with the change and must not
// call Post.
func (b *Board) Watch(fn func(message.Snapshot)) (stop func()) {
	b.watchMu.Lock()
	id := b.nextW
	b.nextW++
	b.watchers[id] = fn
	b.watchMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.watchMu.Lock()
			delete(b.watchers, id)
			b.watchMu.Unlock()
		})
	}
}

func (b *Board) broadcast(snap message.Snapshot) {
	b.watchMu.Lock()
	fns := make([]func(message.Snapshot), 0, len(b.watchers))
	for _, fn := range b.watchers {
		fns = append(fns, fn)
	}
	b.watchMu.Unlock()

	for _, fn := range fns {
		fn(snap.Clone())
	}
}

// Ping reports gateway readiness.
func (b *Board) Ping(ctx context.Context) error {
	if p, ok := b.gw.(gateway.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
