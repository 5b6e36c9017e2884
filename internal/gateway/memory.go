package gateway

import (
	"context"
	"sync"

	"github.com/ryanbastic/pixelboard/internal/message"
)

// Memory is an in-process Gateway. Every Board sharing a Memory sees the
// others' saves, which makes it the single-node realtime backend.
type Memory struct {
	deliver sync.Mutex // serializes fan-out so subscribers observe saves in order

	mu   sync.Mutex
	snap message.Snapshot
	subs map[int]SnapshotFunc
	next int
}

// NewMemory creates an empty in-process gateway.
func NewMemory() *Memory {
	return &Memory{subs: make(map[int]SnapshotFunc)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Save(ctx context.Context, snap message.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.deliver.Lock()
	defer m.deliver.Unlock()

	m.mu.Lock()
	m.snap = snap.Clone()
	subs := make([]SnapshotFunc, 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snap.Clone())
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, fn SnapshotFunc) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.deliver.Lock()
	defer m.deliver.Unlock()

	m.mu.Lock()
	id := m.next
	m.next++
	m.subs[id] = fn
	current := m.snap.Clone()
	m.mu.Unlock()

	fn(current)

	var once sync.Once
	done := make(chan struct{})
	unsubscribe := func() error {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			close(done)
		})
		return nil
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-done:
		}
	}()

	return SubscriptionFunc(unsubscribe), nil
}

// Snapshot returns the last saved board.
func (m *Memory) Snapshot() message.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Clone()
}
