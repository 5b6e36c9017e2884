package trigger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Board events a plugin can subscribe to.
const (
	EventMessageCreated = "message.created"
	EventMessagePruned  = "message.pruned"
)

// Events lists every event a plugin can subscribe to.
var Events = []string{EventMessageCreated, EventMessagePruned}

// ErrPluginNotFound is returned for an unknown plugin id.
var ErrPluginNotFound = errors.New("plugin not found")

// ErrUnknownEvent is returned when a plugin subscribes to an event the board
// never emits.
var ErrUnknownEvent = errors.New("unknown event")

// PluginStatus represents the activation state of a plugin.
type PluginStatus string

const (
	PluginStatusActive   PluginStatus = "active"
	PluginStatusInactive PluginStatus = "inactive"
)

// Plugin is an external JSON-RPC service that receives board notifications.
type Plugin struct {
	ID               uuid.UUID    `json:"id"`
	Name             string       `json:"name"`
	Endpoint         string       `json:"endpoint"`
	SubscribedEvents []string     `json:"subscribed_events"`
	Status           PluginStatus `json:"status"`
	CreatedAt        time.Time    `json:"created_at"`
}

// ValidateEvents checks every event name is one the board emits.
func ValidateEvents(events []string) error {
	for _, e := range events {
		if !slices.Contains(Events, e) {
			return fmt.Errorf("%w: %q", ErrUnknownEvent, e)
		}
	}
	return nil
}

// PluginRegistry is a thread-safe store of registered plugins, optionally
// persisted through a PluginStore.
type PluginRegistry struct {
	mu      sync.RWMutex
	plugins map[uuid.UUID]*Plugin
	store   PluginStore
}

// NewPluginRegistry creates an empty registry. store may be nil.
func NewPluginRegistry(store PluginStore) *PluginRegistry {
	return &PluginRegistry{plugins: make(map[uuid.UUID]*Plugin), store: store}
}

// LoadAll replaces the registry contents with the persisted plugins. It is a
// no-op without a store.
func (r *PluginRegistry) LoadAll(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	plugins, err := r.store.ListPlugins(ctx)
	if err != nil {
		return fmt.Errorf("load plugins: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = make(map[uuid.UUID]*Plugin, len(plugins))
	for _, p := range plugins {
		r.plugins[p.ID] = p
	}
	return nil
}

// Register assigns an ID and creation timestamp, persists the plugin when a
// store is configured, and adds it to the registry.
func (r *PluginRegistry) Register(p *Plugin) error {
	if err := ValidateEvents(p.SubscribedEvents); err != nil {
		return err
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	if p.Status == "" {
		p.Status = PluginStatusActive
	}

	if r.store != nil {
		if err := r.store.SavePlugin(context.Background(), p); err != nil {
			return fmt.Errorf("register plugin: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[p.ID] = p
	return nil
}

// Get returns a plugin by ID.
func (r *PluginRegistry) Get(id uuid.UUID) (*Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	return p, nil
}

// List returns all registered plugins, oldest first.
func (r *PluginRegistry) List() []*Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Plugin) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

// Delete removes a plugin by ID.
func (r *PluginRegistry) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plugins[id]; !ok {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	if r.store != nil {
		if err := r.store.DeletePlugin(context.Background(), id); err != nil {
			return fmt.Errorf("delete plugin: %w", err)
		}
	}
	delete(r.plugins, id)
	return nil
}

// ForEvent returns all active plugins subscribed to event.
func (r *PluginRegistry) ForEvent(event string) []*Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Plugin
	for _, p := range r.plugins {
		if p.Status != PluginStatusActive {
			continue
		}
		if slices.Contains(p.SubscribedEvents, event) {
			out = append(out, p)
		}
	}
	return out
}
