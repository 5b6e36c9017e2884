// Package disk stores the board as a single JSON document in a directory and
// pushes changes made by other processes sharing that directory.
package disk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/peterbourgon/diskv/v3"
	"github.com/ryanbastic/pixelboard/internal/gateway"
	"github.com/ryanbastic/pixelboard/internal/message"
)

const debounce = 50 * time.Millisecond

// Gateway keeps the board under one diskv key. Saves from this process are
// fanned out directly; the directory watch picks up writes from elsewhere.
// Subscribers must not call Save.
type Gateway struct {
	d      *diskv.Diskv
	dir    string
	key    string
	hub    *gateway.Memory
	logger *slog.Logger

	mu   sync.Mutex // serializes writes, reloads and their fan-out
	last []byte     // bytes most recently written or read

	cancel context.CancelFunc
	done   chan struct{}
}

// Open loads the document stored under key in dir and starts watching dir.
// Close stops the watch.
func Open(dir, key string, logger *slog.Logger) (*Gateway, error) {
	if key == "" || filepath.Base(key) != key {
		return nil, fmt.Errorf("open disk gateway: invalid key %q", key)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("open disk gateway: %w", err)
	}

	g := &Gateway{
		d: diskv.New(diskv.Options{
			BasePath:     dir,
			TempDir:      filepath.Join(dir, ".tmp"),
			Transform:    func(string) []string { return []string{} },
			CacheSizeMax: 0,
		}),
		dir:    dir,
		key:    key,
		hub:    gateway.NewMemory(),
		logger: logger,
	}

	data, snap, err := g.read()
	if err != nil {
		return nil, fmt.Errorf("open disk gateway: %w", err)
	}
	g.last = data
	g.hub.Save(context.Background(), snap)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("open disk gateway: create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("open disk gateway: watch %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	g.done = make(chan struct{})
	go g.watch(ctx, watcher)

	return g, nil
}

func (g *Gateway) Name() string { return "disk" }

// Close stops watching the directory.
func (g *Gateway) Close() error {
	g.cancel()
	<-g.done
	return nil
}

func (g *Gateway) Save(ctx context.Context, snap message.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := message.MarshalDocument(snap)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.d.Write(g.key, data); err != nil {
		return fmt.Errorf("write board document: %w", err)
	}
	g.last = data
	return g.hub.Save(ctx, snap)
}

func (g *Gateway) Subscribe(ctx context.Context, fn gateway.SnapshotFunc) (gateway.Subscription, error) {
	return g.hub.Subscribe(ctx, fn)
}

// Ping checks the directory is still reachable.
func (g *Gateway) Ping(_ context.Context) error {
	if _, err := os.Stat(g.dir); err != nil {
		return fmt.Errorf("stat data dir: %w", err)
	}
	return nil
}

// read returns the stored document. A missing key is an empty board.
func (g *Gateway) read() ([]byte, message.Snapshot, error) {
	data, err := g.d.Read(g.key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, message.Snapshot{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read board document: %w", err)
	}
	snap, err := message.UnmarshalDocument(data)
	if err != nil {
		return nil, nil, err
	}
	return data, snap, nil
}

func (g *Gateway) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer close(g.done)
	defer watcher.Close()

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			g.logger.Warn("board watch error", "dir", g.dir, "error", err)
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(evt.Name) != g.key {
				continue
			}
			timer.Reset(debounce)
		case <-timer.C:
			g.reload(ctx)
		}
	}
}

// reload pushes the stored document to subscribers unless it is what this
// gateway last saw.
func (g *Gateway) reload(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()

	data, snap, err := g.read()
	if err != nil {
		g.logger.Error("board reload failed", "key", g.key, "error", err)
		return
	}
	if bytes.Equal(data, g.last) {
		return
	}
	g.last = data

	g.logger.Debug("board changed on disk", "key", g.key, "messages", len(snap))
	g.hub.Save(ctx, snap)
}
