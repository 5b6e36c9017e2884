// Package sqlite stores board snapshots in a SQLite file that several
// processes may share. Changes committed by any connection are detected
// through PRAGMA data_version.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ryanbastic/pixelboard/internal/gateway"
	"github.com/ryanbastic/pixelboard/internal/grid"
	"github.com/ryanbastic/pixelboard/internal/message"
	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS board_messages (
		board     TEXT    NOT NULL,
		position  INTEGER NOT NULL,
		id        TEXT    NOT NULL,
		cells     TEXT    NOT NULL,
		content   TEXT    NOT NULL,
		bold      INTEGER NOT NULL DEFAULT 0,
		italic    INTEGER NOT NULL DEFAULT 0,
		underline INTEGER NOT NULL DEFAULT 0,
		ts        INTEGER NOT NULL,
		color     TEXT    NOT NULL,
		PRIMARY KEY (board, id)
	);
	CREATE INDEX IF NOT EXISTS idx_board_messages_position ON board_messages (board, position);
`

// Gateway is a gateway.Gateway for one board in a SQLite file. Subscribers
// must not call Save.
type Gateway struct {
	db     *sql.DB
	watch  *sql.Conn
	board  string
	hub    *gateway.Memory
	logger *slog.Logger

	mu   sync.Mutex // serializes writes, reloads and their fan-out
	last []byte     // document form of the snapshot most recently fanned out

	cancel context.CancelFunc
	done   chan struct{}
}

// Open opens (creating if needed) the database at path and starts polling it
// every interval. Close releases it.
func Open(ctx context.Context, path, board string, interval time.Duration, logger *slog.Logger) (*Gateway, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("open sqlite gateway: %w", err)
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite gateway: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite gateway: %w", err)
	}

	watch, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite gateway: watch conn: %w", err)
	}

	g := &Gateway{
		db:     db,
		watch:  watch,
		board:  board,
		hub:    gateway.NewMemory(),
		logger: logger,
	}

	version, err := g.dataVersion(ctx)
	if err != nil {
		g.closeDB()
		return nil, err
	}
	snap, err := g.Load(ctx)
	if err != nil {
		g.closeDB()
		return nil, err
	}
	g.last, _ = message.MarshalDocument(snap)
	g.hub.Save(ctx, snap)

	pollCtx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	g.done = make(chan struct{})
	go g.poll(pollCtx, interval, version)

	return g, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + q.Encode()
}

func (g *Gateway) Name() string { return "sqlite" }

// Close stops polling and closes the database.
func (g *Gateway) Close() error {
	g.cancel()
	<-g.done
	return g.closeDB()
}

func (g *Gateway) closeDB() error {
	g.watch.Close()
	return g.db.Close()
}

func (g *Gateway) Ping(ctx context.Context) error {
	return g.db.PingContext(ctx)
}

func (g *Gateway) Save(ctx context.Context, snap message.Snapshot) error {
	doc, err := message.MarshalDocument(snap)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.write(ctx, snap); err != nil {
		return err
	}
	g.last = doc
	return g.hub.Save(ctx, snap)
}

func (g *Gateway) write(ctx context.Context, snap message.Snapshot) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save board: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM board_messages WHERE board = ?`, g.board); err != nil {
		return fmt.Errorf("save board: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO board_messages (board, position, id, cells, content, bold, italic, underline, ts, color)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save board: prepare: %w", err)
	}
	defer stmt.Close()

	for i, r := range snap {
		cells, err := json.Marshal(r.Cells)
		if err != nil {
			return fmt.Errorf("save board: encode cells: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, g.board, i, r.ID, string(cells), r.Content,
			r.Format.Bold, r.Format.Italic, r.Format.Underline, r.Timestamp, r.Color); err != nil {
			return fmt.Errorf("save board: insert %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save board: commit: %w", err)
	}
	return nil
}

// Load reads the stored board, oldest record first.
func (g *Gateway) Load(ctx context.Context) (message.Snapshot, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT id, cells, content, bold, italic, underline, ts, color
		FROM board_messages
		WHERE board = ?
		ORDER BY position ASC
	`, g.board)
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	defer rows.Close()

	snap := message.Snapshot{}
	for rows.Next() {
		var r message.Record
		var cells string
		if err := rows.Scan(&r.ID, &cells, &r.Content,
			&r.Format.Bold, &r.Format.Italic, &r.Format.Underline,
			&r.Timestamp, &r.Color); err != nil {
			return nil, fmt.Errorf("load board scan: %w", err)
		}
		var ids []grid.CellID
		if err := json.Unmarshal([]byte(cells), &ids); err != nil {
			return nil, fmt.Errorf("load board: decode cells of %s: %w", r.ID, err)
		}
		r.Cells = ids
		snap = append(snap, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	return snap, nil
}

func (g *Gateway) Subscribe(ctx context.Context, fn gateway.SnapshotFunc) (gateway.Subscription, error) {
	return g.hub.Subscribe(ctx, fn)
}

func (g *Gateway) dataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := g.watch.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read data_version: %w", err)
	}
	return v, nil
}

func (g *Gateway) poll(ctx context.Context, interval time.Duration, version int64) {
	defer close(g.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		v, err := g.dataVersion(ctx)
		if err != nil {
			if ctx.Err() == nil {
				g.logger.Warn("board poll failed", "board", g.board, "error", err)
			}
			continue
		}
		if v == version {
			continue
		}
		version = v
		g.reload(ctx)
	}
}

// reload pushes the stored board to subscribers unless it matches what was
// last fanned out.
func (g *Gateway) reload(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap, err := g.Load(ctx)
	if err != nil {
		if ctx.Err() == nil {
			g.logger.Error("board reload failed", "board", g.board, "error", err)
		}
		return
	}
	doc, err := message.MarshalDocument(snap)
	if err != nil || bytes.Equal(doc, g.last) {
		return
	}
	g.last = doc

	g.logger.Debug("board changed in database", "board", g.board, "messages", len(snap))
	g.hub.Save(ctx, snap)
}
