// Package postgres stores board snapshots in PostgreSQL and pushes changes
// to subscribers over LISTEN/NOTIFY.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ryanbastic/pixelboard/internal/gateway"
	"github.com/ryanbastic/pixelboard/internal/grid"
	"github.com/ryanbastic/pixelboard/internal/message"
)

// Channel is the notification channel; the payload is the board name.
const Channel = "board_snapshot"

var columns = []string{"board", "position", "id", "cells", "content", "bold", "italic", "underline", "ts", "color"}

// Gateway is a gateway.Gateway for one board.
type Gateway struct {
	pool           *pgxpool.Pool
	board          string
	queryTimeout   time.Duration
	reconnectDelay time.Duration
	logger         *slog.Logger
}

// New creates a Gateway for board. queryTimeout sets the per-query context
// deadline; zero means no timeout.
func New(pool *pgxpool.Pool, board string, queryTimeout time.Duration, logger *slog.Logger) *Gateway {
	return &Gateway{
		pool:           pool,
		board:          board,
		queryTimeout:   queryTimeout,
		reconnectDelay: time.Second,
		logger:         logger,
	}
}

func (g *Gateway) Name() string { return "postgres" }

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.queryTimeout > 0 {
		return context.WithTimeout(ctx, g.queryTimeout)
	}
	return ctx, func() {}
}

func (g *Gateway) Ping(ctx context.Context) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	return g.pool.Ping(ctx)
}

// Save replaces every row of the board and notifies listeners in the same
// transaction. Saves of one board are serialised by a transaction-scoped
// advisory lock on the board name, so two writers never interleave their
// DELETE and COPY.
func (g *Gateway) Save(ctx context.Context, snap message.Snapshot) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save board: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, g.board); err != nil {
		return fmt.Errorf("save board: lock: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM board_messages WHERE board = $1`, g.board); err != nil {
		return fmt.Errorf("save board: clear: %w", err)
	}

	rows := make([][]any, len(snap))
	for i, r := range snap {
		rows[i] = []any{
			g.board, i, r.ID, cellStrings(r.Cells), r.Content,
			r.Format.Bold, r.Format.Italic, r.Format.Underline,
			r.Timestamp, r.Color,
		}
	}
	if len(rows) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"board_messages"}, columns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("save board: copy: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, Channel, g.board); err != nil {
		return fmt.Errorf("save board: notify: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("save board: commit: %w", err)
	}
	return nil
}

// Load reads the stored board, oldest record first.
func (g *Gateway) Load(ctx context.Context) (message.Snapshot, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	rows, err := g.pool.Query(ctx, `
		SELECT id, cells, content, bold, italic, underline, ts, color
		FROM board_messages
		WHERE board = $1
		ORDER BY position ASC
	`, g.board)
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	defer rows.Close()

	snap := message.Snapshot{}
	for rows.Next() {
		var r message.Record
		var cells []string
		if err := rows.Scan(&r.ID, &cells, &r.Content,
			&r.Format.Bold, &r.Format.Italic, &r.Format.Underline,
			&r.Timestamp, &r.Color); err != nil {
			return nil, fmt.Errorf("load board scan: %w", err)
		}
		r.Cells = cellIDs(cells)
		snap = append(snap, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	return snap, nil
}

// Subscribe listens on a dedicated connection. The LISTEN is issued before
// the initial load so no save between the two is missed.
func (g *Gateway) Subscribe(ctx context.Context, fn gateway.SnapshotFunc) (gateway.Subscription, error) {
	conn, err := g.listen(ctx)
	if err != nil {
		return nil, err
	}

	snap, err := g.Load(ctx)
	if err != nil {
		discard(conn)
		return nil, err
	}
	fn(snap)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go g.run(ctx, conn, fn, done)

	var once sync.Once
	return gateway.SubscriptionFunc(func() error {
		once.Do(func() {
			cancel()
			<-done
		})
		return nil
	}), nil
}

func (g *Gateway) listen(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe: acquire: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("subscribe: listen: %w", err)
	}
	return conn, nil
}

func (g *Gateway) run(ctx context.Context, conn *pgxpool.Conn, fn gateway.SnapshotFunc, done chan<- struct{}) {
	defer close(done)
	defer func() {
		if conn != nil {
			discard(conn)
		}
	}()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			g.logger.Warn("board listener lost connection", "board", g.board, "error", err)
			discard(conn)
			conn = g.reconnect(ctx)
			if conn == nil {
				return
			}
			// Catch up on anything saved while disconnected.
			g.deliver(ctx, fn)
			continue
		}
		if n.Payload != g.board {
			continue
		}
		g.deliver(ctx, fn)
	}
}

func (g *Gateway) deliver(ctx context.Context, fn gateway.SnapshotFunc) {
	snap, err := g.Load(ctx)
	if err != nil {
		if ctx.Err() == nil {
			g.logger.Error("board reload failed", "board", g.board, "error", err)
		}
		return
	}
	fn(snap)
}

func (g *Gateway) reconnect(ctx context.Context) *pgxpool.Conn {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(g.reconnectDelay):
		}
		conn, err := g.listen(ctx)
		if err == nil {
			return conn
		}
		g.logger.Warn("board listener reconnect failed", "board", g.board, "error", err)
	}
}

// discard removes a listening connection from the pool rather than returning
// it with an active LISTEN.
func discard(conn *pgxpool.Conn) {
	c := conn.Hijack()
	c.Close(context.Background())
}

func cellStrings(cells []grid.CellID) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = string(c)
	}
	return out
}

func cellIDs(cells []string) []grid.CellID {
	out := make([]grid.CellID, len(cells))
	for i, c := range cells {
		out[i] = grid.CellID(c)
	}
	return out
}
