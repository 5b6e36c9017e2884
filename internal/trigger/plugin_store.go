package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PluginStore persists the plugins registered against one board.
type PluginStore interface {
	SavePlugin(ctx context.Context, p *Plugin) error
	DeletePlugin(ctx context.Context, id uuid.UUID) error
	ListPlugins(ctx context.Context) ([]*Plugin, error)
}

// PostgresPluginStore keeps registrations in the board_plugins table, keyed
// by board name. Boards sharing a database never see each other's plugins.
type PostgresPluginStore struct {
	pool         *pgxpool.Pool
	board        string
	queryTimeout time.Duration
}

// NewPostgresPluginStore scopes the store to board. A zero queryTimeout
// leaves queries without a deadline.
func NewPostgresPluginStore(pool *pgxpool.Pool, board string, queryTimeout time.Duration) *PostgresPluginStore {
	return &PostgresPluginStore{pool: pool, board: board, queryTimeout: queryTimeout}
}

func (s *PostgresPluginStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout > 0 {
		return context.WithTimeout(ctx, s.queryTimeout)
	}
	return ctx, func() {}
}

// SavePlugin inserts p, or overwrites the stored copy when p.ID is known.
func (s *PostgresPluginStore) SavePlugin(ctx context.Context, p *Plugin) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO board_plugins (board, id, name, endpoint, subscribed_events, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (board, id) DO UPDATE SET
			name = EXCLUDED.name,
			endpoint = EXCLUDED.endpoint,
			subscribed_events = EXCLUDED.subscribed_events,
			status = EXCLUDED.status
	`, s.board, p.ID, p.Name, p.Endpoint, p.SubscribedEvents, string(p.Status), p.CreatedAt)
	if err != nil {
		return fmt.Errorf("save plugin %s on %s: %w", p.ID, s.board, err)
	}
	return nil
}

func (s *PostgresPluginStore) DeletePlugin(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM board_plugins WHERE board = $1 AND id = $2`, s.board, id)
	if err != nil {
		return fmt.Errorf("delete plugin %s on %s: %w", id, s.board, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	return nil
}

// ListPlugins returns the board's plugins in registration order.
func (s *PostgresPluginStore) ListPlugins(ctx context.Context) ([]*Plugin, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, endpoint, subscribed_events, status, created_at
		FROM board_plugins
		WHERE board = $1
		ORDER BY created_at ASC, id ASC
	`, s.board)
	if err != nil {
		return nil, fmt.Errorf("list plugins on %s: %w", s.board, err)
	}
	plugins, err := pgx.CollectRows(rows, scanPlugin)
	if err != nil {
		return nil, fmt.Errorf("list plugins on %s: %w", s.board, err)
	}
	return plugins, nil
}

func scanPlugin(row pgx.CollectableRow) (*Plugin, error) {
	var p Plugin
	var status string
	if err := row.Scan(&p.ID, &p.Name, &p.Endpoint, &p.SubscribedEvents, &status, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Status = PluginStatus(status)
	return &p, nil
}
