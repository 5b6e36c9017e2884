package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations creates the board message table. Every board shares it,
// partitioned by the board column.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS board_messages (
			board     TEXT    NOT NULL,
			position  INTEGER NOT NULL,
			id        TEXT    NOT NULL,
			cells     TEXT[]  NOT NULL,
			content   TEXT    NOT NULL,
			bold      BOOLEAN NOT NULL DEFAULT false,
			italic    BOOLEAN NOT NULL DEFAULT false,
			underline BOOLEAN NOT NULL DEFAULT false,
			ts        BIGINT  NOT NULL,
			color     TEXT    NOT NULL,

			PRIMARY KEY (board, id)
		);

		CREATE INDEX IF NOT EXISTS idx_board_messages_position
			ON board_messages (board, position);
	`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("migrate board_messages: %w", err)
	}
	return nil
}

// RunPluginMigration creates the plugin registry table. Registrations belong
// to one board.
func RunPluginMigration(ctx context.Context, pool *pgxpool.Pool) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS board_plugins (
			board             TEXT NOT NULL,
			id                UUID NOT NULL,
			name              TEXT NOT NULL,
			endpoint          TEXT NOT NULL,
			subscribed_events TEXT[] NOT NULL,
			status            TEXT NOT NULL DEFAULT 'active',
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),

			PRIMARY KEY (board, id)
		);
	`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("migrate board_plugins: %w", err)
	}
	return nil
}
