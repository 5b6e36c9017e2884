package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ryanbastic/pixelboard/internal/board"
	"github.com/ryanbastic/pixelboard/internal/config"
	"github.com/ryanbastic/pixelboard/internal/gateway"
	"github.com/ryanbastic/pixelboard/internal/gateway/disk"
	"github.com/ryanbastic/pixelboard/internal/gateway/postgres"
	"github.com/ryanbastic/pixelboard/internal/gateway/sqlite"
	"github.com/ryanbastic/pixelboard/internal/palette"
	"github.com/ryanbastic/pixelboard/internal/trigger"
)

// backend is an opened storage gateway plus whatever it owns.
type backend struct {
	gw      gateway.Gateway
	pool    *pgxpool.Pool // postgres only
	plugins trigger.PluginStore
	closers []func() error
}

func (b *backend) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openBackend opens the gateway selected by cfg.Backend.
func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return &backend{gw: gateway.NewMemory()}, nil

	case config.BackendDisk:
		gw, err := disk.Open(cfg.DataDir, cfg.BoardName, logger)
		if err != nil {
			return nil, fmt.Errorf("open disk backend: %w", err)
		}
		return &backend{gw: gw, closers: []func() error{gw.Close}}, nil

	case config.BackendSQLite:
		gw, err := sqlite.Open(ctx, cfg.SQLitePath, cfg.BoardName, cfg.SQLitePollInterval, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite backend: %w", err)
		}
		return &backend{gw: gw, closers: []func() error{gw.Close}}, nil

	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		closePool := func() error { pool.Close(); return nil }
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		logger.Info("connected to database")

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		if err := postgres.RunPluginMigration(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("migrations complete")

		return &backend{
			gw:      postgres.New(pool, cfg.BoardName, cfg.QueryTimeout, logger),
			pool:    pool,
			plugins: trigger.NewPostgresPluginStore(pool, cfg.BoardName, cfg.QueryTimeout),
			closers: []func() error{closePool},
		}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// loadPalettes returns the configured palettes, or the built-in set when no
// palette file is configured.
func loadPalettes(cfg config.Config) ([]palette.Palette, error) {
	if cfg.PaletteConfigPath == "" {
		return palette.Default, nil
	}
	pc, err := config.LoadPaletteConfig(cfg.PaletteConfigPath)
	if err != nil {
		return nil, err
	}
	return pc.Palettes, nil
}

// startBoard builds a Board over be behind the gateway breaker and starts
// it. A failed start is logged; the board keeps working from memory.
func startBoard(ctx context.Context, cfg config.Config, be *backend, logger *slog.Logger, opts ...board.Option) (*board.Board, error) {
	palettes, err := loadPalettes(cfg)
	if err != nil {
		return nil, err
	}
	colors, err := palette.NewAssigner(palettes, nil)
	if err != nil {
		return nil, fmt.Errorf("palette: %w", err)
	}

	gw := gateway.Guard(be.gw, cfg.GatewayMaxFailures, cfg.GatewayResetTimeout, logger)
	b := board.New(gw, colors, logger, opts...)
	if err := b.Start(ctx); err != nil {
		logger.Warn("board running from memory", "backend", gw.Name(), "error", err)
	}
	return b, nil
}

// withBoard opens the configured backend, starts a board on it and hands it
// to fn. Everything is closed when fn returns.
func withBoard(ctx context.Context, cfg config.Config, logger *slog.Logger, fn func(*board.Board) error) error {
	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.Close()

	b, err := startBoard(ctx, cfg, be, logger)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(b)
}

// newLogger builds the JSON logger for level. Commands other than serve log
// to stderr so their stdout stays clean.
func newLogger(level string, serve bool) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	out := os.Stderr
	if serve {
		out = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: logLevel}))
}
