package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ryanbastic/pixelboard/internal/api"
	"github.com/ryanbastic/pixelboard/internal/board"
	"github.com/ryanbastic/pixelboard/internal/config"
	"github.com/ryanbastic/pixelboard/internal/grid"
	"github.com/ryanbastic/pixelboard/internal/metrics"
	"github.com/ryanbastic/pixelboard/internal/trigger"
	"github.com/spf13/cobra"
)

func addServe(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the board HTTP and websocket server.",
		Example: `
BACKEND=disk DATA_DIR=./data pixelboard serve
BACKEND=postgres DATABASE_URL=postgres://localhost/board pixelboard serve
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), config.Load())
		},
	}
	topLevel.AddCommand(cmd)
}

func serve(parent context.Context, cfg config.Config) error {
	logger := newLogger(cfg.LogLevel, true)

	viewport := grid.Viewport{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight, Touch: cfg.ViewportTouch}
	if err := viewport.Validate(); err != nil {
		logger.Error("bad default viewport", "error", err)
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open backend", "backend", cfg.Backend, "error", err)
		return err
	}
	defer be.Close()

	registry := trigger.NewPluginRegistry(be.plugins)
	if err := registry.LoadAll(ctx); err != nil {
		logger.Error("failed to load plugins", "error", err)
		return err
	}
	rpcClient := trigger.NewRPCClient(cfg.PluginRetryMax, cfg.PluginRetryBackoff, cfg.PluginRPCTimeout)
	notifier := trigger.NewNotifier(cfg.BoardName, registry, rpcClient, logger)

	b, err := startBoard(ctx, cfg, be, logger, board.WithObserver(notifier))
	if err != nil {
		logger.Error("failed to start board", "error", err)
		return err
	}
	defer b.Close()
	logger.Info("board started", "backend", be.gw.Name(), "board", cfg.BoardName, "messages", b.Len())

	backends := map[string]api.Pinger{"board": b}
	if be.pool != nil {
		backends["postgres"] = be.pool
		prometheus.MustRegister(metrics.NewPoolCollector(map[string]*pgxpool.Pool{"board": be.pool}))
	}

	handler := api.NewServer(logger, b, registry, viewport, backends)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	select {
	case <-sigCh:
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("HTTP server error", "error", err)
		return err
	}
	logger.Info("shutting down...")

	// Cancel context to stop gateway subscriptions
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
