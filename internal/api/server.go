package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ryanbastic/pixelboard/internal/board"
	"github.com/ryanbastic/pixelboard/internal/grid"
	"github.com/ryanbastic/pixelboard/internal/metrics"
	"github.com/ryanbastic/pixelboard/internal/trigger"
)

// NewServer creates an HTTP server with all routes configured. viewport is
// used wherever a request does not describe its own.
func NewServer(logger *slog.Logger, b *board.Board, registry *trigger.PluginRegistry, viewport grid.Viewport, backends map[string]Pinger) http.Handler {
	mux := chi.NewRouter()

	mux.Use(RequestID)
	mux.Use(Logging(logger))
	mux.Use(Recovery(logger))
	mux.Use(metrics.Metrics)

	mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusNotFound, "no route for "+r.Method+" "+r.URL.Path)
	})

	api := humachi.New(mux, huma.DefaultConfig("Pixelboard API", "1.0.0"))

	registerBoardRoutes(api, NewBoardHandler(b, viewport))
	registerMessageRoutes(api, NewMessageHandler(b, viewport, logger))
	registerPluginRoutes(api, NewPluginHandler(registry, logger))

	health := NewHealthHandler(backends, logger)
	mux.Get("/v1/livez", health.Livez)
	mux.Get("/v1/readyz", health.Readyz)
	mux.Get("/v1/health", health.Readyz)

	mux.Get("/v1/board/ws", NewSocketHandler(b, viewport, logger).ServeHTTP)
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}
