package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/handlers"
	"github.com/ekaya-inc/ekaya-insight/pkg/mcp"
	"github.com/ekaya-inc/ekaya-insight/pkg/metrics"
	"github.com/ekaya-inc/ekaya-insight/pkg/middleware"
	"github.com/ekaya-inc/ekaya-insight/pkg/services"
)

// shutdownTimeout bounds graceful shutdown after the context is cancelled.
const shutdownTimeout = 15 * time.Second

const timeoutBody = `{"error":"timeout","message":"The request took too long to answer"}`

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			server := &http.Server{
				Addr:              opts.cfg.ListenAddr(),
				Handler:           newRouter(opts.cfg, a.chat, opts.logger),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return runServer(ctx, server, opts.logger)
		},
	}
}

// newRouter mounts the API, health, metrics and (when enabled) MCP routes.
// Chat routes run under the configured request timeout; /mcp streams and is
// left unbounded.
func newRouter(cfg *config.Config, chat services.ChatService, logger *zap.Logger) http.Handler {
	api := http.NewServeMux()
	handlers.NewChatHandler(chat, logger).RegisterRoutes(api)

	mux := http.NewServeMux()
	if cfg.RequestTimeout > 0 {
		mux.Handle("/api/", http.TimeoutHandler(api, cfg.RequestTimeout, timeoutBody))
	} else {
		mux.Handle("/api/", api)
	}
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", metrics.Handler())

	if cfg.MCP.Enabled {
		mcpServer := mcp.NewDatasetServer("ekaya-insight", cfg.Version, cfg.Datasource.Type, chat, logger)
		mux.Handle("/mcp", mcpServer.Handler())
		logger.Info("MCP endpoint enabled", zap.String("path", "/mcp"))
	}

	return middleware.RequestLogger(logger)(metrics.Middleware(mux))
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, server *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting ekaya-insight", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
