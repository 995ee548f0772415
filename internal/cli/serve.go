package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finitefield.org/statusboard/internal/health"
	"finitefield.org/statusboard/internal/httpserver"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(bootstrap func(*cobra.Command) (*App, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the status dashboard over HTTP",
		Long: `Serve the status page, its JSON API and health probes until interrupted.

Examples:
  statusboard serve
  STATUSBOARD_STORE_BACKEND=memory statusboard serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					app.Logger.Warn("close dependencies", zap.Error(err))
				}
			}()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, app)
		},
	}
}

func serve(ctx context.Context, app *App) error {
	cfg := app.Config
	server, err := httpserver.New(httpserver.Config{
		Address:          ":" + cfg.Server.Port,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		IdleTimeout:      cfg.Server.IdleTimeout,
		Controller:       app.Controller,
		Health:           health.NewHandlers(app.Checker, version, nil),
		Logger:           app.Logger.Named("http"),
		TraceProjectID:   cfg.Secrets.ProjectID,
		RefreshInterval:  cfg.Display.AutoRefresh,
		CSRFCookieName:   cfg.Security.CSRFCookie,
		CSRFCookieSecure: cfg.Security.CSRFSecure,
	})
	if err != nil {
		return err
	}

	logger := app.Logger.Named("http").With(zap.String("addr", server.Addr))
	errCh := make(chan error, 1)
	go func() {
		logger.Info("statusboard listening", zap.String("backend", cfg.Store.Backend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return <-errCh
}
