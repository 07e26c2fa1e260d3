package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/choishiam0906/govhelper/internal/api"
	"github.com/choishiam0906/govhelper/internal/service/auth"
	"github.com/spf13/cobra"
)

func newServeCommand(configPath *string) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. With the memory queue backend, batch jobs submitted
over the API also run in this process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.close()
			if port > 0 {
				app.config.Server.Port = port
			}
			return app.serve(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "override server.port")
	return cmd
}

// serve runs the HTTP server until ctx is cancelled, then shuts it down
// within the configured timeout.
func (app *application) serve(ctx context.Context) error {
	jwtService, err := auth.NewJWTService(app.config.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	orch := app.orchestrator(ctx)
	extractor := app.extraction(orch)

	consume := app.config.Queue.Backend == "memory"
	runner, factory, err := app.taskRunner(orch, consume)
	if err != nil {
		return err
	}
	if consume {
		if err := runner.Start(ctx); err != nil {
			return fmt.Errorf("failed to start task runner: %w", err)
		}
		defer runner.Stop()
	}

	var cache api.MatchCache
	if app.cache != nil {
		cache = app.cache
	}

	router := api.NewRouter(api.RouterDeps{
		JWT: jwtService,
		Matches: api.NewMatchHandler(extractor, app.calibrator(), app.announcements, app.companies,
			app.matches, app.feedback, cache, app.logger),
		Announcements:  api.NewAnnouncementHandler(extractor, app.announcements, app.companies, app.logger),
		Streams:        api.NewStreamHandler(extractor, app.announcements, app.companies, app.matches, app.logger),
		Admin:          api.NewAdminHandler(app.promptManager(), factory, runner, app.logger),
		MetricsHandler: app.metrics.Handler(),
		HTTPObserver:   app.metrics,
		Logger:         app.logger,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", slog.Int("port", app.config.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		app.logger.Info("shutting down server")
	case err := <-serverErr:
		if err != nil {
			app.logger.Error("server failed", slog.String("error", err.Error()))
			return fmt.Errorf("server failed: %w", err)
		}
	}

	timeout := time.Duration(app.config.Server.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server shutdown failed", slog.String("error", err.Error()))
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	app.logger.Info("server shutdown completed")
	return nil
}
