package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newWorkerCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume extraction tasks from the queue",
		Long: `Consume extraction tasks submitted through the API. Use this with the
rabbitmq queue backend; the memory backend only works inside serve.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApplication(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.close()

			if app.config.Queue.Backend == "memory" {
				warningf(cmd.ErrOrStderr(), "memory queue is process local; tasks submitted to serve will not reach this worker")
			}

			runner, _, err := app.taskRunner(app.orchestrator(ctx), true)
			if err != nil {
				return err
			}
			if err := runner.Start(ctx); err != nil {
				return fmt.Errorf("failed to start task runner: %w", err)
			}
			app.logger.Info("worker started", slog.Int("workers", app.config.Queue.WorkerCount))

			<-ctx.Done()
			app.logger.Info("stopping worker")
			runner.Stop()
			return nil
		},
	}
}
