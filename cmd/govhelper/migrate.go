package main

import (
	"fmt"
	"slices"

	"github.com/choishiam0906/govhelper/internal/platform/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|reset|version]",
		Short:     "Run database migrations",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: postgres.MigrationCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}
			if !slices.Contains(postgres.MigrationCommands, command) {
				return fmt.Errorf("unknown migration command %q", command)
			}

			app, err := newApplication(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.close()

			if err := postgres.Migrate(cmd.Context(), app.db, command, app.logger); err != nil {
				errorf(cmd.ErrOrStderr(), "migrate %s failed: %v", command, err)
				return err
			}
			successf(cmd.OutOrStdout(), "migrate %s completed", command)
			return nil
		},
	}
}
