package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/choishiam0906/govhelper/internal/service/promptversion"
	"github.com/spf13/cobra"
)

func newSeedPromptsCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-prompts",
		Short: "Create prompt versions from a YAML file or the built-in templates",
		Long: `Create prompt versions from a YAML seed file, or from the compiled-in
templates with --builtin. Versions that already exist are skipped, so the
command can be run repeatedly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			builtin, _ := cmd.Flags().GetBool("builtin")

			seed, err := loadSeed(path, builtin)
			if err != nil {
				return err
			}

			app, err := newApplication(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.close()

			result, err := app.promptManager().Seed(cmd.Context(), seed)
			if err != nil {
				errorf(cmd.ErrOrStderr(), "seeding failed after %d versions: %v", result.Created, err)
				return err
			}
			successf(cmd.OutOrStdout(), "%d prompt versions created, %d already present", result.Created, result.Skipped)
			return nil
		},
	}
	cmd.Flags().String("file", "", "YAML seed file")
	cmd.Flags().Bool("builtin", false, "seed the built-in templates as v1")
	return cmd
}

func loadSeed(path string, builtin bool) (*promptversion.SeedFile, error) {
	switch {
	case builtin && path != "":
		return nil, errors.New("--file and --builtin are mutually exclusive")
	case builtin:
		return promptversion.BuiltinSeedFile(), nil
	case path == "":
		return nil, errors.New("one of --file or --builtin is required")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return promptversion.ParseSeedFile(f)
}
