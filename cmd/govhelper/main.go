// Command govhelper runs the AI layer of the grant matching service: the
// HTTP API, the extraction worker and the maintenance commands.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// newRootCommand builds the command tree.
func newRootCommand() *cobra.Command {
	var (
		configPath string
		noColor    bool
	)

	root := &cobra.Command{
		Use:   "govhelper",
		Short: "AI services for government grant matching",
		Long: `govhelper serves match analysis, criteria extraction and AI drafting
for government support announcements, and runs the batch jobs that keep
announcement criteria and embeddings up to date.

Configuration is read from config.yaml and GOVHELPER_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initColors(noColor)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (default ./config.yaml)")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newServeCommand(&configPath),
		newWorkerCommand(&configPath),
		newMigrateCommand(&configPath),
		newBatchCommand(&configPath, "parse-eligibility", "Parse eligibility criteria of pending announcements", "eligibility"),
		newBatchCommand(&configPath, "parse-evaluation", "Extract evaluation criteria of pending announcements", "evaluation"),
		newBatchCommand(&configPath, "embed", "Embed active announcements", "embedding"),
		newSeedPromptsCommand(&configPath),
	)
	return root
}
