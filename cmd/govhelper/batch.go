package main

import (
	"github.com/choishiam0906/govhelper/internal/service/batch"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newBatchCommand builds a command that runs one batch kind in the
// foreground and prints each item as it finishes.
func newBatchCommand(configPath *string, use, short string, kind batch.Kind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			size, _ := cmd.Flags().GetInt("size")

			app, err := newApplication(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.close()

			out := cmd.OutOrStdout()
			opts := app.batchOptions(kind)
			opts.Limit = limit
			if size > 0 {
				opts.Size = size
			}
			if kind == batch.KindEmbedding {
				opts.Force, _ = cmd.Flags().GetBool("force")
			}

			header(out, short)
			runner := app.batchRunner(app.orchestrator(cmd.Context()), printItem(out))
			summary, err := runner.Run(cmd.Context(), kind, opts)
			if summary != nil {
				printSummary(out, summary)
			}
			if err != nil {
				errorf(cmd.ErrOrStderr(), "%s batch stopped: %v", kind, err)
				return err
			}
			return nil
		},
	}
	addBatchFlags(cmd.Flags(), kind)
	return cmd
}

func addBatchFlags(fs *pflag.FlagSet, kind batch.Kind) {
	fs.Int("limit", 0, "maximum number of announcements to process (0 = all pending)")
	fs.Int("size", 0, "announcements fetched per batch (default batch.size)")
	if kind == batch.KindEmbedding {
		fs.Bool("force", false, "re-embed announcements whose text is unchanged")
	}
}
