package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"parallax/internal/queue"
	"parallax/internal/workflow"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var (
		overwriteFlag bool
		startFlag     bool
		convertFlag   string
	)

	cmd := &cobra.Command{
		Use:   "batch <folder>",
		Short: "Queue every capture pair found in a folder",
		Long: "Scan a folder for left/right capture pairs and queue a merge per pair.\n" +
			"With --convert, scan for side-by-side masters instead and queue conversions.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if overwriteFlag {
				clone := *cfg
				clone.Batch.OverwriteExisting = true
				cfg = &clone
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var report workflow.EnqueueReport
			if cmd.Flags().Changed("convert") {
				report, err = workflow.EnqueueConversions(cmd.Context(), store, cfg, args[0], convertFlag)
			} else {
				report, err = workflow.EnqueueFolder(cmd.Context(), store, cfg, args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, item := range report.Added {
				fmt.Fprintf(out, "Queued %s\n", filepath.Base(item.OutputPath))
			}
			for _, path := range report.Skipped {
				fmt.Fprintf(out, "Skipped %s (already exists)\n", filepath.Base(path))
			}
			for _, path := range report.Unmatched {
				fmt.Fprintf(out, "No twin for %s\n", filepath.Base(path))
			}
			fmt.Fprintf(out, "%d queued, %d skipped, %d unmatched\n",
				len(report.Added), len(report.Skipped), len(report.Unmatched))

			if !startFlag || len(report.Added) == 0 {
				return nil
			}
			return drainQueue(cmd, ctx, cfg, store)
		},
	}

	cmd.Flags().BoolVar(&overwriteFlag, "overwrite", false, "Queue pairs whose output already exists")
	cmd.Flags().BoolVar(&startFlag, "start", false, "Process the queue immediately after scanning")
	cmd.Flags().StringVar(&convertFlag, "convert", "", "Queue conversions of side-by-side masters to this format instead of merges")
	return cmd
}
