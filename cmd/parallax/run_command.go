package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"parallax/internal/config"
	"parallax/internal/queue"
	"parallax/internal/services"
	"parallax/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process queued items until the queue is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			return drainQueue(cmd, ctx, cfg, store)
		},
	}
	return cmd
}

// drainQueue runs the batch manager against the open store, stopping on
// SIGINT or SIGTERM. In-flight work is wound down and the active item is
// returned to the queue.
func drainQueue(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, store *queue.Store) error {
	eng, err := ctx.newEngine()
	if err != nil {
		return err
	}
	logger, err := ctx.newLogger()
	if err != nil {
		return err
	}

	mgr := workflow.NewManager(cfg, store, eng, logger)
	out := cmd.OutOrStdout()

	colorize := shouldColorize(out)
	ready := true
	for _, check := range mgr.HealthChecks(cmd.Context()) {
		fmt.Fprintln(out, renderHealthLine(check.Name, check.Detail, check.Ready, colorize))
		if !check.Ready {
			ready = false
		}
	}
	if !ready {
		return services.Wrap(services.ErrExternalTool, "run", "health", "media engine unavailable", nil)
	}

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	summary, err := mgr.Run(signalCtx)
	if err != nil {
		if signalCtx.Err() != nil {
			fmt.Fprintf(out, "Interrupted after %d items; remaining work stays queued\n", summary.Completed+summary.Failed)
			return services.Wrap(services.ErrCancelled, "run", "drain", "", context.Cause(signalCtx))
		}
		return err
	}
	fmt.Fprintf(out, "Processed %d items: %d completed, %d failed\n",
		summary.Processed, summary.Completed, summary.Failed)
	if summary.Failed > 0 {
		return services.Wrap(services.ErrTransient, "run", "drain",
			fmt.Sprintf("%d items failed", summary.Failed), nil)
	}
	return nil
}
