package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"parallax/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the processing queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	return queueCmd
}

func (c *commandContext) withStore(fn func(*queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				items, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				rows := buildQueueListRows(items)
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Kind", "Output", "Status", "Stage", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				if statusRows := buildQueueStatusRows(items); statusRows != nil {
					fmt.Fprintln(out, renderTable(
						[]string{"Status", "Count"},
						statusRows,
						[]columnAlignment{alignLeft, alignRight},
					))
				}
				return nil
			})
		},
	}
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one queued item in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				item, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				printQueueItem(cmd.OutOrStdout(), item)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var (
		completedFlag bool
		failedFlag    bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items",
		Long:  "Remove completed items by default; use --failed or --all to widen the sweep.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := []queue.Status{queue.StatusCompleted}
			switch {
			case completedFlag && failedFlag:
				statuses = []queue.Status{queue.StatusCompleted, queue.StatusFailed}
			case failedFlag:
				statuses = []queue.Status{queue.StatusFailed}
			}
			if allFlag, _ := cmd.Flags().GetBool("all"); allFlag {
				statuses = nil
			}
			return ctx.withStore(func(store *queue.Store) error {
				removed, err := store.Clear(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d items\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&completedFlag, "completed", false, "Remove completed items")
	cmd.Flags().BoolVar(&failedFlag, "failed", false, "Remove failed items")
	cmd.Flags().Bool("all", false, "Remove every item regardless of status")
	return cmd
}
