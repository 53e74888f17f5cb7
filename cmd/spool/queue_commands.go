package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"spool/internal/api"
	"spool/internal/daemonctl"
	"spool/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the episode queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueStopCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := queueStats(cmd, ctx)
			if err != nil {
				return err
			}
			rows := buildQueueStatusRows(stats)
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func queueStats(cmd *cobra.Command, ctx *commandContext) (map[string]int, error) {
	snapshot, err := ctx.client().Status(cmd.Context())
	if err == nil {
		return snapshot.Workflow.QueueStats, nil
	}
	if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		return nil, err
	}
	var stats map[string]int
	storeErr := ctx.withStore(func(store *queue.Store) error {
		raw, err := store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		stats = api.MergeQueueStats(raw)
		return nil
	})
	return stats, storeErr
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := ctx.client().Queue(cmd.Context(), listStatuses...)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				err = ctx.withStore(func(store *queue.Store) error {
					statuses := make([]queue.Status, 0, len(listStatuses))
					for _, status := range listStatuses {
						statuses = append(statuses, queue.Status(status))
					}
					stored, listErr := store.List(cmd.Context(), statuses...)
					if listErr != nil {
						return listErr
					}
					items = api.FromQueueItems(stored)
					return nil
				})
			}
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
				return nil
			}
			table := renderTable(
				[]string{"ID", "Series", "Episode", "Aired", "Status", "Lane", "Progress", "Created"},
				buildQueueListRows(items),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprint(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			scope := "all"
			switch {
			case clearCompleted:
				scope = "completed"
			case clearFailed:
				scope = "failed"
			}

			removed, err := ctx.client().Clear(cmd.Context(), scope)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				err = ctx.withStore(func(store *queue.Store) error {
					var clearErr error
					switch scope {
					case "completed":
						removed, clearErr = store.ClearCompleted(cmd.Context())
					case "failed":
						removed, clearErr = store.ClearFailed(cmd.Context())
					default:
						removed, clearErr = store.Clear(cmd.Context())
					}
					return clearErr
				})
			}
			if err != nil {
				return err
			}
			switch scope {
			case "completed":
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d completed items\n", removed)
			case "failed":
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d failed items\n", removed)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d queue items\n", removed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed items")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed items")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [itemID...]",
		Short: "Retry failed queue items",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseItemIDs(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			result, err := ctx.client().Retry(cmd.Context(), ids)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				err = ctx.withStore(func(store *queue.Store) error {
					if len(ids) == 0 {
						updated, retryErr := store.RetryFailed(cmd.Context())
						result = api.RetryItemsResult{UpdatedCount: updated}
						return retryErr
					}
					var retryErr error
					result, retryErr = api.RetryFailedItemsByID(cmd.Context(), api.NewStoreActions(store), ids)
					return retryErr
				})
			}
			if err != nil {
				return err
			}

			if len(ids) == 0 {
				fmt.Fprintf(out, "Retried %d failed items\n", result.UpdatedCount)
				return nil
			}
			for _, item := range result.Items {
				switch item.Outcome {
				case api.RetryItemUpdated:
					fmt.Fprintf(out, "Item %d reset for retry\n", item.ID)
				case api.RetryItemNotFound:
					fmt.Fprintf(out, "Item %d not found\n", item.ID)
				default:
					fmt.Fprintf(out, "Item %d is not in failed state\n", item.ID)
				}
			}
			return nil
		},
	}
}

func newQueueStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop itemID...",
		Short: "Stop in-flight items and route them to review",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseItemIDs(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			result, err := ctx.client().Stop(cmd.Context(), ids)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				err = ctx.withStore(func(store *queue.Store) error {
					var stopErr error
					result, stopErr = api.StopItemsByID(cmd.Context(), api.NewStoreActions(store), ids)
					return stopErr
				})
			}
			if err != nil {
				return err
			}
			for _, item := range result.Items {
				switch item.Outcome {
				case api.StopItemUpdated:
					fmt.Fprintf(out, "Item %d stopped (was %s)\n", item.ID, item.PriorStatus)
				case api.StopItemNotFound:
					fmt.Fprintf(out, "Item %d not found\n", item.ID)
				default:
					fmt.Fprintf(out, "Item %d already finished (%s)\n", item.ID, item.PriorStatus)
				}
			}
			return nil
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove itemID...",
		Short: "Remove individual queue items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseItemIDs(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			result, err := ctx.client().Remove(cmd.Context(), ids)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				err = ctx.withStore(func(store *queue.Store) error {
					var removeErr error
					result, removeErr = api.RemoveItemsByID(cmd.Context(), api.NewStoreActions(store), ids)
					return removeErr
				})
			}
			if err != nil {
				return err
			}
			for _, item := range result.Items {
				if item.Outcome == api.RemoveItemRemoved {
					fmt.Fprintf(out, "Item %d removed\n", item.ID)
				} else {
					fmt.Fprintf(out, "Item %d not found\n", item.ID)
				}
			}
			return nil
		},
	}
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Return in-flight items to their lane entry status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				updated, err := store.ResetStuckProcessing(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d items\n", updated)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := ctx.client().Health(cmd.Context())
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				err = ctx.withStore(func(store *queue.Store) error {
					var healthErr error
					health, healthErr = store.Health(cmd.Context())
					return healthErr
				})
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nPending: %d\nProcessing: %d\nFailed: %d\nReview: %d\nCompleted: %d\n",
				health.Total,
				health.Pending,
				health.Processing,
				health.Failed,
				health.Review,
				health.Completed,
			)
			return nil
		},
	}
}

func parseItemIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid item id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
