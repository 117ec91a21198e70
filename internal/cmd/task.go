package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/verdantlabs/earthengine-cli/internal/batch"
	"github.com/verdantlabs/earthengine-cli/internal/ee"
	ctxerrors "github.com/verdantlabs/earthengine-cli/internal/errors"
	"github.com/verdantlabs/earthengine-cli/internal/output"
	"github.com/verdantlabs/earthengine-cli/internal/validate"
	"github.com/verdantlabs/earthengine-cli/internal/workers"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage export and ingestion tasks",
	}

	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskStatusCmd())
	cmd.AddCommand(newTaskCancelCmd())
	cmd.AddCommand(newTaskNewIDCmd())
	cmd.AddCommand(newTaskWaitCmd())

	return cmd
}

func newTaskListCmd() *cobra.Command {
	var stateFilter string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your tasks",
		Long: `List tasks, most recent first. Pagination is handled automatically;
--limit caps the count and --state filters by task state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			tasks, err := client.TaskList(ctx)
			if err != nil {
				return err
			}

			if stateFilter != "" {
				filtered := tasks[:0]
				for _, t := range tasks {
					if t.State == stateFilter {
						filtered = append(filtered, t)
					}
				}
				tasks = filtered
			}
			if limit := output.LimitFromContext(ctx); limit > 0 && len(tasks) > limit {
				tasks = tasks[:limit]
			}

			return printerForContext(ctx).Print(ctx, map[string]interface{}{"tasks": tasks})
		},
	}

	cmd.Flags().StringVar(&stateFilter, "state", "", "Only show tasks in this state (READY|RUNNING|COMPLETED|FAILED|CANCELLED)")

	return cmd
}

func newTaskStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id>...",
		Short: "Show the status of one or more tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			for _, id := range args {
				if err := validate.TaskID("task-id", id); err != nil {
					return err
				}
			}

			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			statuses, err := client.TaskStatuses(ctx, args)
			if err != nil {
				return err
			}
			return printerForContext(ctx).Print(ctx, map[string]interface{}{"tasks": statuses})
		},
	}
}

func newTaskCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <task-id>...",
		Short: "Cancel tasks",
		Long:  `Cancel one or more tasks. Multiple ids are cancelled concurrently.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			for _, id := range args {
				if err := validate.TaskID("task-id", id); err != nil {
					return err
				}
			}

			if DryRunFromContext(ctx) {
				p := NewDryRunPrinter(stdoutFromContext(ctx))
				for _, id := range args {
					p.Header("cancel", "task", id)
				}
				p.Footer()
				return nil
			}

			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			summary := batch.Run(ctx, args, workers.DefaultConcurrency, func(ctx context.Context, id string) error {
				return client.CancelTask(ctx, id)
			})

			if err := printerForContext(ctx).Print(ctx, summary); err != nil {
				return err
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d cancellations failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}
}

func newTaskNewIDCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "new-id",
		Short: "Generate unused task IDs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if count < 1 {
				return ctxerrors.NewUserError("--count must be >= 1", "")
			}

			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			ids, err := client.NewTaskID(ctx, count)
			if err != nil {
				return err
			}
			return printerForContext(ctx).Print(ctx, map[string]interface{}{"ids": ids})
		},
	}

	cmd.Flags().IntVar(&count, "count", 1, "Number of IDs to generate")

	return cmd
}

func newTaskWaitCmd() *cobra.Command {
	var interval time.Duration
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "wait <task-id>...",
		Short: "Block until tasks reach a terminal state",
		Long: `Poll the given tasks until every one is COMPLETED, FAILED, or
CANCELLED. Exits non-zero when any task fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			for _, id := range args {
				if err := validate.TaskID("task-id", id); err != nil {
					return err
				}
			}
			if interval <= 0 {
				return ctxerrors.NewUserError("--interval must be positive", "")
			}

			client, err := clientFromContext(ctx)
			if err != nil {
				return err
			}

			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			statuses, err := waitForTasks(ctx, client, args, interval)
			if err != nil {
				return err
			}

			if printErr := printerForContext(ctx).Print(ctx, map[string]interface{}{"tasks": statuses}); printErr != nil {
				return printErr
			}

			for _, s := range statuses {
				if s.State == ee.TaskStateFailed {
					return fmt.Errorf("task %s failed: %s", s.ID, s.ErrorMessage)
				}
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 10*time.Second, "Polling interval")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 = wait forever)")

	return cmd
}

func waitForTasks(ctx context.Context, client *ee.Client, taskIDs []string, interval time.Duration) ([]ee.TaskStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		statuses, err := client.TaskStatuses(ctx, taskIDs)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("timed out waiting for tasks: %w", ctx.Err())
			}
			return nil, err
		}

		done := true
		for _, s := range statuses {
			if !ee.IsTerminalTaskState(s.State) {
				done = false
				break
			}
		}
		if done {
			return statuses, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timed out waiting for tasks: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
