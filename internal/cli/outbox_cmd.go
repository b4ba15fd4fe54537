package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cadence/internal/cli/formatter"
	"cadence/internal/outbox"
)

func newOutboxCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Manage the reminder outbox",
	}

	cmd.AddCommand(
		newOutboxRunCmd(app),
		newOutboxWorkerCmd(app),
		newOutboxRetryCmd(app),
		newOutboxListCmd(app),
		newOutboxDaemonCmd(app),
	)

	return cmd
}

func newOutboxDaemonCmd(app *App) *cobra.Command {
	var poll time.Duration
	var batch int

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the reminder scheduler on its cron loop and deliver continuously",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := app.Scheduler.Start(os.Getenv("CADENCE_OUTBOX_CRON"))
			if err != nil {
				return err
			}
			defer c.Stop()

			// Materialize immediately rather than waiting for the first tick.
			if _, err := app.Scheduler.Run(ctx); err != nil {
				return err
			}

			ticker := time.NewTicker(poll)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if _, err := app.Worker.ProcessDue(ctx, batch); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "worker pass failed: %v\n", err)
					}
				}
			}
		},
	}

	cmd.Flags().DurationVar(&poll, "poll", 30*time.Second, "Delivery poll interval")
	cmd.Flags().IntVar(&batch, "batch", outbox.DefaultBatchSize, "Maximum entries per pass")

	return cmd
}

func newOutboxRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Scan events and deadlines, materializing due reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := app.Scheduler.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d outbox entries\n", created)
			return nil
		},
	}
}

func newOutboxWorkerCmd(app *App) *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Deliver one batch of due pending reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			sent, err := app.Worker.ProcessDue(cmd.Context(), batch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Delivered %d notifications\n", sent)
			return nil
		},
	}

	cmd.Flags().IntVar(&batch, "batch", outbox.DefaultBatchSize, "Maximum entries per pass")

	return cmd
}

func newOutboxRetryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "retry ID",
		Short: "Reset a failed entry to pending for immediate redelivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Worker.ManualRetry(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Entry %s queued for redelivery\n", args[0])
			return nil
		},
	}
}

func newOutboxListCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List due outbox entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := app.Outbox.ListDue(cmd.Context(), time.Now().UTC(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No due entries.")
				return nil
			}

			if !app.interactive() {
				for _, e := range entries {
					fmt.Fprintf(out, "%s\t%s\t%s\t%s\tattempts=%d\n",
						e.ID, e.ReminderType, e.TargetUserID, e.Status, e.Attempts)
				}
				return nil
			}

			headers := []string{"ID", "TYPE", "TARGET", "STATUS", "ATTEMPTS", "SCHEDULED"}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					formatter.TruncID(e.ID),
					string(e.ReminderType),
					formatter.TruncID(e.TargetUserID),
					formatter.OutboxStatusPill(e.Status),
					fmt.Sprintf("%d", e.Attempts),
					e.ScheduledFor.Format("Jan 2 15:04"),
				})
			}
			fmt.Fprint(out, formatter.RenderBox("Outbox", formatter.RenderTable(headers, rows)))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to show")

	return cmd
}
