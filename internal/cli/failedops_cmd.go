package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"cadence/internal/cli/formatter"
)

func newFailedOpsCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "failedops",
		Short: "List recent failed tool operations (params are redacted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := app.Failed.ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ops) == 0 {
				fmt.Fprintln(out, "No failed operations.")
				return nil
			}

			if !app.interactive() {
				for _, op := range ops {
					fmt.Fprintf(out, "%s\t%s\tattempts=%d\t%s\t%s\n",
						op.ID, op.Tool, op.Attempts, op.Error, op.Params)
				}
				return nil
			}

			headers := []string{"ID", "TOOL", "ATTEMPTS", "WHEN", "ERROR", "PARAMS"}
			rows := make([][]string, 0, len(ops))
			for _, op := range ops {
				rows = append(rows, []string{
					formatter.TruncID(op.ID),
					op.Tool,
					fmt.Sprintf("%d", op.Attempts),
					formatter.HumanTimestamp(op.CreatedAt),
					formatter.Truncate(op.Error, 40),
					formatter.Dim(formatter.Truncate(op.Params, 48)),
				})
			}
			fmt.Fprint(out, formatter.RenderBox("Failed operations", formatter.RenderTable(headers, rows)))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum operations to show")

	return cmd
}
