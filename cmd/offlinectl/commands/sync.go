package commands

import (
	"fmt"
	"strconv"

	"github.com/avatarctic/offline-sync/internal/cli/output"
	"github.com/avatarctic/offline-sync/internal/core/domain/action"
	"github.com/spf13/cobra"
)

var syncLast bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a sync pass now",
	Long: `Run one drain pass of the action queue and print its result.

With --last the most recent result is shown without running a pass.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncLast, "last", false, "Show the last pass result instead of running one")
}

func runSync(cmd *cobra.Command, args []string) error {
	c := newClient()
	var (
		result *action.SyncResult
		err    error
	)
	if syncLast {
		result, err = c.LastSync(cmd.Context())
	} else {
		result, err = c.Sync(cmd.Context())
	}
	if err != nil {
		return err
	}
	return render(cmd, result, func() error { return printSyncResult(cmd, result) })
}

func printSyncResult(cmd *cobra.Command, result *action.SyncResult) error {
	w := cmd.OutOrStdout()
	if result.Skipped {
		_, err := fmt.Fprintf(w, "Sync skipped: %s\n", result.SkipReason)
		return err
	}
	err := output.SimpleTable(w, [][2]string{
		{"Processed", strconv.Itoa(result.ProcessedCount)},
		{"Retried", strconv.Itoa(result.RetriedCount)},
		{"Failed", strconv.Itoa(result.FailedCount)},
		{"Interrupted", strconv.FormatBool(result.Interrupted)},
		{"Duration", result.FinishedAt.Sub(result.StartedAt).String()},
	})
	if err != nil || len(result.PermanentFailures) == 0 {
		return err
	}

	fmt.Fprintln(w)
	table := output.NewTableData("ACTION", "TYPE", "ATTEMPTS", "REASON")
	for _, f := range result.PermanentFailures {
		table.AddRow(f.ActionID, string(f.Type), strconv.Itoa(f.Attempts), f.Reason)
	}
	return output.PrintTable(w, table)
}
