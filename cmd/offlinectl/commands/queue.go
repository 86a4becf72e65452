package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/avatarctic/offline-sync/internal/cli/output"
	"github.com/avatarctic/offline-sync/internal/core/domain/action"
	"github.com/spf13/cobra"
)

var (
	queuePayload    string
	queuePriority   string
	queueMaxRetries int
	queueOwner      string
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and modify the action queue",
}

var queueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List pending and in-flight actions",
	RunE:    runQueueList,
}

var queueAddCmd = &cobra.Command{
	Use:   "add <type>",
	Short: "Queue an action for dispatch",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueAdd,
}

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every queued action",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().ClearQueue(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Queue cleared")
		return nil
	},
}

func init() {
	queueAddCmd.Flags().StringVar(&queuePayload, "payload", "", "JSON payload")
	queueAddCmd.Flags().StringVar(&queuePriority, "priority", "medium", "Priority (high|medium|low)")
	queueAddCmd.Flags().IntVar(&queueMaxRetries, "max-retries", -1, "Retry budget (server default when negative)")
	queueAddCmd.Flags().StringVar(&queueOwner, "owner", "", "Owner identifier")

	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueAddCmd)
	queueCmd.AddCommand(queueClearCmd)
}

func runQueueList(cmd *cobra.Command, args []string) error {
	actions, err := newClient().ListQueue(cmd.Context())
	if err != nil {
		return err
	}
	return render(cmd, actions, func() error {
		if len(actions) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
			return nil
		}
		table := output.NewTableData("ID", "TYPE", "PRIORITY", "RETRIES", "CREATED", "LAST ERROR")
		for _, a := range actions {
			table.AddRow(
				a.ID,
				string(a.Type),
				a.Priority.String(),
				fmt.Sprintf("%d/%d", a.RetryCount, a.MaxRetries),
				a.CreatedAt.Local().Format(time.RFC3339),
				a.LastError,
			)
		}
		return output.PrintTable(cmd.OutOrStdout(), table)
	})
}

func runQueueAdd(cmd *cobra.Command, args []string) error {
	priority, err := action.ParsePriority(queuePriority)
	if err != nil {
		return err
	}
	req := &action.EnqueueRequest{
		Type:     action.Type(args[0]),
		Priority: priority,
		OwnerID:  queueOwner,
	}
	if queuePayload != "" {
		if !json.Valid([]byte(queuePayload)) {
			return fmt.Errorf("payload is not valid JSON")
		}
		req.Payload = json.RawMessage(queuePayload)
	}
	if queueMaxRetries >= 0 {
		req.MaxRetries = &queueMaxRetries
	}

	a, err := newClient().Enqueue(cmd.Context(), req)
	if err != nil {
		return err
	}
	return render(cmd, a, func() error {
		return output.SimpleTable(cmd.OutOrStdout(), [][2]string{
			{"ID", a.ID},
			{"Type", string(a.Type)},
			{"Priority", a.Priority.String()},
			{"Max retries", strconv.Itoa(a.MaxRetries)},
		})
	})
}
