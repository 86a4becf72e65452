package commands

import (
	"strconv"
	"time"

	"github.com/avatarctic/offline-sync/internal/cli/output"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the engine status",
	Long:  `Show connectivity, queue length, cache usage and the last sync time.`,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, err := newClient().Status(cmd.Context())
	if err != nil {
		return err
	}
	return render(cmd, st, func() error {
		connectivity := "offline"
		switch {
		case !st.Known:
			connectivity = "unknown"
		case st.Online():
			connectivity = "online"
		case st.IsConnected:
			connectivity = "connected (unreachable)"
		}
		lastSync := "never"
		if st.LastSyncTime != nil {
			lastSync = st.LastSyncTime.Local().Format(time.RFC3339)
		}
		return output.SimpleTable(cmd.OutOrStdout(), [][2]string{
			{"Connectivity", connectivity},
			{"Connection", st.ConnectionType},
			{"Queue", strconv.Itoa(st.QueueLength)},
			{"Cache items", strconv.Itoa(st.CacheItems)},
			{"Cache size", output.FormatBytes(st.CacheBytes)},
			{"Syncing", strconv.FormatBool(st.Syncing)},
			{"Last sync", lastSync},
		})
	})
}
