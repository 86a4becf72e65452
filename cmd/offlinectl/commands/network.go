package commands

import (
	"strconv"
	"time"

	"github.com/avatarctic/offline-sync/internal/cli/output"
	"github.com/avatarctic/offline-sync/internal/core/domain/network"
	"github.com/spf13/cobra"
)

var (
	reportConnected bool
	reportReachable bool
	reportTransport string
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Show or report connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := newClient().Network(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd, view, func() error {
			if !view.Known {
				return output.SimpleTable(cmd.OutOrStdout(), [][2]string{{"Known", "false"}})
			}
			return printSnapshot(cmd, &view.Snapshot)
		})
	},
}

var networkReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Push a connectivity observation to the monitor",
	Long: `Push a connectivity observation, as a platform bridge would.

Examples:
  offlinectl network report --connected --reachable --transport wifi
  offlinectl network report --connected=false`,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := newClient().ReportNetwork(cmd.Context(), reportConnected, reportReachable, reportTransport)
		if err != nil {
			return err
		}
		return render(cmd, snap, func() error { return printSnapshot(cmd, snap) })
	},
}

var networkRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Probe connectivity now",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := newClient().RefreshNetwork(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd, snap, func() error { return printSnapshot(cmd, snap) })
	},
}

func init() {
	networkReportCmd.Flags().BoolVar(&reportConnected, "connected", true, "Device has a network link")
	networkReportCmd.Flags().BoolVar(&reportReachable, "reachable", true, "Upstream is reachable")
	networkReportCmd.Flags().StringVar(&reportTransport, "transport", network.TransportUnknown, "Transport (wifi|ethernet|cellular|none|unknown)")

	networkCmd.AddCommand(networkReportCmd)
	networkCmd.AddCommand(networkRefreshCmd)
}

func printSnapshot(cmd *cobra.Command, snap *network.Snapshot) error {
	return output.SimpleTable(cmd.OutOrStdout(), [][2]string{
		{"Online", strconv.FormatBool(snap.Online())},
		{"Connected", strconv.FormatBool(snap.IsConnected)},
		{"Reachable", strconv.FormatBool(snap.IsReachable)},
		{"Transport", snap.TransportType},
		{"Observed", snap.ObservedAt.Local().Format(time.RFC3339)},
	})
}
