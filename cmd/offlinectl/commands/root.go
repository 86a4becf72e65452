// Package commands implements the offlinectl command tree.
package commands

import (
	"fmt"
	"os"

	"github.com/avatarctic/offline-sync/internal/cli/client"
	"github.com/avatarctic/offline-sync/internal/cli/output"
	"github.com/spf13/cobra"
)

var (
	serverURL    string
	token        string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "offlinectl",
	Short: "Operate an offline-sync engine through its admin API",
	Long: `offlinectl inspects and drives a running offline-sync server.

Examples:
  # Show connectivity, queue and cache state
  offlinectl status

  # Obtain a token and run a sync pass
  export OFFLINECTL_TOKEN=$(offlinectl login -u admin -p secret --print-token)
  offlinectl sync

  # Queue an action
  offlinectl queue add submit_form --payload '{"name":"a"}' --priority high`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("OFFLINECTL_SERVER", "http://localhost:8080"), "Server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("OFFLINECTL_TOKEN"), "Bearer token for the admin API")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table|json)")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(networkCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

func newClient() *client.Client {
	return client.New(serverURL, token)
}

func format() (output.Format, error) {
	return output.ParseFormat(outputFormat)
}

// render prints v as JSON, or calls table when the table format is selected.
func render(cmd *cobra.Command, v any, table func() error) error {
	f, err := format()
	if err != nil {
		return err
	}
	if f == output.FormatJSON {
		return output.PrintJSON(cmd.OutOrStdout(), v)
	}
	return table()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
