package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/avatarctic/offline-sync/internal/cli/output"
	"github.com/spf13/cobra"
)

var (
	loginUsername   string
	loginPassword   string
	loginPrintToken bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Exchange operator credentials for an access token",
	RunE:  runLogin,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "admin", "Operator username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Operator password (read from stdin when empty)")
	loginCmd.Flags().BoolVar(&loginPrintToken, "print-token", false, "Print only the access token")
}

func runLogin(cmd *cobra.Command, args []string) error {
	password := loginPassword
	if password == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	tokens, err := newClient().Login(cmd.Context(), loginUsername, password)
	if err != nil {
		return err
	}
	if loginPrintToken {
		fmt.Fprintln(cmd.OutOrStdout(), tokens.AccessToken)
		return nil
	}
	return render(cmd, tokens, func() error {
		return output.SimpleTable(cmd.OutOrStdout(), [][2]string{
			{"Token type", tokens.TokenType},
			{"Expires in", fmt.Sprintf("%ds", tokens.ExpiresIn)},
			{"Access token", tokens.AccessToken},
		})
	})
}
