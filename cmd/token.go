package cmd

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"halmon/internal/middleware"
	"halmon/internal/services"
)

func newTokenCmd() *cobra.Command {
	var serverName string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a token for the alert websocket",
		Long: `Prints a signed token and the websocket URL to connect with.
Tokens are only issued locally; the HTTP API never hands them out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initLogger(false); err != nil {
				return err
			}
			if serverName == "" {
				serverName, _ = os.Hostname()
			}
			if !middleware.NewInputValidator().ValidateServerName(serverName) {
				return fmt.Errorf("invalid server name %q", serverName)
			}

			auth, err := services.NewAuthService(cfg.Auth.Secret, cfg.Auth.TokenExpiry, "")
			if err != nil {
				return err
			}
			token, expires, err := auth.GenerateToken(serverName)
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}
			middleware.NewSecurityLogger().LogTokenGenerated("local", serverName)

			addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
			pterm.Success.Println("Token issued for " + serverName)
			pterm.Println(token)
			pterm.Info.Printf("ws://%s/ws?token=%s\n", addr, token)
			pterm.Info.Printf("expires %s\n", expires.Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVar(&serverName, "server-name", "", "name embedded in the token (default: hostname)")
	return cmd
}
