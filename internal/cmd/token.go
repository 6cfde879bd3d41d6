package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nigrani/internal/middleware"
	"nigrani/internal/services"
)

func newTokenCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generate an API and WebSocket access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				if host, err := os.Hostname(); err == nil {
					name = host
				} else {
					name = "nigrani-client"
				}
			}
			if !middleware.NewInputValidator().ValidateName(name) {
				return fmt.Errorf("invalid token name %q", name)
			}

			tokens, err := services.NewTokenService(cfg.Auth.Secret, cfg.Auth.SecretFile, cfg.Auth.TokenExpiry, logger.Named("auth"))
			if err != nil {
				return fmt.Errorf("failed to initialize token service: %w", err)
			}

			token, expiry, err := tokens.Generate(name)
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Token:   %s\n", token)
			fmt.Fprintf(out, "Name:    %s\n", name)
			fmt.Fprintf(out, "Expires: %s\n", expiry.Format("2006-01-02 15:04:05 MST"))
			fmt.Fprintf(out, "Stream:  ws://%s/ws?token=%s\n", cfg.Server.Addr, token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "name embedded in the token (default: hostname)")
	return cmd
}
