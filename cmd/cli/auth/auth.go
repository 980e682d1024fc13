package auth

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/crucial707/hci-inventory/cmd/cli/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

// InitAuth registers the token commands on the root command. Tokens are
// issued by the identity provider; the CLI only stores them.
func InitAuth(rootCmd *cobra.Command) {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored API token",
	}
	tokenCmd.AddCommand(saveCmd(), showCmd(), clearCmd())
	rootCmd.AddCommand(tokenCmd)
}

// saveCmd stores a bearer token for subsequent commands.
func saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save [token]",
		Short: "Save a JWT for later commands (reads stdin when no argument is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				token = line
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("token is required")
			}

			// Only the shape is checked here; the API verifies the signature.
			if _, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{}); err != nil {
				return fmt.Errorf("not a JWT: %w", err)
			}

			if err := config.SaveToken(token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token stored locally.")
			return nil
		},
	}
}

// showCmd prints the subject and expiry of the saved token without verifying it.
func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show who the saved token belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := config.ReadToken()
			if err != nil {
				return errors.New("no saved token")
			}
			claims := jwt.MapClaims{}
			if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
				return fmt.Errorf("saved token is not a JWT: %w", err)
			}

			sub, _ := claims.GetSubject()
			fmt.Fprintf(cmd.OutOrStdout(), "subject: %s\n", sub)
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "expires: %s\n", exp.UTC().Format("2006-01-02 15:04:05 MST"))
			}
			return nil
		},
	}
}

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ClearToken(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token removed.")
			return nil
		},
	}
}
