package root

import (
	"github.com/crucial707/hci-inventory/cmd/cli/auth"
	"github.com/crucial707/hci-inventory/cmd/cli/config"
	"github.com/crucial707/hci-inventory/cmd/cli/inventory"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the invctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &config.Options{}

	rootCmd := &cobra.Command{
		Use:           "invctl",
		Short:         "Inventory CLI",
		Long:          "Command line interface for the inventory API. Set INVENTORY_API_URL and INVENTORY_TOKEN, or use --api-url and --token.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.APIURL, "api-url", "", "API base URL (default $INVENTORY_API_URL or http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&opts.Token, "token", "", "bearer token (default $INVENTORY_TOKEN or the saved token)")
	rootCmd.PersistentFlags().BoolVar(&opts.JSON, "json", false, "print JSON instead of tables")

	inventory.InitInventory(rootCmd, opts)
	auth.InitAuth(rootCmd)
	return rootCmd
}
