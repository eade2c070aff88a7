// Package cli implements the farecard command line.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "farecard",
	Short: "Transit fare-card server and client",
	Long: `farecard keeps a ledger of transit fare cards and serves it over a
plain text TCP protocol. Clients create cards, check balances, pay for
rides, top up wallets and change their home-region contract.`,
	SilenceUsage: true,
}

// Execute runs the command named by os.Args.
func Execute() error {
	return rootCmd.Execute()
}
