// Package cmd provides the CLI commands for lumenvault.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	vaultDir   string
	jsonOutput bool
	verbose    bool
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "lumenvault",
	Short: "LumenVault CLI - Local Stellar key vault and transaction signer",
	Long: `LumenVault CLI keeps Stellar account keys encrypted on your local machine
and signs transactions through a short-lived unlock session.

Get started:
  lumenvault create           Create a new account
  lumenvault unlock           Open an unlock session
  lumenvault send ADDR AMT    Send a payment
  lumenvault status           Show vault status

Examples:
  lumenvault create
  lumenvault send GDUT...KLMN 10.5
  lumenvault swap --send XLM --receive USDC:GA5Z...R2E4 --amount 25
  lumenvault onboard`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&vaultDir, "vault", "", "vault directory (default ~/.lumenvault)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}
