package cmd

import (
	"github.com/spf13/cobra"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Run the onboarding handshake",
	Long: `Run the onboarding handshake for the current account: fetch the setup
transaction from the relay, review it, and sign it to activate the account.

Onboarding runs once per account. If a previous attempt failed after
signing, running it again retries the handshake.`,
	RunE: runOnboard,
}

func init() {
	rootCmd.AddCommand(onboardCmd)
}

func runOnboard(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	req, err := a.svc.Onboard(cmd.Context())
	if err != nil {
		return err
	}
	if req == nil {
		Info("Account is already onboarded")
		return nil
	}

	if err := approvePending(a); err != nil {
		return err
	}
	if a.svc.Onboarded() {
		Success("Account onboarded")
	}
	return nil
}
