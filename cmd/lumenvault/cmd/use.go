package cmd

import (
	"github.com/spf13/cobra"
)

var useCmd = &cobra.Command{
	Use:   "use ACCOUNT",
	Short: "Switch the current account",
	Long: `Switch the current account. Switching locks any open unlock session and
cancels any pending sign request before the new account takes effect.`,
	Args: cobra.ExactArgs(1),
	RunE: runUse,
}

func init() {
	rootCmd.AddCommand(useCmd)
}

func runUse(_ *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.svc.SwitchAccount(args[0]); err != nil {
		return err
	}

	Success("Current account is now %s", args[0])
	return nil
}
