package cmd

import (
	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove ACCOUNT",
	Short: "Remove an account from the vault",
	Long: `Remove an account's encrypted bundle from the vault. Without the secret
seed backed up elsewhere the account becomes unrecoverable.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(_ *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	Warning("This deletes the encrypted seed for %s", args[0])
	if !PromptConfirm("Remove account?") {
		Info("Cancelled")
		return nil
	}

	if err := a.svc.RemoveAccount(args[0]); err != nil {
		return err
	}

	Success("Account removed")
	return nil
}
