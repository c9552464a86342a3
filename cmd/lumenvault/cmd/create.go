package cmd

import (
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new account",
	Long: `Create a new account: generate a fresh keypair, encrypt its secret seed
under a passphrase you choose, and store it in the local vault.

The first account created becomes the current account.`,
	RunE: runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)
}

func runCreate(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	passphrase, err := promptPassphraseConfirm()
	if err != nil {
		return err
	}

	id, err := a.svc.CreateAccount(passphrase)
	if err != nil {
		return err
	}

	Success("Account created")
	PrintKeyValue("Account", id)
	Info("Fund the account before sending, then run 'lumenvault onboard'")
	return nil
}
