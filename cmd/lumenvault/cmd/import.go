package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an existing account",
	Long: `Import an account from its secret seed and encrypt it into the vault.

The seed is read from the terminal with echo disabled, or from the
LUMENVAULT_SEED environment variable for non-interactive use. It is never
stored in the clear.`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	seed := os.Getenv("LUMENVAULT_SEED")
	if seed == "" {
		seed, err = promptPassphrase("Enter secret seed: ")
		if err != nil {
			return fmt.Errorf("failed to read seed: %w", err)
		}
	}

	passphrase, err := promptPassphraseConfirm()
	if err != nil {
		return err
	}

	id, err := a.svc.ImportAccount(seed, passphrase)
	if err != nil {
		return err
	}

	Success("Account imported")
	PrintKeyValue("Account", id)
	return nil
}
