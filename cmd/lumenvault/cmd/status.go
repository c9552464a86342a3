package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault status",
	Long:  "Show vault status including path, account count, current account, and onboarding state.",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	accounts, err := a.svc.Accounts()
	if err != nil {
		return err
	}
	current, _ := a.svc.CurrentAccount()
	onboarded := a.svc.Onboarded()

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"vault_dir":       a.cfg.Vault.Dir,
			"account_count":   len(accounts),
			"current_account": current,
			"onboarded":       onboarded,
			"network":         a.cfg.Network.Passphrase,
		})
	}

	PrintKeyValue("Vault", a.cfg.Vault.Dir)
	PrintKeyValue("Accounts", fmt.Sprintf("%d", len(accounts)))
	if current != "" {
		PrintKeyValue("Current account", current)
		PrintKeyValue("Onboarded", fmt.Sprintf("%t", onboarded))
	}
	PrintKeyValue("Network", a.cfg.Network.Passphrase)
	return nil
}
