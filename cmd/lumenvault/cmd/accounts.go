package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List stored accounts",
	Long:  "List the accounts stored in the vault. The current account is marked with an asterisk.",
	RunE:  runAccounts,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
}

func runAccounts(_ *cobra.Command, _ []string) error {
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

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"accounts": accounts,
			"current":  current,
		})
	}

	if len(accounts) == 0 {
		Info("No accounts yet, run 'lumenvault create' or 'lumenvault import'")
		return nil
	}

	for _, id := range accounts {
		marker := " "
		if id == current {
			marker = Bold("*")
		}
		fmt.Printf("%s %s\n", marker, id)
	}
	return nil
}
