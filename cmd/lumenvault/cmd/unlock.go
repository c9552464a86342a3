package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lumenkit/lumenvault/internal/store"
)

var (
	unlockTTL        time.Duration
	unlockAutoExtend bool
)

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Open an unlock session",
	Long: `Open an unlock session for the current account by entering your passphrase.
The session closes automatically when its TTL elapses.

The passphrase can also be provided via the LUMENVAULT_PASSPHRASE
environment variable. The --ttl and --auto-extend flags persist as the
account preferences for future sessions.`,
	RunE: runUnlock,
}

func init() {
	unlockCmd.Flags().DurationVar(&unlockTTL, "ttl", 0, "session TTL (1m to 60m, persisted)")
	unlockCmd.Flags().BoolVar(&unlockAutoExtend, "auto-extend", false, "extend the session on use (persisted)")
	rootCmd.AddCommand(unlockCmd)
}

func runUnlock(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.st.Close()

	if cmd.Flags().Changed("ttl") || cmd.Flags().Changed("auto-extend") {
		ttl := unlockTTL
		if ttl == 0 {
			ttl = a.svc.SessionTTL()
		}
		if err := a.svc.SetUnlockPrefs(store.Prefs{UnlockTTL: ttl, AutoExtend: unlockAutoExtend}); err != nil {
			return err
		}
	}

	passphrase := os.Getenv("LUMENVAULT_PASSPHRASE")
	if passphrase == "" {
		passphrase, err = promptPassphrase("Enter passphrase: ")
		if err != nil {
			return fmt.Errorf("failed to read passphrase: %w", err)
		}
	}

	if err := a.svc.Unlock(passphrase); err != nil {
		return err
	}

	Success("Session unlocked until %s", a.svc.SessionExpiresAt().Local().Format("15:04:05"))
	return nil
}
