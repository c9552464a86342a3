package cmd

import (
	"fmt"
	"os"

	"github.com/benbjohnson/clock"
	"golang.org/x/term"

	"github.com/lumenkit/lumenvault/internal/backend"
	"github.com/lumenkit/lumenvault/internal/chain"
	"github.com/lumenkit/lumenvault/internal/config"
	"github.com/lumenkit/lumenvault/internal/logging"
	"github.com/lumenkit/lumenvault/internal/store"
	"github.com/lumenkit/lumenvault/internal/wallet"
)

// app bundles the wired service with the collaborators a command may need
// directly.
type app struct {
	svc   *wallet.Service
	relay *backend.Client
	cfg   *config.Config
	st    *store.BoltStore
}

// openApp loads configuration and wires the wallet service over the local
// vault database. The --vault flag overrides the configured directory.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if vaultDir != "" {
		cfg.Vault.Dir = vaultDir
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logging.Setup(level)

	if err := os.MkdirAll(cfg.Vault.Dir, 0700); err != nil {
		return nil, fmt.Errorf("create vault directory: %w", err)
	}

	st, err := store.NewBoltStore(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open vault at %s: %w", cfg.DBPath(), err)
	}

	relay := backend.NewClient(cfg.Network.BackendURL, cfg.Network.SubmitTimeout)

	svc, err := wallet.New(wallet.Deps{
		Store:     st,
		Chain:     chain.NewHorizonReader(cfg.Network.HorizonURL),
		TxSigner:  chain.NewSigner(cfg.Network.Passphrase),
		Keys:      chain.KeyTool{},
		Backend:   relay,
		Submitter: relay,
		Clock:     clock.New(),
		UnlockDefaults: store.Prefs{
			UnlockTTL:  cfg.Unlock.TTL,
			AutoExtend: cfg.Unlock.AutoExtend,
		},
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	return &app{svc: svc, relay: relay, cfg: cfg, st: st}, nil
}

// close locks the session and releases the vault database.
func (a *app) close() {
	a.svc.Lock()
	a.st.Close()
}

// approvePending shows the pending request's descriptor, asks for
// confirmation, and approves it with the user's passphrase.
func approvePending(a *app) error {
	req := a.svc.PendingRequest()
	if req == nil {
		return fmt.Errorf("no pending sign request")
	}

	fmt.Println(Bold("Review transaction:"))
	for _, line := range req.Descriptor {
		fmt.Printf("  %s\n", line)
	}
	fmt.Printf("  %s\n", Dim("account %s", req.AccountID))

	if !PromptConfirm("Sign and submit?") {
		a.svc.RejectPending()
		Warning("Request rejected")
		return nil
	}

	passphrase := os.Getenv("LUMENVAULT_PASSPHRASE")
	if passphrase == "" {
		var err error
		passphrase, err = promptPassphrase("Enter passphrase: ")
		if err != nil {
			return fmt.Errorf("failed to read passphrase: %w", err)
		}
	}

	return a.svc.Approve(passphrase)
}

// runSignRequest subscribes for the submission outcome, then drives the
// pending request through approval.
func runSignRequest(a *app) error {
	var submitted, failed bool
	var hash string
	var failErr error
	a.svc.Subscribe(func(e wallet.Event) {
		switch e.Kind {
		case wallet.EventSubmitted:
			submitted, hash = true, e.TxHash
		case wallet.EventSubmitFailed:
			failed, failErr = true, e.Err
		}
	})

	if err := approvePending(a); err != nil {
		return err
	}

	switch {
	case submitted:
		Success("Transaction submitted")
		PrintKeyValue("Hash", hash)
	case failed:
		return fmt.Errorf("submission failed: %w", failErr)
	}
	return nil
}

// promptPassphrase reads a passphrase from the terminal with echo disabled.
func promptPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// promptPassphraseConfirm prompts for a passphrase twice and ensures they match.
func promptPassphraseConfirm() (string, error) {
	pass, err := promptPassphrase("Enter passphrase: ")
	if err != nil {
		return "", err
	}
	if pass == "" {
		return "", fmt.Errorf("passphrase cannot be empty")
	}
	confirm, err := promptPassphrase("Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if pass != confirm {
		return "", fmt.Errorf("passphrases do not match")
	}
	return pass, nil
}
