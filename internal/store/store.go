// Package store persists the vault and its surrounding device-local state:
// encrypted key bundles keyed by account public identifier, the current
// account pointer, per-account trust flags, and unlock preferences. It
// performs no cryptographic operations.
package store

import (
	"errors"
	"time"

	"github.com/lumenkit/lumenvault/internal/cryptobox"
)

// Sentinel errors returned by store operations.
var (
	// ErrBundleNotFound is returned when no encrypted bundle exists for
	// an account identifier.
	ErrBundleNotFound = errors.New("no key bundle for account")

	// ErrNoCurrentAccount is returned when no current account is set.
	ErrNoCurrentAccount = errors.New("no current account")
)

// TrustState holds the per-account consent and onboarding flags.
type TrustState struct {
	// Connected records that the UI has been granted address access for
	// this account. Reset whenever the current account changes.
	Connected bool `json:"connected"`

	// Onboarded records that the one-time onboarding handshake finished
	// end to end for this account.
	Onboarded bool `json:"onboarded"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Prefs holds the user's unlock preferences.
type Prefs struct {
	// UnlockTTL is the unlock session duration.
	UnlockTTL time.Duration `json:"unlock_ttl"`

	// AutoExtend extends the session deadline on each successful signing
	// operation.
	AutoExtend bool `json:"auto_extend"`
}

// Store defines the interface for vault persistence. Implementations must
// be atomic per entry: a crash mid-write may lose the entry being written
// but must not corrupt unrelated entries.
type Store interface {
	// Bundles
	GetBundle(accountID string) (*cryptobox.Bundle, error)
	PutBundle(accountID string, b *cryptobox.Bundle) error
	DeleteBundle(accountID string) error
	ListAccountIDs() ([]string, error)

	// Current account pointer
	CurrentAccount() (string, error)
	SetCurrentAccount(accountID string) error

	// Trust flags
	Trust(accountID string) (*TrustState, error)
	SetTrust(accountID string, t *TrustState) error

	// Unlock preferences
	Prefs() (*Prefs, error)
	SetPrefs(p *Prefs) error

	// Lifecycle
	Close() error
}
