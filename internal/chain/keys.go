package chain

import (
	"fmt"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
)

// Signer signs a serialized transaction with a raw secret seed for a given
// network. It implements signer.TxSigner.
type Signer struct {
	networkPassphrase string
}

// NewSigner creates a signer for the given network passphrase.
func NewSigner(networkPassphrase string) *Signer {
	return &Signer{networkPassphrase: networkPassphrase}
}

// Sign parses the unsigned envelope, signs it with the seed, and returns
// the signed envelope. The parsed keypair goes out of scope with the call;
// the seed itself is never retained.
func (s *Signer) Sign(unsignedXDR, secretSeed string) (string, error) {
	kp, err := keypair.ParseFull(secretSeed)
	if err != nil {
		return "", fmt.Errorf("parse secret seed: %w", err)
	}

	generic, err := txnbuild.TransactionFromXDR(unsignedXDR)
	if err != nil {
		return "", fmt.Errorf("parse transaction: %w", err)
	}
	tx, ok := generic.Transaction()
	if !ok {
		return "", fmt.Errorf("unsupported envelope type")
	}

	signed, err := tx.Sign(s.networkPassphrase, kp)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	signedXDR, err := signed.Base64()
	if err != nil {
		return "", fmt.Errorf("serialize signed transaction: %w", err)
	}
	return signedXDR, nil
}

// KeyTool exposes the keypair helpers as a value for injection.
type KeyTool struct{}

// NewKeypair generates a fresh random account keypair.
func (KeyTool) NewKeypair() (accountID, secretSeed string, err error) {
	return NewKeypair()
}

// AddressFromSeed derives the public identifier for a secret seed.
func (KeyTool) AddressFromSeed(secretSeed string) (accountID string, err error) {
	return AddressFromSeed(secretSeed)
}

// NewKeypair generates a fresh random account keypair and returns its
// public identifier and secret seed.
func NewKeypair() (accountID, secretSeed string, err error) {
	kp, err := keypair.Random()
	if err != nil {
		return "", "", fmt.Errorf("generate keypair: %w", err)
	}
	return kp.Address(), kp.Seed(), nil
}

// AddressFromSeed derives the public identifier for a secret seed. Used on
// import to key the vault entry.
func AddressFromSeed(secretSeed string) (string, error) {
	kp, err := keypair.ParseFull(secretSeed)
	if err != nil {
		return "", fmt.Errorf("parse secret seed: %w", err)
	}
	return kp.Address(), nil
}
