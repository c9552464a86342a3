package chain

import (
	"strings"
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
)

func TestNewKeypair(t *testing.T) {
	accountID, seed, err := NewKeypair()
	if err != nil {
		t.Fatalf("NewKeypair: %v", err)
	}
	if !strings.HasPrefix(accountID, "G") {
		t.Errorf("account id %q does not look like a public identifier", accountID)
	}
	if !strings.HasPrefix(seed, "S") {
		t.Errorf("seed %q does not look like a secret seed", seed)
	}

	derived, err := AddressFromSeed(seed)
	if err != nil {
		t.Fatalf("AddressFromSeed: %v", err)
	}
	if derived != accountID {
		t.Errorf("AddressFromSeed = %q, want %q", derived, accountID)
	}
}

func TestAddressFromSeed_Invalid(t *testing.T) {
	if _, err := AddressFromSeed("not-a-seed"); err == nil {
		t.Fatal("expected error for invalid seed")
	}
}

func TestSigner_Sign(t *testing.T) {
	kp, err := keypair.Random()
	if err != nil {
		t.Fatalf("keypair.Random: %v", err)
	}
	dest, err := keypair.Random()
	if err != nil {
		t.Fatalf("keypair.Random: %v", err)
	}

	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &txnbuild.SimpleAccount{AccountID: kp.Address(), Sequence: 1},
		IncrementSequenceNum: true,
		Operations: []txnbuild.Operation{
			&txnbuild.Payment{
				Destination: dest.Address(),
				Amount:      "1",
				Asset:       txnbuild.NativeAsset{},
			},
		},
		BaseFee:       txnbuild.MinBaseFee,
		Preconditions: txnbuild.Preconditions{TimeBounds: txnbuild.NewTimebounds(0, 300)},
	})
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	unsigned, err := tx.Base64()
	if err != nil {
		t.Fatalf("Base64: %v", err)
	}

	s := NewSigner(network.TestNetworkPassphrase)
	signed, err := s.Sign(unsigned, kp.Seed())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if signed == unsigned {
		t.Fatal("signed envelope identical to unsigned input")
	}

	generic, err := txnbuild.TransactionFromXDR(signed)
	if err != nil {
		t.Fatalf("TransactionFromXDR(signed): %v", err)
	}
	parsed, ok := generic.Transaction()
	if !ok {
		t.Fatal("signed envelope is not a simple transaction")
	}
	if got := len(parsed.Signatures()); got != 1 {
		t.Errorf("signature count = %d, want 1", got)
	}
}

func TestSigner_Sign_BadInputs(t *testing.T) {
	s := NewSigner(network.TestNetworkPassphrase)

	if _, err := s.Sign("garbage", "SBPQUZ6G4FZNWFHKUWC5BEYWF6R52E3SEP7R3GWYSM2XTKGF5LNTWW4R"); err == nil {
		t.Error("expected error for malformed transaction")
	}

	kp, _ := keypair.Random()
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &txnbuild.SimpleAccount{AccountID: kp.Address(), Sequence: 1},
		IncrementSequenceNum: true,
		Operations: []txnbuild.Operation{
			&txnbuild.Payment{Destination: kp.Address(), Amount: "1", Asset: txnbuild.NativeAsset{}},
		},
		BaseFee:       txnbuild.MinBaseFee,
		Preconditions: txnbuild.Preconditions{TimeBounds: txnbuild.NewTimebounds(0, 300)},
	})
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	unsigned, _ := tx.Base64()

	if _, err := s.Sign(unsigned, "not-a-seed"); err == nil {
		t.Error("expected error for invalid seed")
	}
}
