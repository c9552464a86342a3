package txbuilder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
)

// fakeChain is a ChainReader with canned responses.
type fakeChain struct {
	sequence int64
	seqErr   error
	p95      int64
	feeErr   error

	seqCalls int
	feeCalls int
}

func (f *fakeChain) AccountSequence(_ context.Context, _ string) (int64, error) {
	f.seqCalls++
	return f.sequence, f.seqErr
}

func (f *fakeChain) FeeP95(_ context.Context) (int64, error) {
	f.feeCalls++
	return f.p95, f.feeErr
}

func newTestBuilder(chain *fakeChain) (*Builder, *clock.Mock) {
	mock := clock.NewMock()
	return NewBuilder(chain, mock), mock
}

func testAddress(t *testing.T) string {
	t.Helper()
	kp, err := keypair.Random()
	if err != nil {
		t.Fatalf("keypair.Random: %v", err)
	}
	return kp.Address()
}

func TestBuildPayment_Native(t *testing.T) {
	chain := &fakeChain{sequence: 41, p95: 250}
	b, mock := newTestBuilder(chain)

	source := testAddress(t)
	dest := testAddress(t)

	built, err := b.BuildPayment(context.Background(), PaymentParams{
		Source:      source,
		Destination: dest,
		Asset:       AssetRef{Code: "XLM"},
		Amount:      "10.5",
	})
	if err != nil {
		t.Fatalf("BuildPayment: %v", err)
	}

	if built.XDR == "" {
		t.Fatal("empty XDR")
	}
	if built.BaseFee != 250 {
		t.Errorf("BaseFee = %d, want 250", built.BaseFee)
	}
	if built.SequenceNumber != 42 {
		t.Errorf("SequenceNumber = %d, want 42", built.SequenceNumber)
	}
	if want := mock.Now().Add(ValidityWindow); !built.ValidUntil.Equal(want) {
		t.Errorf("ValidUntil = %v, want %v", built.ValidUntil, want)
	}

	if len(built.Descriptor) != 1 {
		t.Fatalf("descriptor has %d lines, want 1", len(built.Descriptor))
	}
	line := built.Descriptor[0]
	for _, want := range []string{"10.5", "XLM", dest} {
		if !strings.Contains(line, want) {
			t.Errorf("descriptor %q missing %q", line, want)
		}
	}
}

func TestBuildPayment_TimeBoundsEncoded(t *testing.T) {
	chain := &fakeChain{sequence: 1, p95: 100}
	b, mock := newTestBuilder(chain)

	built, err := b.BuildPayment(context.Background(), PaymentParams{
		Source:      testAddress(t),
		Destination: testAddress(t),
		Asset:       AssetRef{},
		Amount:      "1",
	})
	if err != nil {
		t.Fatalf("BuildPayment: %v", err)
	}

	generic, err := txnbuild.TransactionFromXDR(built.XDR)
	if err != nil {
		t.Fatalf("TransactionFromXDR: %v", err)
	}
	tx, ok := generic.Transaction()
	if !ok {
		t.Fatal("not a simple transaction")
	}

	tb := tx.Timebounds()
	if tb.MinTime != 0 {
		t.Errorf("MinTime = %d, want 0", tb.MinTime)
	}
	if want := mock.Now().Add(ValidityWindow).Unix(); tb.MaxTime != want {
		t.Errorf("MaxTime = %d, want %d", tb.MaxTime, want)
	}
}

func TestBuildPayment_FeeFallback(t *testing.T) {
	chain := &fakeChain{sequence: 1, feeErr: errors.New("horizon down")}
	b, _ := newTestBuilder(chain)

	built, err := b.BuildPayment(context.Background(), PaymentParams{
		Source:      testAddress(t),
		Destination: testAddress(t),
		Asset:       AssetRef{Code: "xlm"},
		Amount:      "1",
	})
	if err != nil {
		t.Fatalf("BuildPayment with failed fee stats: %v", err)
	}
	if built.BaseFee != MinBaseFee {
		t.Errorf("BaseFee = %d, want fallback %d", built.BaseFee, MinBaseFee)
	}
}

func TestBuildPayment_SequenceFetchFailureAborts(t *testing.T) {
	chain := &fakeChain{seqErr: errors.New("horizon down")}
	b, _ := newTestBuilder(chain)

	_, err := b.BuildPayment(context.Background(), PaymentParams{
		Source:      testAddress(t),
		Destination: testAddress(t),
		Asset:       AssetRef{},
		Amount:      "1",
	})
	if err == nil {
		t.Fatal("expected error when sequence fetch fails")
	}
}

func TestBuild_FetchesFreshEachTime(t *testing.T) {
	chain := &fakeChain{sequence: 7, p95: 100}
	b, _ := newTestBuilder(chain)

	p := PaymentParams{
		Source:      testAddress(t),
		Destination: testAddress(t),
		Asset:       AssetRef{},
		Amount:      "2",
	}
	for i := 0; i < 3; i++ {
		if _, err := b.BuildPayment(context.Background(), p); err != nil {
			t.Fatalf("BuildPayment %d: %v", i, err)
		}
	}
	if chain.seqCalls != 3 || chain.feeCalls != 3 {
		t.Errorf("sequence/fee fetched %d/%d times, want 3/3 (no caching across builds)",
			chain.seqCalls, chain.feeCalls)
	}
}

func TestBuildPayment_InvalidAmount(t *testing.T) {
	chain := &fakeChain{sequence: 1, p95: 100}
	b, _ := newTestBuilder(chain)

	for _, bad := range []string{"", "abc", "1.23456789", "-5", "-0.0000001", "0", "1,5"} {
		_, err := b.BuildPayment(context.Background(), PaymentParams{
			Source:      testAddress(t),
			Destination: testAddress(t),
			Asset:       AssetRef{},
			Amount:      bad,
		})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("amount %q: err = %v, want ErrInvalidAmount", bad, err)
		}
	}
}

func TestBuildPathPaymentStrictSend_DestMinVerbatim(t *testing.T) {
	chain := &fakeChain{sequence: 10, p95: 100}
	b, _ := newTestBuilder(chain)

	issuer := testAddress(t)
	dest := testAddress(t)

	// The quote already applied 200 bps of slippage; the builder must
	// encode DestMin exactly, with no re-derivation or rounding.
	const destMin = "97.0588235"

	built, err := b.BuildPathPaymentStrictSend(context.Background(), StrictSendParams{
		Source:      testAddress(t),
		Destination: dest,
		SendAsset:   AssetRef{Code: "XLM"},
		SendAmount:  "25",
		DestAsset:   AssetRef{Code: "USDC", Issuer: issuer},
		DestMin:     destMin,
		Path:        []AssetRef{{Code: "EURC", Issuer: issuer}},
	})
	if err != nil {
		t.Fatalf("BuildPathPaymentStrictSend: %v", err)
	}

	generic, err := txnbuild.TransactionFromXDR(built.XDR)
	if err != nil {
		t.Fatalf("TransactionFromXDR: %v", err)
	}
	tx, _ := generic.Transaction()
	op, ok := tx.Operations()[0].(*txnbuild.PathPaymentStrictSend)
	if !ok {
		t.Fatalf("operation is %T, want PathPaymentStrictSend", tx.Operations()[0])
	}
	if op.DestMin != destMin {
		t.Errorf("encoded DestMin = %q, want %q", op.DestMin, destMin)
	}
	if op.SendAmount != "25" {
		t.Errorf("encoded SendAmount = %q, want 25", op.SendAmount)
	}
	if len(op.Path) != 1 {
		t.Errorf("encoded path has %d hops, want 1", len(op.Path))
	}

	joined := strings.Join(built.Descriptor, "\n")
	for _, want := range []string{"25", destMin, "USDC", dest} {
		if !strings.Contains(joined, want) {
			t.Errorf("descriptor %q missing %q", joined, want)
		}
	}
}

func TestBuildPathPaymentStrictReceive_SendMaxVerbatim(t *testing.T) {
	chain := &fakeChain{sequence: 10, p95: 100}
	b, _ := newTestBuilder(chain)

	issuer := testAddress(t)
	const sendMax = "102.0408163"

	built, err := b.BuildPathPaymentStrictReceive(context.Background(), StrictReceiveParams{
		Source:      testAddress(t),
		Destination: testAddress(t),
		SendAsset:   AssetRef{Code: "USDC", Issuer: issuer},
		SendMax:     sendMax,
		DestAsset:   AssetRef{},
		DestAmount:  "100",
	})
	if err != nil {
		t.Fatalf("BuildPathPaymentStrictReceive: %v", err)
	}

	generic, err := txnbuild.TransactionFromXDR(built.XDR)
	if err != nil {
		t.Fatalf("TransactionFromXDR: %v", err)
	}
	tx, _ := generic.Transaction()
	op, ok := tx.Operations()[0].(*txnbuild.PathPaymentStrictReceive)
	if !ok {
		t.Fatalf("operation is %T, want PathPaymentStrictReceive", tx.Operations()[0])
	}
	if op.SendMax != sendMax {
		t.Errorf("encoded SendMax = %q, want %q", op.SendMax, sendMax)
	}
	if op.DestAmount != "100" {
		t.Errorf("encoded DestAmount = %q, want 100", op.DestAmount)
	}
}

func TestAssetRef_Resolve(t *testing.T) {
	issuer := testAddress(t)

	tests := []struct {
		name    string
		ref     AssetRef
		native  bool
		wantErr bool
	}{
		{"native_upper", AssetRef{Code: "XLM"}, true, false},
		{"native_lower", AssetRef{Code: "xlm"}, true, false},
		{"native_mixed", AssetRef{Code: "Xlm"}, true, false},
		{"native_empty", AssetRef{}, true, false},
		{"issued", AssetRef{Code: "USDC", Issuer: issuer}, false, false},
		{"issued_no_issuer", AssetRef{Code: "USDC"}, false, true},
		{"native_with_issuer", AssetRef{Code: "XLM", Issuer: issuer}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset, err := tt.ref.Resolve()
			if tt.wantErr {
				if !errors.Is(err, ErrAmbiguousAsset) {
					t.Fatalf("err = %v, want ErrAmbiguousAsset", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if asset.IsNative() != tt.native {
				t.Errorf("IsNative = %v, want %v", asset.IsNative(), tt.native)
			}
		})
	}
}

func TestDescribe_GarbageXDR(t *testing.T) {
	for _, bad := range []string{"", "not-xdr", "AAAA"} {
		if _, err := Describe(bad); !errors.Is(err, ErrDescribe) {
			t.Errorf("Describe(%q): err = %v, want ErrDescribe", bad, err)
		}
	}
}

func TestValidityWindow(t *testing.T) {
	if ValidityWindow != 180*time.Second {
		t.Fatalf("ValidityWindow = %v, want 180s", ValidityWindow)
	}
}
