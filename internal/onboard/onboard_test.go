package onboard

import (
	"context"
	"errors"
	"testing"

	"github.com/benbjohnson/clock"

	"github.com/lumenkit/lumenvault/internal/cryptobox"
	"github.com/lumenkit/lumenvault/internal/session"
	"github.com/lumenkit/lumenvault/internal/signer"
	"github.com/lumenkit/lumenvault/internal/store"
	"github.com/lumenkit/lumenvault/internal/txbuilder"
)

const (
	testAccount  = "GONBOARDME"
	testSecret   = "SCZANGBA5YHTNYVVV4C3U252E2B6P6F5T3U6MM63WBSBZATAQI3EBTQ4"
	testPassword = "p@ss1234"
)

// fakeBackend records handshake calls.
type fakeBackend struct {
	beginErr    error
	completeErr error

	beginCalls    int
	completeCalls int
	completedXDR  string
}

func (f *fakeBackend) BeginOnboard(_ context.Context, _ string) (string, error) {
	f.beginCalls++
	if f.beginErr != nil {
		return "", f.beginErr
	}
	return "unsigned-onboard", nil
}

func (f *fakeBackend) CompleteOnboard(_ context.Context, _ string, signedXDR string) error {
	f.completeCalls++
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completedXDR = signedXDR
	return nil
}

type fakeSigner struct{}

func (fakeSigner) Sign(unsignedXDR, _ string) (string, error) {
	return unsignedXDR + "+signed", nil
}

func okDescribe(string) ([]string, error) {
	return []string{"op 0: create account GONBOARDME with 1 XLM"}, nil
}

func newTestHandshake(t *testing.T, be *fakeBackend, describe DescribeFunc) (*Handshake, *signer.Coordinator, store.Store) {
	t.Helper()

	st := store.NewMemStore()
	bundle, err := cryptobox.Encrypt(testSecret, testPassword)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if err := st.PutBundle(testAccount, bundle); err != nil {
		t.Fatalf("PutBundle: %v", err)
	}

	sess := session.NewManager(st, clock.NewMock())
	t.Cleanup(sess.Lock)
	coord := signer.NewCoordinator(sess, fakeSigner{})

	return New(st, coord, be, describe), coord, st
}

func TestStart_FullHandshake(t *testing.T) {
	be := &fakeBackend{}
	h, coord, st := newTestHandshake(t, be, okDescribe)

	req, err := h.Start(context.Background(), testAccount)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if req == nil {
		t.Fatal("expected a sign request for a never-onboarded account")
	}

	// Consent is recorded before approval.
	trust, _ := st.Trust(testAccount)
	if !trust.Connected {
		t.Error("Connected not set by Start")
	}
	if trust.Onboarded {
		t.Error("Onboarded set before the handshake finished")
	}

	if err := coord.Approve(testPassword); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	if be.completeCalls != 1 {
		t.Fatalf("complete called %d times, want 1", be.completeCalls)
	}
	if be.completedXDR != "unsigned-onboard+signed" {
		t.Errorf("complete got %q", be.completedXDR)
	}
	if !h.Onboarded(testAccount) {
		t.Fatal("account not marked onboarded after full handshake")
	}
}

func TestStart_AlreadyOnboarded(t *testing.T) {
	be := &fakeBackend{}
	h, _, st := newTestHandshake(t, be, okDescribe)

	st.SetTrust(testAccount, &store.TrustState{Onboarded: true})

	req, err := h.Start(context.Background(), testAccount)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if req != nil {
		t.Fatal("onboarded account should not produce a sign request")
	}
	if be.beginCalls != 0 {
		t.Error("begin called for an onboarded account")
	}

	// Consent is still recorded.
	trust, _ := st.Trust(testAccount)
	if !trust.Connected {
		t.Error("Connected not set")
	}
}

func TestStart_BeginFailure(t *testing.T) {
	be := &fakeBackend{beginErr: errors.New("backend down")}
	h, _, _ := newTestHandshake(t, be, okDescribe)

	if _, err := h.Start(context.Background(), testAccount); err == nil {
		t.Fatal("expected error when begin fails")
	}
	if h.Onboarded(testAccount) {
		t.Fatal("account marked onboarded after failed begin")
	}
}

func TestStart_CompleteFailureIsRetryable(t *testing.T) {
	be := &fakeBackend{completeErr: errors.New("backend down")}
	h, coord, _ := newTestHandshake(t, be, okDescribe)

	req, err := h.Start(context.Background(), testAccount)
	if err != nil || req == nil {
		t.Fatalf("Start: req=%v err=%v", req, err)
	}
	if err := coord.Approve(testPassword); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	// Begin succeeded, complete failed: partial completion is not done.
	if h.Onboarded(testAccount) {
		t.Fatal("partial handshake marked as onboarded")
	}

	// The whole sequence is retryable.
	be.completeErr = nil
	req, err = h.Start(context.Background(), testAccount)
	if err != nil || req == nil {
		t.Fatalf("retry Start: req=%v err=%v", req, err)
	}
	if err := coord.Approve(testPassword); err != nil {
		t.Fatalf("retry Approve: %v", err)
	}
	if !h.Onboarded(testAccount) {
		t.Fatal("retry did not complete onboarding")
	}
}

func TestStart_IndescribableTransaction(t *testing.T) {
	be := &fakeBackend{}
	badDescribe := func(string) ([]string, error) {
		return nil, txbuilder.ErrDescribe
	}
	h, coord, _ := newTestHandshake(t, be, badDescribe)

	_, err := h.Start(context.Background(), testAccount)
	if !errors.Is(err, txbuilder.ErrDescribe) {
		t.Fatalf("err = %v, want ErrDescribe", err)
	}
	if coord.Pending() != nil {
		t.Fatal("sign request created for an indescribable transaction")
	}
}

func TestConnectReset(t *testing.T) {
	be := &fakeBackend{}
	h, _, st := newTestHandshake(t, be, okDescribe)

	if err := h.Connect(testAccount); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	trust, _ := st.Trust(testAccount)
	if !trust.Connected {
		t.Fatal("Connect did not set the flag")
	}

	if err := h.ResetConnected(testAccount); err != nil {
		t.Fatalf("ResetConnected: %v", err)
	}
	trust, _ = st.Trust(testAccount)
	if trust.Connected {
		t.Fatal("ResetConnected did not clear the flag")
	}
}
