// Package onboard runs the one-time trust handshake for an account: the
// user consents to address sharing, the backend issues an onboarding
// transaction, the user approves it through the sign coordinator, and the
// signed result goes back to the backend. Only a fully completed round
// marks the account as onboarded; any partial run leaves the flags
// untouched and the whole sequence can be retried.
package onboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumenkit/lumenvault/internal/logging"
	"github.com/lumenkit/lumenvault/internal/signer"
	"github.com/lumenkit/lumenvault/internal/store"
)

// Backend is the slice of the wallet backend the handshake needs.
type Backend interface {
	BeginOnboard(ctx context.Context, publicID string) (unsignedXDR string, err error)
	CompleteOnboard(ctx context.Context, publicID, signedXDR string) error
}

// DescribeFunc renders a serialized transaction for the approval prompt.
type DescribeFunc func(xdr string) ([]string, error)

// Handshake drives the onboarding flow.
type Handshake struct {
	store    store.Store
	coord    *signer.Coordinator
	backend  Backend
	describe DescribeFunc
	log      *slog.Logger
}

// New creates a handshake over the given collaborators.
func New(st store.Store, coord *signer.Coordinator, be Backend, describe DescribeFunc) *Handshake {
	return &Handshake{
		store:    st,
		coord:    coord,
		backend:  be,
		describe: describe,
		log:      logging.Component("onboard"),
	}
}

// Connect records address-sharing consent for the account.
func (h *Handshake) Connect(accountID string) error {
	trust, err := h.store.Trust(accountID)
	if err != nil {
		return fmt.Errorf("load trust state: %w", err)
	}
	if trust.Connected {
		return nil
	}
	trust.Connected = true
	trust.UpdatedAt = time.Now().UTC()
	return h.store.SetTrust(accountID, trust)
}

// ResetConnected withdraws the consent flag. The identity-switch handler
// calls this so a newly current account re-consents.
func (h *Handshake) ResetConnected(accountID string) error {
	trust, err := h.store.Trust(accountID)
	if err != nil {
		return fmt.Errorf("load trust state: %w", err)
	}
	if !trust.Connected {
		return nil
	}
	trust.Connected = false
	trust.UpdatedAt = time.Now().UTC()
	return h.store.SetTrust(accountID, trust)
}

// Onboarded reports whether the handshake has completed for the account.
func (h *Handshake) Onboarded(accountID string) bool {
	trust, err := h.store.Trust(accountID)
	if err != nil {
		return false
	}
	return trust.Onboarded
}

// Start marks consent and, for an account that has never onboarded,
// fetches the server-issued transaction and registers a sign request for
// it. The returned request is nil when no onboarding is needed. The
// request's completion submits the signed transaction to the backend and
// only then sets the onboarded flag, so a failed completion leaves the
// handshake retryable.
func (h *Handshake) Start(ctx context.Context, accountID string) (*signer.Request, error) {
	if err := h.Connect(accountID); err != nil {
		return nil, err
	}
	if h.Onboarded(accountID) {
		return nil, nil
	}

	unsigned, err := h.backend.BeginOnboard(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("onboard begin: %w", err)
	}

	descriptor, err := h.describe(unsigned)
	if err != nil {
		return nil, err
	}

	// The completion may run long after Start's caller has moved on;
	// detach it from the caller's cancellation.
	completionCtx := context.WithoutCancel(ctx)

	req, err := h.coord.Request(accountID, unsigned, descriptor, func(signedXDR string) {
		if err := h.backend.CompleteOnboard(completionCtx, accountID, signedXDR); err != nil {
			// Begin succeeded but complete failed: not onboarded.
			h.log.Warn("onboard complete failed", "account", accountID, "err", err)
			return
		}
		if err := h.markOnboarded(accountID); err != nil {
			h.log.Error("persist onboarded flag", "account", accountID, "err", err)
			return
		}
		h.log.Info("onboarding complete", "account", accountID)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (h *Handshake) markOnboarded(accountID string) error {
	trust, err := h.store.Trust(accountID)
	if err != nil {
		return err
	}
	trust.Onboarded = true
	trust.UpdatedAt = time.Now().UTC()
	return h.store.SetTrust(accountID, trust)
}
