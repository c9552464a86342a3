// Package signer mediates between "an operation needs a signature" and
// "the user approved and the secret was used". At most one sign request is
// outstanding at a time; the coordinator re-validates the unlock session
// immediately before touching the secret, and resolves each request's
// completion continuation exactly once.
package signer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumenkit/lumenvault/internal/cryptobox"
	"github.com/lumenkit/lumenvault/internal/logging"
	"github.com/lumenkit/lumenvault/internal/metrics"
	"github.com/lumenkit/lumenvault/internal/session"
	"github.com/lumenkit/lumenvault/internal/txbuilder"
)

// State is the coordinator's observable state.
type State int

// Coordinator states. Unlocking and Signing are transient phases of
// Approve; terminal outcomes (signed, rejected, failed) return the
// coordinator to Idle once the request is resolved.
const (
	StateIdle State = iota
	StateRequested
	StateUnlocking
	StateSigning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequested:
		return "requested"
	case StateUnlocking:
		return "unlocking"
	case StateSigning:
		return "signing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Sentinel errors returned by the coordinator.
var (
	// ErrRequestPending is returned when a new request arrives while one
	// is outstanding. Requests are never merged or silently dropped.
	ErrRequestPending = errors.New("a sign request is already pending")

	// ErrNoRequest is returned by Approve when nothing is pending.
	ErrNoRequest = errors.New("no sign request pending")

	// ErrPasswordRequired is returned by Approve when the session is
	// locked and no password was supplied. The request stays pending.
	ErrPasswordRequired = errors.New("session locked, password required")
)

// TxSigner produces a signed envelope from an unsigned one and a raw
// secret seed. Implemented by the SDK adapter in internal/chain.
type TxSigner interface {
	Sign(unsignedXDR, secretSeed string) (string, error)
}

// Request is one pending request to sign a specific unsigned transaction.
type Request struct {
	ID          uuid.UUID
	AccountID   string
	UnsignedXDR string
	Descriptor  []string
	CreatedAt   time.Time

	// complete is the one-shot continuation, invoked with the signed
	// envelope on success and never on rejection or failure.
	complete func(signedXDR string)
}

// Coordinator is the sign-request state machine.
type Coordinator struct {
	session *session.Manager
	signer  TxSigner
	log     *slog.Logger

	mu    sync.Mutex
	state State
	req   *Request
}

// NewCoordinator creates an idle coordinator over the given session.
func NewCoordinator(sess *session.Manager, ts TxSigner) *Coordinator {
	return &Coordinator{
		session: sess,
		signer:  ts,
		log:     logging.Component("signer"),
	}
}

// Request registers a new sign request. It fails with ErrRequestPending if
// one is already outstanding and with txbuilder.ErrDescribe if the caller
// cannot supply a descriptor: the user must never be asked to approve a
// transaction they cannot read.
func (c *Coordinator) Request(accountID, unsignedXDR string, descriptor []string, complete func(signedXDR string)) (*Request, error) {
	if len(descriptor) == 0 {
		return nil, fmt.Errorf("%w: refusing sign request without a descriptor", txbuilder.ErrDescribe)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.req != nil {
		return nil, ErrRequestPending
	}

	req := &Request{
		ID:          uuid.New(),
		AccountID:   accountID,
		UnsignedXDR: unsignedXDR,
		Descriptor:  descriptor,
		CreatedAt:   time.Now().UTC(),
		complete:    complete,
	}
	c.req = req
	c.state = StateRequested

	c.log.Info("sign request created", "request_id", req.ID, "account", accountID, "ops", len(descriptor))
	return req, nil
}

// Approve attempts to resolve the pending request. If the session is
// locked it unlocks with the given password first; a wrong password keeps
// the request pending so the user can retry or cancel. The session's
// validity is re-checked immediately before the secret is used, so an
// auto-lock that fired between approval and signing surfaces as
// ErrPasswordRequired instead of a stale secret being used.
func (c *Coordinator) Approve(password string) error {
	c.mu.Lock()

	if c.req == nil {
		c.mu.Unlock()
		return ErrNoRequest
	}
	req := c.req

	if c.session.AccountID() != req.AccountID || !c.session.IsUnlocked() {
		if password == "" {
			c.mu.Unlock()
			return ErrPasswordRequired
		}
		c.state = StateUnlocking
		if err := c.session.Unlock(req.AccountID, password); err != nil {
			// Wrong password or missing bundle: the unsigned
			// transaction is not discarded.
			c.state = StateRequested
			c.mu.Unlock()
			if errors.Is(err, cryptobox.ErrAuthentication) {
				c.log.Warn("unlock failed for sign request", "request_id", req.ID)
			}
			return err
		}
	}

	c.state = StateSigning

	// The deadline check inside Secret is the race guard: approval may
	// have sat at the prompt longer than the remaining TTL.
	secret, err := c.session.Secret()
	if err != nil {
		c.state = StateRequested
		c.mu.Unlock()
		return fmt.Errorf("%w: session expired before signing", ErrPasswordRequired)
	}

	signedXDR, err := c.signer.Sign(req.UnsignedXDR, string(secret))
	cryptobox.ZeroBytes(secret)
	if err != nil {
		// Failed terminal state: the request is discarded, the
		// session's lock state is untouched, no continuation runs.
		c.resolveLocked("failed")
		c.mu.Unlock()
		return fmt.Errorf("sign transaction: %w", err)
	}

	c.session.Touch()
	complete := req.complete
	c.resolveLocked("signed")
	c.mu.Unlock()

	// The continuation runs outside the coordinator's lock so it may
	// create a follow-up request.
	if complete != nil {
		complete(signedXDR)
	}
	return nil
}

// Reject cancels the pending request. No continuation runs; the unsigned
// transaction is discarded. Rejecting with nothing pending is a no-op.
func (c *Coordinator) Reject() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.req == nil {
		return
	}
	c.log.Info("sign request rejected", "request_id", c.req.ID)
	c.resolveLocked("rejected")
}

// InvalidateAccount rejects a pending request that no longer matches the
// current account. Called by the identity-switch handler after the session
// has been locked.
func (c *Coordinator) InvalidateAccount(currentAccountID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.req == nil || c.req.AccountID == currentAccountID {
		return
	}
	c.log.Info("sign request invalidated by account switch", "request_id", c.req.ID)
	c.resolveLocked("rejected")
}

// Pending returns the outstanding request, or nil.
func (c *Coordinator) Pending() *Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.req
}

// State returns the coordinator's current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// resolveLocked clears the request and records the outcome. Caller holds
// mu.
func (c *Coordinator) resolveLocked(outcome string) {
	metrics.SignRequestsTotal.WithLabelValues(outcome).Inc()
	c.req = nil
	c.state = StateIdle
}
