// Package wallet exposes the key vault and signing subsystem as one
// injectable service. UI layers hold a reference and subscribe to state
// changes; none of them duplicate session state or touch the collaborators
// directly. Only this service and the session's own auto-lock timer mutate
// the unlock session.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/lumenkit/lumenvault/internal/cryptobox"
	"github.com/lumenkit/lumenvault/internal/logging"
	"github.com/lumenkit/lumenvault/internal/onboard"
	"github.com/lumenkit/lumenvault/internal/session"
	"github.com/lumenkit/lumenvault/internal/signer"
	"github.com/lumenkit/lumenvault/internal/store"
	"github.com/lumenkit/lumenvault/internal/txbuilder"
)

// ErrEmptyPassword rejects bundle creation with an empty password.
var ErrEmptyPassword = errors.New("password must not be empty")

// Keys generates and parses account keypairs. Implemented by the SDK
// adapter in internal/chain.
type Keys interface {
	NewKeypair() (accountID, secretSeed string, err error)
	AddressFromSeed(secretSeed string) (accountID string, err error)
}

// Submitter relays signed transactions. Implemented by backend.Client.
type Submitter interface {
	SubmitTransaction(ctx context.Context, signedXDR string) (hash string, err error)
}

// EventKind classifies service notifications.
type EventKind int

// Event kinds published to subscribers.
const (
	EventUnlocked EventKind = iota
	EventLocked
	EventAccountSwitched
	EventSignRequested
	EventSubmitted
	EventSubmitFailed
)

// Event is a state-change notification. Subscribers run on the event's
// goroutine and must not call back into the service.
type Event struct {
	Kind      EventKind
	AccountID string
	TxHash    string
	Err       error
}

// Deps are the collaborators a Service is built from.
type Deps struct {
	Store     store.Store
	Chain     txbuilder.ChainReader
	TxSigner  signer.TxSigner
	Keys      Keys
	Backend   onboard.Backend
	Submitter Submitter
	Clock     clock.Clock

	// UnlockDefaults seeds the session TTL and auto-extend setting when
	// the store carries no saved preferences. Saved preferences win. The
	// zero value keeps the session package defaults.
	UnlockDefaults store.Prefs
}

// Service is the wallet security facade.
type Service struct {
	store     store.Store
	session   *session.Manager
	builder   *txbuilder.Builder
	coord     *signer.Coordinator
	handshake *onboard.Handshake
	keys      Keys
	submitter Submitter
	log       *slog.Logger

	mu   sync.Mutex
	subs []func(Event)
}

// New wires a Service from its collaborators and applies any persisted
// unlock preferences.
func New(d Deps) (*Service, error) {
	sess := session.NewManager(d.Store, d.Clock)
	coord := signer.NewCoordinator(sess, d.TxSigner)

	s := &Service{
		store:     d.Store,
		session:   sess,
		builder:   txbuilder.NewBuilder(d.Chain, d.Clock),
		coord:     coord,
		handshake: onboard.New(d.Store, coord, d.Backend, txbuilder.Describe),
		keys:      d.Keys,
		submitter: d.Submitter,
		log:       logging.Component("wallet"),
	}

	prefs, err := d.Store.Prefs()
	if err != nil {
		return nil, fmt.Errorf("load prefs: %w", err)
	}
	switch {
	case prefs != nil:
		sess.SetTTL(prefs.UnlockTTL)
		sess.SetAutoExtend(prefs.AutoExtend)
	case d.UnlockDefaults.UnlockTTL != 0:
		sess.SetTTL(d.UnlockDefaults.UnlockTTL)
		sess.SetAutoExtend(d.UnlockDefaults.AutoExtend)
	}

	sess.OnLock(func() {
		s.publish(Event{Kind: EventLocked})
	})

	return s, nil
}

// Subscribe registers a notification callback.
func (s *Service) Subscribe(fn func(Event)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *Service) publish(e Event) {
	s.mu.Lock()
	subs := make([]func(Event), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}

// CreateAccount generates a fresh keypair, encrypts the seed under
// password, and stores the bundle. The first account created becomes
// current.
func (s *Service) CreateAccount(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	accountID, seed, err := s.keys.NewKeypair()
	if err != nil {
		return "", err
	}
	return accountID, s.storeBundle(accountID, seed, password)
}

// ImportAccount encrypts an existing secret seed under password and
// stores the bundle keyed by the seed's public identifier.
func (s *Service) ImportAccount(secretSeed, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	accountID, err := s.keys.AddressFromSeed(secretSeed)
	if err != nil {
		return "", err
	}
	return accountID, s.storeBundle(accountID, secretSeed, password)
}

func (s *Service) storeBundle(accountID, seed, password string) error {
	bundle, err := cryptobox.Encrypt(seed, password)
	if err != nil {
		return fmt.Errorf("encrypt seed: %w", err)
	}
	if err := s.store.PutBundle(accountID, bundle); err != nil {
		return fmt.Errorf("store bundle: %w", err)
	}

	if _, err := s.store.CurrentAccount(); errors.Is(err, store.ErrNoCurrentAccount) {
		if err := s.store.SetCurrentAccount(accountID); err != nil {
			return fmt.Errorf("set current account: %w", err)
		}
	}

	s.log.Info("account stored", "account", accountID)
	return nil
}

// Accounts lists the stored account identifiers.
func (s *Service) Accounts() ([]string, error) {
	return s.store.ListAccountIDs()
}

// CurrentAccount returns the current account identifier.
func (s *Service) CurrentAccount() (string, error) {
	return s.store.CurrentAccount()
}

// SwitchAccount makes another stored account current. The session is
// locked synchronously before anything else reacts to the switch, then a
// pending sign request bound to another identity is rejected and the new
// current account's consent flag is reset.
func (s *Service) SwitchAccount(accountID string) error {
	if _, err := s.store.GetBundle(accountID); err != nil {
		return err
	}

	// Hard ordering invariant: no effect of the switch may observe the
	// old session.
	s.session.Lock()
	s.coord.InvalidateAccount(accountID)

	if err := s.handshake.ResetConnected(accountID); err != nil {
		return err
	}
	if err := s.store.SetCurrentAccount(accountID); err != nil {
		return fmt.Errorf("set current account: %w", err)
	}

	s.publish(Event{Kind: EventAccountSwitched, AccountID: accountID})
	return nil
}

// RemoveAccount deletes a stored bundle. Removing the current account
// locks the session and clears the pointer.
func (s *Service) RemoveAccount(accountID string) error {
	cur, err := s.store.CurrentAccount()
	if err == nil && cur == accountID {
		s.session.Lock()
		s.coord.InvalidateAccount("")
		if err := s.store.SetCurrentAccount(""); err != nil {
			return fmt.Errorf("clear current account: %w", err)
		}
	}
	return s.store.DeleteBundle(accountID)
}

// Unlock opens a session for the current account.
func (s *Service) Unlock(password string) error {
	cur, err := s.store.CurrentAccount()
	if err != nil {
		return err
	}
	if err := s.session.Unlock(cur, password); err != nil {
		return err
	}
	s.publish(Event{Kind: EventUnlocked, AccountID: cur})
	return nil
}

// Lock closes the session.
func (s *Service) Lock() {
	s.session.Lock()
}

// IsUnlocked reports whether the current account's session is open.
func (s *Service) IsUnlocked() bool {
	return s.session.IsUnlocked()
}

// SetUnlockPrefs applies and persists the unlock TTL and auto-extend
// preference.
func (s *Service) SetUnlockPrefs(p store.Prefs) error {
	s.session.SetTTL(p.UnlockTTL)
	s.session.SetAutoExtend(p.AutoExtend)
	p.UnlockTTL = s.session.TTL() // after clamping
	return s.store.SetPrefs(&p)
}

// Send builds a payment from the current account and registers a sign
// request for it. The request's completion submits to the relay.
func (s *Service) Send(ctx context.Context, destination string, asset txbuilder.AssetRef, amount string) (*signer.Request, error) {
	cur, err := s.store.CurrentAccount()
	if err != nil {
		return nil, err
	}

	built, err := s.builder.BuildPayment(ctx, txbuilder.PaymentParams{
		Source:      cur,
		Destination: destination,
		Asset:       asset,
		Amount:      amount,
	})
	if err != nil {
		return nil, err
	}
	return s.requestSubmit(ctx, cur, built)
}

// SwapStrictSend builds a strict-send path payment from the current
// account. DestMin and Path come from a quote and pass through opaque.
func (s *Service) SwapStrictSend(ctx context.Context, p txbuilder.StrictSendParams) (*signer.Request, error) {
	cur, err := s.store.CurrentAccount()
	if err != nil {
		return nil, err
	}
	p.Source = cur
	if p.Destination == "" {
		p.Destination = cur
	}

	built, err := s.builder.BuildPathPaymentStrictSend(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.requestSubmit(ctx, cur, built)
}

// SwapStrictReceive builds a strict-receive path payment from the current
// account. SendMax and Path come from a quote and pass through opaque.
func (s *Service) SwapStrictReceive(ctx context.Context, p txbuilder.StrictReceiveParams) (*signer.Request, error) {
	cur, err := s.store.CurrentAccount()
	if err != nil {
		return nil, err
	}
	p.Source = cur
	if p.Destination == "" {
		p.Destination = cur
	}

	built, err := s.builder.BuildPathPaymentStrictReceive(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.requestSubmit(ctx, cur, built)
}

// requestSubmit registers a sign request whose completion relays the
// signed transaction and publishes the outcome.
func (s *Service) requestSubmit(ctx context.Context, accountID string, built *txbuilder.BuiltTx) (*signer.Request, error) {
	submitCtx := context.WithoutCancel(ctx)

	req, err := s.coord.Request(accountID, built.XDR, built.Descriptor, func(signedXDR string) {
		hash, err := s.submitter.SubmitTransaction(submitCtx, signedXDR)
		if err != nil {
			s.log.Warn("submit failed", "account", accountID, "err", err)
			s.publish(Event{Kind: EventSubmitFailed, AccountID: accountID, Err: err})
			return
		}
		s.log.Info("transaction submitted", "account", accountID, "hash", hash)
		s.publish(Event{Kind: EventSubmitted, AccountID: accountID, TxHash: hash})
	})
	if err != nil {
		return nil, err
	}

	s.publish(Event{Kind: EventSignRequested, AccountID: accountID})
	return req, nil
}

// Onboard runs the trust handshake for the current account.
func (s *Service) Onboard(ctx context.Context) (*signer.Request, error) {
	cur, err := s.store.CurrentAccount()
	if err != nil {
		return nil, err
	}
	return s.handshake.Start(ctx, cur)
}

// Onboarded reports whether the current account completed onboarding.
func (s *Service) Onboarded() bool {
	cur, err := s.store.CurrentAccount()
	if err != nil {
		return false
	}
	return s.handshake.Onboarded(cur)
}

// Approve resolves the pending sign request, unlocking first if needed.
func (s *Service) Approve(password string) error {
	return s.coord.Approve(password)
}

// RejectPending cancels the pending sign request, if any.
func (s *Service) RejectPending() {
	s.coord.Reject()
}

// PendingRequest returns the outstanding sign request, or nil.
func (s *Service) PendingRequest() *signer.Request {
	return s.coord.Pending()
}

// SessionTTL returns the configured unlock TTL.
func (s *Service) SessionTTL() time.Duration {
	return s.session.TTL()
}

// SessionExpiresAt returns the open session's deadline, zero when locked.
func (s *Service) SessionExpiresAt() time.Time {
	return s.session.ExpiresAt()
}
