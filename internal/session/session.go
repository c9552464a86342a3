// Package session holds the decrypted secret of exactly one account in
// process memory, bounded by a TTL. The secret is produced by decrypting
// the account's stored bundle and is zeroed the moment the session locks,
// whether by expiry, explicit lock, or an account switch.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/lumenkit/lumenvault/internal/cryptobox"
	"github.com/lumenkit/lumenvault/internal/logging"
	"github.com/lumenkit/lumenvault/internal/metrics"
	"github.com/lumenkit/lumenvault/internal/store"
)

// TTL bounds for unlock sessions.
const (
	MinTTL     = 1 * time.Minute
	DefaultTTL = 15 * time.Minute
	MaxTTL     = 60 * time.Minute
)

// ErrLocked is returned when an operation requires an unlocked session.
var ErrLocked = errors.New("session is locked")

// Manager is the unlock session state machine. It is the single holder of
// plaintext key material; everything else reads IsUnlocked or asks for the
// secret through Secret, which re-checks the deadline at call time.
type Manager struct {
	store store.Store
	clock clock.Clock
	log   *slog.Logger

	mu         sync.Mutex
	ttl        time.Duration
	autoExtend bool
	accountID  string
	secret     []byte // nil when locked
	expiresAt  time.Time
	timer      *clock.Timer
	gen        uint64 // invalidates stale timer fires
	onLock     []func()
}

// NewManager creates a locked session manager over the given store.
func NewManager(st store.Store, clk clock.Clock) *Manager {
	return &Manager{
		store: st,
		clock: clk,
		log:   logging.Component("session"),
		ttl:   DefaultTTL,
	}
}

// Unlock looks up the bundle for the account, decrypts it with password,
// and opens a session for it. An already-open session for any account is
// closed first. Returns store.ErrBundleNotFound when no bundle exists and
// cryptobox.ErrAuthentication on a wrong password or corrupted bundle.
func (m *Manager) Unlock(accountID, password string) error {
	bundle, err := m.store.GetBundle(accountID)
	if err != nil {
		if errors.Is(err, store.ErrBundleNotFound) {
			metrics.UnlockAttemptsTotal.WithLabelValues("no_bundle").Inc()
			return err
		}
		metrics.UnlockAttemptsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("load bundle: %w", err)
	}

	secret, err := cryptobox.Decrypt(bundle, password)
	if err != nil {
		metrics.UnlockAttemptsTotal.WithLabelValues("wrong_password").Inc()
		return err
	}

	m.mu.Lock()
	m.lockLocked()
	m.accountID = accountID
	m.secret = []byte(secret)
	m.expiresAt = m.clock.Now().Add(m.ttl)
	m.armTimerLocked(m.ttl)
	m.mu.Unlock()

	metrics.UnlockAttemptsTotal.WithLabelValues("ok").Inc()
	m.log.Info("session unlocked", "account", accountID, "ttl", m.TTL())
	return nil
}

// Lock closes the session and zeros the secret. Idempotent.
func (m *Manager) Lock() {
	m.mu.Lock()
	wasUnlocked := m.secret != nil
	m.lockLocked()
	m.mu.Unlock()

	if wasUnlocked {
		m.log.Info("session locked")
		m.notifyLock()
	}
}

// IsUnlocked reports whether a session is open and unexpired. An expired
// session is closed on the spot.
func (m *Manager) IsUnlocked() bool {
	m.mu.Lock()
	expired := m.secret != nil && !m.clock.Now().Before(m.expiresAt)
	if expired {
		m.lockLocked()
	}
	unlocked := m.secret != nil
	m.mu.Unlock()

	if expired {
		m.notifyLock()
	}
	return unlocked
}

// Secret returns a copy of the plaintext secret. The deadline is
// re-checked at call time, so a caller holding an approval that outlived
// the TTL gets ErrLocked instead of a stale secret. The caller must zero
// the returned slice when done.
func (m *Manager) Secret() ([]byte, error) {
	m.mu.Lock()
	if m.secret == nil {
		m.mu.Unlock()
		return nil, ErrLocked
	}
	if !m.clock.Now().Before(m.expiresAt) {
		m.lockLocked()
		m.mu.Unlock()
		m.notifyLock()
		return nil, ErrLocked
	}
	cp := make([]byte, len(m.secret))
	copy(cp, m.secret)
	m.mu.Unlock()
	return cp, nil
}

// Touch resets the deadline to now + TTL. No-op unless the session is
// unlocked and auto-extend is on. Called only after a successful signing
// operation; merely viewing the wallet never extends the session.
func (m *Manager) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.secret == nil || !m.autoExtend {
		return
	}
	if !m.clock.Now().Before(m.expiresAt) {
		return
	}
	m.expiresAt = m.clock.Now().Add(m.ttl)
	m.armTimerLocked(m.ttl)
}

// AccountID returns the account the open session belongs to, or "" when
// locked.
func (m *Manager) AccountID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.secret == nil {
		return ""
	}
	return m.accountID
}

// ExpiresAt returns the session deadline, zero when locked.
func (m *Manager) ExpiresAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.secret == nil {
		return time.Time{}
	}
	return m.expiresAt
}

// TTL returns the configured session duration.
func (m *Manager) TTL() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttl
}

// SetTTL sets the session duration, clamped to [MinTTL, MaxTTL]. It
// applies from the next unlock or touch; an open session keeps its
// current deadline.
func (m *Manager) SetTTL(d time.Duration) {
	if d < MinTTL {
		d = MinTTL
	}
	if d > MaxTTL {
		d = MaxTTL
	}
	m.mu.Lock()
	m.ttl = d
	m.mu.Unlock()
}

// AutoExtend reports whether successful signing extends the session.
func (m *Manager) AutoExtend() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autoExtend
}

// SetAutoExtend toggles deadline extension on successful signing.
func (m *Manager) SetAutoExtend(on bool) {
	m.mu.Lock()
	m.autoExtend = on
	m.mu.Unlock()
}

// OnLock registers a callback invoked after every transition to locked.
// Callbacks run outside the manager's mutex and must not retain secrets.
func (m *Manager) OnLock(fn func()) {
	m.mu.Lock()
	m.onLock = append(m.onLock, fn)
	m.mu.Unlock()
}

// lockLocked clears the secret and cancels the timer. Caller holds mu.
func (m *Manager) lockLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.gen++
	if m.secret != nil {
		cryptobox.ZeroBytes(m.secret)
		m.secret = nil
	}
	m.accountID = ""
	m.expiresAt = time.Time{}
}

// armTimerLocked schedules the auto-lock callback. Caller holds mu.
func (m *Manager) armTimerLocked(d time.Duration) {
	if m.timer != nil {
		m.timer.Stop()
	}
	m.gen++
	gen := m.gen
	m.timer = m.clock.AfterFunc(d, func() { m.autoLock(gen) })
}

// autoLock is the timer callback. A fire that raced a re-arm or an
// explicit lock is identified by its generation and ignored.
func (m *Manager) autoLock(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.secret == nil {
		m.mu.Unlock()
		return
	}
	if m.clock.Now().Before(m.expiresAt) {
		// Deadline moved since this fire was scheduled.
		m.mu.Unlock()
		return
	}
	m.lockLocked()
	m.mu.Unlock()

	metrics.AutoLocksTotal.Inc()
	m.log.Info("session auto-locked")
	m.notifyLock()
}

func (m *Manager) notifyLock() {
	m.mu.Lock()
	fns := make([]func(), len(m.onLock))
	copy(fns, m.onLock)
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
