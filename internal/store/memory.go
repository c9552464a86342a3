package store

import (
	"sync"

	"github.com/lumenkit/lumenvault/internal/cryptobox"
)

// MemStore is an in-memory Store. It backs tests and hosts without durable
// local storage; nothing ever touches disk.
type MemStore struct {
	mu      sync.RWMutex
	bundles map[string]*cryptobox.Bundle
	trust   map[string]*TrustState
	current string
	prefs   *Prefs
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		bundles: make(map[string]*cryptobox.Bundle),
		trust:   make(map[string]*TrustState),
	}
}

// GetBundle returns the bundle for an account, or ErrBundleNotFound.
func (s *MemStore) GetBundle(accountID string) (*cryptobox.Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bundles[accountID]
	if !ok {
		return nil, ErrBundleNotFound
	}
	cp := *b
	return &cp, nil
}

// PutBundle stores or replaces the bundle for an account.
func (s *MemStore) PutBundle(accountID string, b *cryptobox.Bundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *b
	s.bundles[accountID] = &cp
	return nil
}

// DeleteBundle removes the bundle and trust flags for an account.
func (s *MemStore) DeleteBundle(accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bundles[accountID]; !ok {
		return ErrBundleNotFound
	}
	delete(s.bundles, accountID)
	delete(s.trust, accountID)
	return nil
}

// ListAccountIDs returns the identifiers of all stored bundles.
func (s *MemStore) ListAccountIDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.bundles))
	for id := range s.bundles {
		ids = append(ids, id)
	}
	return ids, nil
}

// CurrentAccount returns the current account pointer, or
// ErrNoCurrentAccount.
func (s *MemStore) CurrentAccount() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == "" {
		return "", ErrNoCurrentAccount
	}
	return s.current, nil
}

// SetCurrentAccount moves the current account pointer.
func (s *MemStore) SetCurrentAccount(accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = accountID
	return nil
}

// Trust returns the trust flags for an account, zero value if never set.
func (s *MemStore) Trust(accountID string) (*TrustState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trust[accountID]
	if !ok {
		return &TrustState{}, nil
	}
	cp := *t
	return &cp, nil
}

// SetTrust stores the trust flags for an account.
func (s *MemStore) SetTrust(accountID string, t *TrustState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *t
	s.trust[accountID] = &cp
	return nil
}

// Prefs returns the stored unlock preferences, or nil if never set.
func (s *MemStore) Prefs() (*Prefs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.prefs == nil {
		return nil, nil
	}
	cp := *s.prefs
	return &cp, nil
}

// SetPrefs stores the unlock preferences.
func (s *MemStore) SetPrefs(p *Prefs) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.prefs = &cp
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemStore) Close() error {
	return nil
}
