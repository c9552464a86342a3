package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/lumenkit/lumenvault/internal/cryptobox"
)

// Bucket names used in the bbolt database.
var (
	bucketBundles = []byte("bundles")
	bucketState   = []byte("state")
	bucketTrust   = []byte("trust")
)

// Keys in the state bucket.
const (
	keyCurrentAccount = "current_account"
	keyPrefs          = "prefs"
)

// BoltStore implements Store using bbolt. Every mutation runs inside a
// bbolt write transaction, which gives the per-entry atomicity the Store
// contract requires.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) a bbolt database at the given path and
// ensures all required buckets exist. The file is created with 0600
// permissions.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	if err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketBundles, bucketState, bucketTrust} {
			if _, bErr := tx.CreateBucketIfNotExists(b); bErr != nil {
				return fmt.Errorf("create bucket %s: %w", b, bErr)
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// GetBundle returns the encrypted bundle for an account, or
// ErrBundleNotFound.
func (s *BoltStore) GetBundle(accountID string) (*cryptobox.Bundle, error) {
	var bundle cryptobox.Bundle
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBundles).Get([]byte(accountID))
		if v == nil {
			return ErrBundleNotFound
		}
		return json.Unmarshal(v, &bundle)
	})
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

// PutBundle stores or replaces the bundle for an account.
func (s *BoltStore) PutBundle(accountID string, b *cryptobox.Bundle) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("marshal bundle: %w", err)
		}
		return tx.Bucket(bucketBundles).Put([]byte(accountID), data)
	})
}

// DeleteBundle removes the bundle for an account along with its trust
// flags. Deleting an absent bundle returns ErrBundleNotFound.
func (s *BoltStore) DeleteBundle(accountID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bundles := tx.Bucket(bucketBundles)
		key := []byte(accountID)
		if bundles.Get(key) == nil {
			return ErrBundleNotFound
		}
		if err := bundles.Delete(key); err != nil {
			return err
		}
		return tx.Bucket(bucketTrust).Delete(key)
	})
}

// ListAccountIDs returns the identifiers of all stored bundles.
func (s *BoltStore) ListAccountIDs() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBundles).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}

// CurrentAccount returns the current account pointer, or
// ErrNoCurrentAccount.
func (s *BoltStore) CurrentAccount() (string, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketState).Get([]byte(keyCurrentAccount))
		if len(v) == 0 {
			return ErrNoCurrentAccount
		}
		id = string(v)
		return nil
	})
	return id, err
}

// SetCurrentAccount moves the current account pointer.
func (s *BoltStore) SetCurrentAccount(accountID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketState).Put([]byte(keyCurrentAccount), []byte(accountID))
	})
}

// Trust returns the trust flags for an account. Accounts with no stored
// flags get the zero value.
func (s *BoltStore) Trust(accountID string) (*TrustState, error) {
	var state TrustState
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketTrust).Get([]byte(accountID))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &state)
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// SetTrust stores the trust flags for an account.
func (s *BoltStore) SetTrust(accountID string, t *TrustState) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal trust state: %w", err)
		}
		return tx.Bucket(bucketTrust).Put([]byte(accountID), data)
	})
}

// Prefs returns the stored unlock preferences, or nil if never set.
func (s *BoltStore) Prefs() (*Prefs, error) {
	var prefs *Prefs
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketState).Get([]byte(keyPrefs))
		if v == nil {
			return nil
		}
		prefs = &Prefs{}
		return json.Unmarshal(v, prefs)
	})
	if err != nil {
		return nil, err
	}
	return prefs, nil
}

// SetPrefs stores the unlock preferences.
func (s *BoltStore) SetPrefs(p *Prefs) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal prefs: %w", err)
		}
		return tx.Bucket(bucketState).Put([]byte(keyPrefs), data)
	})
}
