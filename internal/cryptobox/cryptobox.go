// Package cryptobox provides password-based encryption of account secret
// keys. It wraps a single secret string in an authenticated, self-describing
// bundle: every parameter needed to reverse the encryption (KDF, work
// factor, salt, nonce) travels inside the bundle so that old bundles remain
// decryptable after the defaults change.
package cryptobox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// BundleVersion is the current at-rest format version.
	BundleVersion = 1

	// KeySize is the size of derived AES-256 keys in bytes.
	KeySize = 32

	// SaltSize is the size of KDF salts in bytes.
	SaltSize = 16

	// NonceSize is the size of GCM nonces in bytes.
	NonceSize = 12

	// PBKDF2Iterations is the work factor for new bundles. It may be
	// raised over time but must never be lowered.
	PBKDF2Iterations = 310_000

	// KDFPBKDF2 and KDFArgon2id are the supported KDF identifiers.
	// New bundles always use KDFPBKDF2; argon2id bundles from earlier
	// installs stay decryptable.
	KDFPBKDF2   = "pbkdf2-sha256"
	KDFArgon2id = "argon2id"

	// CipherAESGCM is the only supported cipher identifier.
	CipherAESGCM = "aes-256-gcm"
)

// ErrAuthentication is returned when a bundle cannot be decrypted: wrong
// password, tampered ciphertext, or an unrecognized parameter set. The
// cases are deliberately indistinguishable.
var ErrAuthentication = errors.New("authentication failed")

// Bundle is the encrypted-at-rest representation of one secret key.
type Bundle struct {
	Version    int       `json:"version"`
	KDF        string    `json:"kdf"`
	Iterations int       `json:"iterations"`
	Memory     uint32    `json:"memory,omitempty"`
	Threads    uint8     `json:"threads,omitempty"`
	Cipher     string    `json:"cipher"`
	Salt       []byte    `json:"salt"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
	CreatedAt  time.Time `json:"created_at"`
}

// Encrypt wraps secret under a key derived from password. Salt and nonce
// are freshly random on every call; encrypting the same secret twice never
// yields the same bundle. The derived key is zeroed before return.
func Encrypt(secret, password string) (*Bundle, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, PBKDF2Iterations, KeySize, sha256.New)
	defer ZeroBytes(key)

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	ciphertext := aead.Seal(nil, nonce, []byte(secret), nil)

	return &Bundle{
		Version:    BundleVersion,
		KDF:        KDFPBKDF2,
		Iterations: PBKDF2Iterations,
		Cipher:     CipherAESGCM,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Decrypt re-derives the key from password using the parameters stored in
// the bundle and returns the plaintext secret. Any failure is reported as
// ErrAuthentication with no further detail.
func Decrypt(b *Bundle, password string) (string, error) {
	if b == nil || len(b.Salt) != SaltSize || len(b.Nonce) != NonceSize {
		return "", ErrAuthentication
	}
	if b.Cipher != CipherAESGCM {
		return "", ErrAuthentication
	}

	var key []byte
	switch b.KDF {
	case KDFPBKDF2:
		if b.Iterations <= 0 {
			return "", ErrAuthentication
		}
		key = pbkdf2.Key([]byte(password), b.Salt, b.Iterations, KeySize, sha256.New)
	case KDFArgon2id:
		if b.Iterations <= 0 || b.Memory == 0 || b.Threads == 0 {
			return "", ErrAuthentication
		}
		key = argon2.IDKey([]byte(password), b.Salt, uint32(b.Iterations), b.Memory, b.Threads, KeySize)
	default:
		return "", ErrAuthentication
	}
	defer ZeroBytes(key)

	aead, err := newAEAD(key)
	if err != nil {
		return "", ErrAuthentication
	}

	plaintext, err := aead.Open(nil, b.Nonce, b.Ciphertext, nil)
	if err != nil {
		return "", ErrAuthentication
	}

	secret := string(plaintext)
	ZeroBytes(plaintext)
	return secret, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// ZeroBytes securely zeros a byte slice.
// Use this to clear sensitive data from memory when done.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
