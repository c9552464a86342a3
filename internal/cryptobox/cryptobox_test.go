package cryptobox

import (
	"bytes"
	"errors"
	"testing"

	"golang.org/x/crypto/argon2"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"seed", "SCZANGBA5YHTNYVVV4C3U252E2B6P6F5T3U6MM63WBSBZATAQI3EBTQ4"},
		{"short", "s"},
		{"unicode", "sæcret-ключ"},
		{"binary_ish", "a\x00b\xffc"},
		{"long", string(bytes.Repeat([]byte("k"), 4096))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Encrypt(tt.secret, "p@ss1234")
			if err != nil {
				t.Fatalf("Encrypt: %v", err)
			}

			got, err := Decrypt(b, "p@ss1234")
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if got != tt.secret {
				t.Errorf("Decrypt = %q, want %q", got, tt.secret)
			}
		})
	}
}

func TestEncrypt_BundleParameters(t *testing.T) {
	b, err := Encrypt("secret", "password")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if b.Version != BundleVersion {
		t.Errorf("Version = %d, want %d", b.Version, BundleVersion)
	}
	if b.KDF != KDFPBKDF2 {
		t.Errorf("KDF = %q, want %q", b.KDF, KDFPBKDF2)
	}
	if b.Iterations < 200_000 {
		t.Errorf("Iterations = %d, want >= 200000", b.Iterations)
	}
	if b.Cipher != CipherAESGCM {
		t.Errorf("Cipher = %q, want %q", b.Cipher, CipherAESGCM)
	}
	if len(b.Salt) != SaltSize {
		t.Errorf("len(Salt) = %d, want %d", len(b.Salt), SaltSize)
	}
	if len(b.Nonce) != NonceSize {
		t.Errorf("len(Nonce) = %d, want %d", len(b.Nonce), NonceSize)
	}
	if b.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestEncrypt_Freshness(t *testing.T) {
	b1, err := Encrypt("same secret", "same password")
	if err != nil {
		t.Fatalf("Encrypt first: %v", err)
	}
	b2, err := Encrypt("same secret", "same password")
	if err != nil {
		t.Fatalf("Encrypt second: %v", err)
	}

	if bytes.Equal(b1.Salt, b2.Salt) {
		t.Error("salt reused across encryptions")
	}
	if bytes.Equal(b1.Nonce, b2.Nonce) {
		t.Error("nonce reused across encryptions")
	}
	if bytes.Equal(b1.Ciphertext, b2.Ciphertext) {
		t.Error("identical ciphertext for two encryptions")
	}
}

func TestDecrypt_WrongPassword(t *testing.T) {
	b, err := Encrypt("secret", "passwordA")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := Decrypt(b, "passwordB"); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("Decrypt with wrong password: err = %v, want ErrAuthentication", err)
	}
}

func TestDecrypt_TamperDetection(t *testing.T) {
	mutations := []struct {
		name   string
		mutate func(b *Bundle)
	}{
		{"ciphertext_bit", func(b *Bundle) { b.Ciphertext[0] ^= 0x01 }},
		{"ciphertext_tag_bit", func(b *Bundle) { b.Ciphertext[len(b.Ciphertext)-1] ^= 0x80 }},
		{"nonce_bit", func(b *Bundle) { b.Nonce[3] ^= 0x10 }},
		{"salt_bit", func(b *Bundle) { b.Salt[7] ^= 0x04 }},
		{"truncated_ciphertext", func(b *Bundle) { b.Ciphertext = b.Ciphertext[:4] }},
		{"unknown_kdf", func(b *Bundle) { b.KDF = "scrypt" }},
		{"unknown_cipher", func(b *Bundle) { b.Cipher = "aes-256-cbc" }},
		{"zero_iterations", func(b *Bundle) { b.Iterations = 0 }},
	}

	for _, tt := range mutations {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Encrypt("secret", "password")
			if err != nil {
				t.Fatalf("Encrypt: %v", err)
			}

			tt.mutate(b)

			got, err := Decrypt(b, "password")
			if !errors.Is(err, ErrAuthentication) {
				t.Fatalf("Decrypt after tamper: err = %v, want ErrAuthentication", err)
			}
			if got != "" {
				t.Errorf("Decrypt after tamper leaked plaintext %q", got)
			}
		})
	}
}

func TestDecrypt_Argon2idBundle(t *testing.T) {
	// Simulate a bundle written by an older install that used argon2id.
	secret := "legacy-secret"
	password := "legacy-pass"
	salt := bytes.Repeat([]byte{0x5a}, SaltSize)
	nonce := bytes.Repeat([]byte{0xa5}, NonceSize)

	key := argon2.IDKey([]byte(password), salt, 3, 64*1024, 4, KeySize)
	aead, err := newAEAD(key)
	if err != nil {
		t.Fatalf("newAEAD: %v", err)
	}

	b := &Bundle{
		Version:    BundleVersion,
		KDF:        KDFArgon2id,
		Iterations: 3,
		Memory:     64 * 1024,
		Threads:    4,
		Cipher:     CipherAESGCM,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, []byte(secret), nil),
	}

	got, err := Decrypt(b, password)
	if err != nil {
		t.Fatalf("Decrypt argon2id bundle: %v", err)
	}
	if got != secret {
		t.Errorf("Decrypt = %q, want %q", got, secret)
	}

	if _, err := Decrypt(b, "wrong"); !errors.Is(err, ErrAuthentication) {
		t.Errorf("Decrypt argon2id with wrong password: err = %v, want ErrAuthentication", err)
	}
}

func TestZeroBytes(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	ZeroBytes(b)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not zeroed: %d", i, v)
		}
	}
}
