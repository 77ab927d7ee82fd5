package store

import (
	"crypto/rand"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// envelope is the on-disk shape of a sealed profile. The salt doubles as
// associated data, binding the ciphertext to its own KDF parameters.
type envelope struct {
	Salt []byte `json:"salt"`
	CT   []byte `json:"ct"`
}

const saltSize = 16

// scrypt parameters fixed here; bump only with a profile migration.
func scryptParams() (N, r, p int) { return 1 << 15, 8, 1 }

// seal encrypts plaintext under a key derived from the passphrase and a
// fresh random salt. The key is single-use, so the zero nonce is safe.
func seal(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	N, r, p := scryptParams()
	key, err := scrypt.Key([]byte(passphrase), salt, N, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("derive profile key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	ct := aead.Seal(nil, nonce, plaintext, salt)
	return json.Marshal(envelope{Salt: salt, CT: ct})
}

// open reverses seal. Authentication failure (wrong passphrase or a tampered
// file) surfaces as an error from the AEAD.
func open(passphrase string, blob []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, fmt.Errorf("decode profile envelope: %w", err)
	}
	N, r, p := scryptParams()
	key, err := scrypt.Key([]byte(passphrase), env.Salt, N, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("derive profile key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	pt, err := aead.Open(nil, nonce, env.CT, env.Salt)
	if err != nil {
		return nil, fmt.Errorf("open profile: %w", err)
	}
	return pt, nil
}
