package crypto

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
)

// Fingerprint returns a short hex fingerprint of the public key.
//
// It hashes the PKIX DER encoding with SHA-256 and truncates to 10 bytes
// (20 hex chars).
func (k *KeyPair) Fingerprint() (string, error) {
	if k.public == nil {
		return "", fmt.Errorf("%w: no public key", ErrNoKey)
	}
	der, err := x509.MarshalPKIXPublicKey(k.public)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:10]), nil
}
