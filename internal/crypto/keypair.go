package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// DefaultKeyBits is the RSA modulus size used for freshly generated identities.
const DefaultKeyBits = 4096

var (
	// ErrMode is returned when a KeyPair is asked for an operation its mode
	// does not permit. This is always a usage error, never recoverable by retry.
	ErrMode = errors.New("operation not permitted by key mode")

	// ErrVerify is returned when a signature does not match. Treat it as a
	// security event.
	ErrVerify = errors.New("signature verification failed")

	// ErrNoKey is returned when key material required for an operation is absent.
	ErrNoKey = errors.New("no key material")

	// ErrMessageTooLong is returned when a plaintext exceeds what one RSA
	// block can carry. Oversized input is rejected, never chunked.
	ErrMessageTooLong = errors.New("plaintext too long for key size")
)

// Mode declares the operations a KeyPair is allowed to perform.
type Mode uint8

const (
	// ModeEncrypt holds a public encryption key only.
	ModeEncrypt Mode = iota
	// ModeEncryptDecrypt holds a full encryption key pair.
	ModeEncryptDecrypt
	// ModeVerify holds a public signing key only.
	ModeVerify
	// ModeVerifySign holds a full signing key pair.
	ModeVerifySign
)

// String returns a short human-readable name for the mode.
func (m Mode) String() string {
	switch m {
	case ModeEncrypt:
		return "encrypt"
	case ModeEncryptDecrypt:
		return "encrypt-decrypt"
	case ModeVerify:
		return "verify"
	case ModeVerifySign:
		return "verify-sign"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// private reports whether the mode carries private key material.
func (m Mode) private() bool {
	return m == ModeEncryptDecrypt || m == ModeVerifySign
}

// KeyPair is an RSA key holder restricted to the operations its mode permits.
//
// Private material is present exactly when the mode is ModeEncryptDecrypt or
// ModeVerifySign; public material is always present. A KeyPair is immutable
// after construction; ToPublic and ToVerify derive more-restricted copies.
type KeyPair struct {
	mode    Mode
	public  *rsa.PublicKey
	private *rsa.PrivateKey
}

// Generate creates a fresh key pair in a full mode. Public-only modes cannot
// be generated; they are obtained by downgrading or by FromPublicPEM.
func Generate(mode Mode, bits int) (*KeyPair, error) {
	if !mode.private() {
		return nil, fmt.Errorf("%w: cannot generate a %s key", ErrMode, mode)
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	return &KeyPair{mode: mode, public: &key.PublicKey, private: key}, nil
}

// Mode returns the capability mode of the key pair.
func (k *KeyPair) Mode() Mode { return k.mode }

func (k *KeyPair) canEncrypt() (*rsa.PublicKey, error) {
	switch k.mode {
	case ModeEncrypt, ModeEncryptDecrypt:
		return k.public, nil
	}
	return nil, fmt.Errorf("%w: cannot encrypt with %s key", ErrMode, k.mode)
}

func (k *KeyPair) canDecrypt() (*rsa.PrivateKey, error) {
	if k.mode == ModeEncryptDecrypt {
		return k.private, nil
	}
	return nil, fmt.Errorf("%w: cannot decrypt with %s key", ErrMode, k.mode)
}

func (k *KeyPair) canSign() (*rsa.PrivateKey, error) {
	if k.mode == ModeVerifySign {
		return k.private, nil
	}
	return nil, fmt.Errorf("%w: cannot sign with %s key", ErrMode, k.mode)
}

func (k *KeyPair) canVerify() (*rsa.PublicKey, error) {
	switch k.mode {
	case ModeVerify, ModeVerifySign:
		return k.public, nil
	}
	return nil, fmt.Errorf("%w: cannot verify with %s key", ErrMode, k.mode)
}

// Encrypt encrypts plaintext under the public key and returns the ciphertext
// as padding-free standard base64. A plaintext longer than one RSA block
// minus the PKCS#1 v1.5 overhead is rejected with ErrMessageTooLong.
func (k *KeyPair) Encrypt(plaintext string) (string, error) {
	pub, err := k.canEncrypt()
	if err != nil {
		return "", err
	}
	ct, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(plaintext))
	if err != nil {
		if errors.Is(err, rsa.ErrMessageTooLong) {
			return "", ErrMessageTooLong
		}
		return "", fmt.Errorf("rsa encrypt: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(ct), nil
}

// Decrypt decodes and decrypts a ciphertext produced by Encrypt.
//
// The recovered plaintext has trailing zero bytes stripped and surrounding
// whitespace trimmed. This is preserved legacy behavior: plaintexts that end
// in NUL bytes or whitespace are silently shortened.
func (k *KeyPair) Decrypt(ciphertext string) (string, error) {
	priv, err := k.canDecrypt()
	if err != nil {
		return "", err
	}
	ct, err := base64.RawStdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	pt, err := rsa.DecryptPKCS1v15(rand.Reader, priv, ct)
	if err != nil {
		return "", fmt.Errorf("rsa decrypt: %w", err)
	}
	return trimLegacyPadding(pt), nil
}

// Sign computes the SHA-256 digest of msg, signs it with the private key and
// returns the signature as padding-free standard base64.
func (k *KeyPair) Sign(msg string) (string, error) {
	priv, err := k.canSign()
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256([]byte(msg))
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("rsa sign: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(sig), nil
}

// Verify recomputes the SHA-256 digest of msg and checks sig against it with
// the public key. Verification never requires private material.
func (k *KeyPair) Verify(msg, sig string) error {
	pub, err := k.canVerify()
	if err != nil {
		return err
	}
	raw, err := base64.RawStdEncoding.DecodeString(sig)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	digest := sha256.Sum256([]byte(msg))
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], raw); err != nil {
		return ErrVerify
	}
	return nil
}

// ToPublic derives the encrypt-only counterpart of an encryption key pair.
func (k *KeyPair) ToPublic() (*KeyPair, error) {
	pub, err := k.canEncrypt()
	if err != nil {
		return nil, err
	}
	return &KeyPair{mode: ModeEncrypt, public: pub}, nil
}

// ToVerify derives the verify-only counterpart of a signing key pair.
func (k *KeyPair) ToVerify() (*KeyPair, error) {
	pub, err := k.canVerify()
	if err != nil {
		return nil, err
	}
	return &KeyPair{mode: ModeVerify, public: pub}, nil
}

// trimLegacyPadding strips trailing zero bytes, then surrounding whitespace.
//
// Kept bug-for-bug from the original wire peers: the scan runs from the tail
// until the first non-zero byte. A plaintext that legitimately ends in NUL
// bytes or whitespace does not survive the round trip.
func trimLegacyPadding(buf []byte) string {
	end := len(buf)
	for end > 0 && buf[end-1] == 0 {
		end--
	}
	return strings.TrimSpace(string(buf[:end]))
}
