package crypto

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
)

const (
	publicBlockType  = "PUBLIC KEY"
	privateBlockType = "RSA PRIVATE KEY"
)

// PublicPEM exports the public key as padding-free base64 of a PKIX PEM block.
// This is the form embedded in friend exchange blobs.
func (k *KeyPair) PublicPEM() (string, error) {
	if k.public == nil {
		return "", fmt.Errorf("%w: no public key", ErrNoKey)
	}
	der, err := x509.MarshalPKIXPublicKey(k.public)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	block := pem.EncodeToMemory(&pem.Block{Type: publicBlockType, Bytes: der})
	return base64.RawStdEncoding.EncodeToString(block), nil
}

// FromPublicPEM reconstructs a public-only KeyPair from the output of
// PublicPEM. Modes that require private material are rejected.
func FromPublicPEM(encoded string, mode Mode) (*KeyPair, error) {
	if mode.private() {
		return nil, fmt.Errorf("%w: cannot load a public key as %s", ErrMode, mode)
	}
	raw, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil || block.Type != publicBlockType {
		return nil, fmt.Errorf("%w: not a public key PEM block", ErrNoKey)
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA public key", ErrNoKey)
	}
	return &KeyPair{mode: mode, public: pub}, nil
}

// PrivatePEM exports the private key as padding-free base64 of a PKCS#1 PEM
// block. Used only by the encrypted profile store; it never goes on the wire.
func (k *KeyPair) PrivatePEM() (string, error) {
	if k.private == nil {
		return "", fmt.Errorf("%w: no private key", ErrNoKey)
	}
	der := x509.MarshalPKCS1PrivateKey(k.private)
	block := pem.EncodeToMemory(&pem.Block{Type: privateBlockType, Bytes: der})
	return base64.RawStdEncoding.EncodeToString(block), nil
}

// FromPrivatePEM reconstructs a full-mode KeyPair from the output of
// PrivatePEM. Public-only modes are rejected.
func FromPrivatePEM(encoded string, mode Mode) (*KeyPair, error) {
	if !mode.private() {
		return nil, fmt.Errorf("%w: cannot load a private key as %s", ErrMode, mode)
	}
	raw, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil || block.Type != privateBlockType {
		return nil, fmt.Errorf("%w: not a private key PEM block", ErrNoKey)
	}
	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &KeyPair{mode: mode, public: &priv.PublicKey, private: priv}, nil
}
