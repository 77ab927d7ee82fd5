package identity

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"parley/internal/crypto"
)

// exchangeRecord is the canonical friend exchange shape. The key fields are
// themselves base64 of PEM public keys, and the whole record is outer-encoded
// as padding-free base64 so the blob survives copy-paste and relay rosters.
type exchangeRecord struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	PubKey   string `json:"pub_key"`
	VerKey   string `json:"ver_key"`
}

// Encode serializes the friend into the exchange blob handed to peers.
func (f *Friend) Encode() (string, error) {
	pubPEM, err := f.encKey.PublicPEM()
	if err != nil {
		return "", err
	}
	verPEM, err := f.verKey.PublicPEM()
	if err != nil {
		return "", err
	}
	rec := exchangeRecord{
		ID:       f.ID,
		Nickname: f.Nickname,
		PubKey:   pubPEM,
		VerKey:   verPEM,
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal exchange record: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(raw), nil
}

// DecodeFriend reconstructs a Friend from a peer-supplied exchange blob.
//
// It fails with ErrInvalidExchange if the embedded id is empty, and with the
// underlying crypto error if either key fails to parse into its expected
// public-only mode.
func DecodeFriend(blob string) (*Friend, error) {
	raw, err := base64.RawStdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExchange, err)
	}
	var rec exchangeRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExchange, err)
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("%w: id is empty", ErrInvalidExchange)
	}
	encKey, err := crypto.FromPublicPEM(rec.PubKey, crypto.ModeEncrypt)
	if err != nil {
		return nil, fmt.Errorf("exchange encryption key: %w", err)
	}
	verKey, err := crypto.FromPublicPEM(rec.VerKey, crypto.ModeVerify)
	if err != nil {
		return nil, fmt.Errorf("exchange verification key: %w", err)
	}
	return &Friend{
		ID:       rec.ID,
		Nickname: rec.Nickname,
		encKey:   encKey,
		verKey:   verKey,
	}, nil
}
