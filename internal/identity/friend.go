package identity

import (
	"sort"

	"parley/internal/crypto"
)

// Friend is the public-only projection of a peer's identity. It never holds
// private key material.
type Friend struct {
	ID       string
	Nickname string

	encKey *crypto.KeyPair // ModeEncrypt
	verKey *crypto.KeyPair // ModeVerify

	messages []Message
}

// Encrypt encrypts plaintext under the friend's public encryption key.
func (f *Friend) Encrypt(plaintext string) (string, error) {
	return f.encKey.Encrypt(plaintext)
}

// Verify checks the message signature over the encrypted payload against the
// friend's public verification key.
func (f *Friend) Verify(em EncryptedMessage) error {
	return f.verKey.Verify(em.EncContent, em.Sig)
}

// AddMessage appends a decrypted message to the friend's history.
func (f *Friend) AddMessage(m Message) {
	f.messages = append(f.messages, m)
}

// Messages returns a copy of the history ordered by creation timestamp, not
// by arrival order.
func (f *Friend) Messages() []Message {
	out := make([]Message, len(f.messages))
	copy(out, f.messages)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out
}

// Fingerprint returns a short fingerprint of the friend's public encryption
// key for display alongside the nickname.
func (f *Friend) Fingerprint() (string, error) {
	return f.encKey.Fingerprint()
}
