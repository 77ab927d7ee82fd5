package identity

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"parley/internal/crypto"
)

var (
	// ErrDuplicateFriend is returned when a friend with the same id already
	// exists; the existing entry is left untouched.
	ErrDuplicateFriend = errors.New("duplicate friend")

	// ErrNoSuchFriend is returned when a friend id is not in the user's map.
	// An unknown sender is never trusted.
	ErrNoSuchFriend = errors.New("no such friend")

	// ErrUnknownMessage is returned when an inbound message is addressed to a
	// different identity.
	ErrUnknownMessage = errors.New("message addressed to another identity")

	// ErrInvalidExchange is returned for malformed friend exchange blobs.
	ErrInvalidExchange = errors.New("invalid friend exchange blob")
)

// User is a local identity: a globally unique id, a display nickname, both
// key pairs, and the map of known friends.
type User struct {
	ID       string
	Nickname string

	encKey *crypto.KeyPair // ModeEncryptDecrypt
	sigKey *crypto.KeyPair // ModeVerifySign

	friends map[string]*Friend
}

// NewUser generates a fresh identity: a random id and both key pairs.
func NewUser(nickname string) (*User, error) {
	return NewUserWithKeySize(nickname, crypto.DefaultKeyBits)
}

// NewUserWithKeySize generates a fresh identity with a custom RSA modulus
// size. Small sizes are for tests; real identities use DefaultKeyBits.
func NewUserWithKeySize(nickname string, bits int) (*User, error) {
	encKey, err := crypto.Generate(crypto.ModeEncryptDecrypt, bits)
	if err != nil {
		return nil, err
	}
	sigKey, err := crypto.Generate(crypto.ModeVerifySign, bits)
	if err != nil {
		return nil, err
	}
	return &User{
		ID:       uuid.NewString(),
		Nickname: nickname,
		encKey:   encKey,
		sigKey:   sigKey,
		friends:  make(map[string]*Friend),
	}, nil
}

// AddFriend inserts a friend keyed by its id. A friend whose id is already
// present is rejected with ErrDuplicateFriend.
func (u *User) AddFriend(f *Friend) error {
	if _, ok := u.friends[f.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFriend, f.ID)
	}
	u.friends[f.ID] = f
	return nil
}

// Friend looks up a friend by id.
func (u *User) Friend(id string) (*Friend, bool) {
	f, ok := u.friends[id]
	return f, ok
}

// Friends returns the known friends ordered by nickname, then id.
func (u *User) Friends() []*Friend {
	out := make([]*Friend, 0, len(u.friends))
	for _, f := range u.friends {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Nickname != out[j].Nickname {
			return out[i].Nickname < out[j].Nickname
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ToFriend produces the public projection of this user, for handing to a
// peer. Both key pairs are downgraded to their public-only modes.
func (u *User) ToFriend() (*Friend, error) {
	encKey, err := u.encKey.ToPublic()
	if err != nil {
		return nil, err
	}
	verKey, err := u.sigKey.ToVerify()
	if err != nil {
		return nil, err
	}
	return &Friend{
		ID:       u.ID,
		Nickname: u.Nickname,
		encKey:   encKey,
		verKey:   verKey,
	}, nil
}

// CreateMessage encrypts plaintext for the given friend and signs the
// ciphertext with the user's own signing key.
func (u *User) CreateMessage(friendID, plaintext string) (EncryptedMessage, error) {
	friend, ok := u.friends[friendID]
	if !ok {
		return EncryptedMessage{}, fmt.Errorf("%w: %s", ErrNoSuchFriend, friendID)
	}
	encContent, err := friend.Encrypt(plaintext)
	if err != nil {
		return EncryptedMessage{}, err
	}
	sig, err := u.sigKey.Sign(encContent)
	if err != nil {
		return EncryptedMessage{}, err
	}
	return EncryptedMessage{
		ID:         uuid.NewString(),
		SourceID:   u.ID,
		TargetID:   friendID,
		EncContent: encContent,
		CreatedAt:  time.Now().Unix(),
		Sig:        sig,
	}, nil
}

// ReceiveMessage verifies and decrypts an inbound wire message, appends the
// plaintext to the sending friend's history, and returns it.
//
// Verification happens strictly before decryption: a forged or corrupted
// message is rejected without ever being decrypted, and no state is mutated
// on any failure.
func (u *User) ReceiveMessage(em EncryptedMessage) (Message, error) {
	if em.TargetID != u.ID {
		return Message{}, fmt.Errorf("%w: target %s", ErrUnknownMessage, em.TargetID)
	}
	friend, ok := u.friends[em.SourceID]
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrNoSuchFriend, em.SourceID)
	}
	if err := friend.Verify(em); err != nil {
		return Message{}, err
	}
	content, err := u.encKey.Decrypt(em.EncContent)
	if err != nil {
		return Message{}, err
	}
	msg := Message{
		ID:        em.ID,
		SourceID:  em.SourceID,
		TargetID:  em.TargetID,
		Content:   content,
		CreatedAt: em.CreatedAt,
	}
	friend.AddMessage(msg)
	return msg, nil
}

// Fingerprint returns a short fingerprint of the user's public encryption key.
func (u *User) Fingerprint() (string, error) {
	return u.encKey.Fingerprint()
}
