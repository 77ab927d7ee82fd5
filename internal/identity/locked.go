package identity

import "sync"

// LockedUser serializes access to a User shared between the foreground flow
// and the background relay sync loop.
//
// Every operation takes the whole-object lock for its duration and releases
// it before the caller's next network wait; the lock is never held across an
// I/O suspension point.
type LockedUser struct {
	mu   sync.Mutex
	user *User
}

// NewLockedUser wraps an existing user. The caller must not keep using the
// bare *User afterwards.
func NewLockedUser(u *User) *LockedUser {
	return &LockedUser{user: u}
}

// ID returns the user's immutable identifier.
func (l *LockedUser) ID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.user.ID
}

// Nickname returns the user's display nickname.
func (l *LockedUser) Nickname() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.user.Nickname
}

// AddFriend inserts a friend under the lock.
func (l *LockedUser) AddFriend(f *Friend) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.user.AddFriend(f)
}

// CreateMessage composes an outbound message under the lock.
func (l *LockedUser) CreateMessage(friendID, plaintext string) (EncryptedMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.user.CreateMessage(friendID, plaintext)
}

// ReceiveMessage applies an inbound message under the lock.
func (l *LockedUser) ReceiveMessage(em EncryptedMessage) (Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.user.ReceiveMessage(em)
}

// With runs fn with exclusive access to the underlying user. fn must not
// retain the *User or block on I/O.
func (l *LockedUser) With(fn func(*User) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.user)
}
