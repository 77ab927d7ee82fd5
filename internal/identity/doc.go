// Package identity implements parley's user and friend model.
//
// A User owns a full encryption key pair, a full signing key pair, and a map
// of known Friends. A Friend is the redacted, public-only projection of a
// peer's User: its identifier, nickname, public encryption key, public
// verification key, and the history of messages decrypted from that peer.
//
// The message pipeline lives here too: CreateMessage encrypts a plaintext
// under a friend's public key and signs the ciphertext with the user's own
// signing key; ReceiveMessage verifies an inbound wire message against the
// sending friend's verification key strictly before decrypting it.
//
// Concurrency: User and Friend are not safe for concurrent use. LockedUser
// wraps a User for the one place two flows share it: the foreground CLI and
// the background relay sync loop.
package identity
