// Package store persists user profiles on disk.
//
// A profile is the full User aggregate: both private keys, every friend, and
// the decrypted message histories. It is serialized to JSON and sealed with
// ChaCha20-Poly1305 under a key derived from the owner's passphrase with
// scrypt, so a stolen profile file is useless without the passphrase.
//
// Files are written via a temp file and rename so a crash never leaves a
// half-written profile behind.
package store
