// Package crypto implements the capability-restricted key pair used by parley.
//
// Contents
//
//   - Mode-gated RSA key pairs: a KeyPair is tagged with the operations it is
//     allowed to perform (Encrypt, EncryptDecrypt, Verify, VerifySign) and
//     refuses everything else with ErrMode (Generate, Encrypt, Decrypt, Sign,
//     Verify)
//   - The only legal downgrade path from a full key pair to its public-only
//     counterpart (ToPublic, ToVerify); there is no upgrade path
//   - PEM interchange for public keys and, for local profile storage, private
//     keys (PublicPEM, FromPublicPEM, PrivatePEM, FromPrivatePEM)
//   - Short public-key fingerprints for display (Fingerprint)
//
// # Notes
//
// The cipher is RSA with PKCS#1 v1.5 padding and SHA-256 digests, kept for
// compatibility with the existing wire format. Decrypt applies a legacy
// trailing-zero and whitespace trim to the recovered plaintext; plaintexts
// that legitimately end in NUL bytes or whitespace do not round-trip. See
// Decrypt for details.
package crypto
