// Package token provides token generation and salted hashing utilities.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// SaltLength is the salt length in bytes for at-rest token hashes.
const SaltLength = 16

// HashAlgorithm names the digest used for salted hashes.
const HashAlgorithm = "sha256"

// Salted holds a salted token digest. Both fields are hex encoded.
type Salted struct {
	Hash string
	Salt string
}

// Hash computes a salted SHA-256 digest of a token value.
//
// A fresh random salt is drawn for every call, so hashing the same value
// twice yields two different digests. Only the salted digest may be
// persisted; the value itself must be discarded by the caller.
func Hash(value string) (Salted, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return Salted{}, err
	}
	return HashWithSalt(value, salt), nil
}

// HashWithSalt computes the salted digest of a value with a caller-provided
// salt. Exposed for verification; use Hash for new digests.
func HashWithSalt(value string, salt []byte) Salted {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(value))
	return Salted{
		Hash: hex.EncodeToString(h.Sum(nil)),
		Salt: hex.EncodeToString(salt),
	}
}

// Verify checks a candidate value against a stored salted digest.
//
// The comparison is length-checked and constant-time; it never
// short-circuits on the first mismatching byte.
func Verify(value string, stored Salted) bool {
	salt, err := hex.DecodeString(stored.Salt)
	if err != nil {
		return false
	}
	computed := HashWithSalt(value, salt)
	if len(computed.Hash) != len(stored.Hash) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed.Hash), []byte(stored.Hash)) == 1
}

// Digest computes the plain (unsalted) SHA-256 hex digest of a value.
//
// Used for the resolution lookup index, never for at-rest verification.
func Digest(value string) string {
	h := sha256.Sum256([]byte(value))
	return hex.EncodeToString(h[:])
}
