// Package token provides token generation and salted hashing utilities.
//
// This package implements cryptographically secure token generation
// and the at-rest hashing scheme used for scan tokens.
//
// Token Value:
//
//   - 32 bytes (256 bits) from crypto/rand, hex encoded to 64 characters
//
// Hashing:
//
//   - SHA-256 over salt || value with a fresh random 16-byte salt per
//     hash operation, so two hashes of the same value never collide
//   - Verification is length-checked and constant-time
//
// Security:
//
//   - Uses crypto/rand for CSPRNG
//   - Token values are never persisted, only salted hashes
package token
