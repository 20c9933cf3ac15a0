// Package token provides token generation and salted hashing utilities.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// DefaultLength is the default token length in bytes.
const DefaultLength = 32

// MinLength is the minimum acceptable token length in bytes (256 bits).
const MinLength = 32

// ErrLengthTooShort is returned when a caller requests fewer random
// bytes than the 256-bit floor.
var ErrLengthTooShort = errors.New("token: length below 256-bit minimum")

// Generate generates a cryptographically secure random token value.
//
// The returned value is hex encoded (64 characters for the default length).
func Generate() (string, error) {
	return GenerateWithLength(DefaultLength)
}

// GenerateWithLength generates a hex-encoded token value with the
// specified byte length. Lengths below MinLength are rejected.
func GenerateWithLength(length int) (string, error) {
	if length < MinLength {
		return "", ErrLengthTooShort
	}
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// GenerateBytes generates random bytes of the given length.
//
// Unlike GenerateWithLength it does not enforce the 256-bit floor; it is
// used for salts, nonces, and key material of caller-chosen sizes.
func GenerateBytes(length int) ([]byte, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return nil, err
	}
	return bytes, nil
}
