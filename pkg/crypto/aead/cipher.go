// Package aead provides authenticated encryption for signaling payloads.
//
// It exposes a small AEAD abstraction with two interchangeable
// implementations: AES-256-GCM where hardware AES is available, and
// ChaCha20-Poly1305 elsewhere. Decryption authenticates before releasing
// any plaintext and fails closed on tag mismatch.
package aead

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
	"runtime"
)

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// ErrCiphertextTooShort is returned when a ciphertext cannot even hold
// the nonce prefix.
var ErrCiphertextTooShort = errors.New("aead: ciphertext too short")

// Cipher provides authenticated encryption with associated data.
type Cipher interface {
	// Type returns the cipher type.
	Type() CipherType

	// Encrypt encrypts plaintext, binding additionalData to the tag.
	// The nonce is generated per call and prepended to the ciphertext.
	Encrypt(plaintext, additionalData []byte) ([]byte, error)

	// Decrypt authenticates and decrypts ciphertext. Any tag mismatch
	// returns an error and no plaintext.
	Decrypt(ciphertext, additionalData []byte) ([]byte, error)

	// NonceSize returns the nonce size in bytes.
	NonceSize() int

	// Overhead returns the authentication tag size in bytes.
	Overhead() int
}

// New creates a cipher for the given 32-byte key, selecting AES-GCM on
// architectures with hardware AES and ChaCha20-Poly1305 otherwise.
func New(key []byte) (Cipher, error) {
	if hasHardwareAES() {
		return NewAESGCM(key)
	}
	return NewChaCha20(key)
}

// NewWithType creates a cipher of the specified type.
func NewWithType(key []byte, cipherType CipherType) (Cipher, error) {
	switch cipherType {
	case CipherAESGCM:
		return NewAESGCM(key)
	case CipherChaCha20:
		return NewChaCha20(key)
	default:
		return nil, errors.New("aead: unknown cipher type: " + string(cipherType))
	}
}

// hasHardwareAES reports whether the platform accelerates AES.
// Go's crypto/aes uses AES-NI on amd64 and the ARM crypto extensions
// on arm64.
func hasHardwareAES() bool {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return true
	default:
		return false
	}
}

// baseCipher holds the shared seal/open plumbing.
type baseCipher struct {
	aead cipher.AEAD
}

func (c *baseCipher) NonceSize() int {
	return c.aead.NonceSize()
}

func (c *baseCipher) Overhead() int {
	return c.aead.Overhead()
}

func (c *baseCipher) encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

func (c *baseCipher) decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	if len(ciphertext) < c.aead.NonceSize() {
		return nil, ErrCiphertextTooShort
	}
	nonce := ciphertext[:c.aead.NonceSize()]
	return c.aead.Open(nil, nonce, ciphertext[c.aead.NonceSize():], additionalData)
}
