// Package domain defines the core domain models for pqcall.
package domain

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// Key material sizes.
const (
	// MasterKeyLength is the SRTP master key length in bytes.
	MasterKeyLength = 32

	// MasterSaltLength is the SRTP master salt length in bytes.
	MasterSaltLength = 16
)

// EncryptionKeys is the per-session master key material. It lives only
// in memory for the session's lifetime and is wiped on teardown.
type EncryptionKeys struct {
	// MasterKey is the 32-byte session master key.
	MasterKey []byte

	// MasterSalt is the 16-byte key derivation salt.
	MasterSalt []byte

	// KeyDerivationRate is the SRTP key derivation rate (0 = derive once).
	KeyDerivationRate uint64
}

// Wipe zeroes the key material in place. Safe to call more than once.
func (k *EncryptionKeys) Wipe() {
	for i := range k.MasterKey {
		k.MasterKey[i] = 0
	}
	for i := range k.MasterSalt {
		k.MasterSalt[i] = 0
	}
	k.MasterKey = nil
	k.MasterSalt = nil
}

// DTLSConfiguration is the DTLS handshake bookkeeping for a session.
// Only the fingerprint and role travel outside the core; the media
// handshake itself happens in the transport layer.
type DTLSConfiguration struct {
	// Fingerprint is the certificate digest in colon-separated upper
	// hex (e.g. "A1:B2:...").
	Fingerprint string `json:"fingerprint"`

	// Algorithm names the fingerprint digest algorithm.
	Algorithm string `json:"algorithm"`

	// Setup is the DTLS role preference ("actpass", "active", "passive").
	Setup string `json:"setup"`
}

// SRTPConfiguration is the SRTP crypto parameters for a session.
type SRTPConfiguration struct {
	// CryptoSuite names the SRTP protection suite.
	CryptoSuite string `json:"crypto_suite"`

	// KeyParams is base64(masterKey || masterSalt) as used in SDP
	// crypto attributes.
	KeyParams string `json:"key_params"`
}

// DefaultSRTPCryptoSuite is the SRTP suite offered for version-1 sessions.
const DefaultSRTPCryptoSuite = "AES_CM_128_HMAC_SHA1_80"

// FingerprintBytes renders a digest as a colon-separated upper-hex DTLS
// fingerprint.
func FingerprintBytes(digest []byte) string {
	parts := make([]string, len(digest))
	for i, b := range digest {
		parts[i] = strings.ToUpper(hex.EncodeToString([]byte{b}))
	}
	return strings.Join(parts, ":")
}

// KeyFingerprint computes the audit-only fingerprint stored on a
// CallSession: a truncated digest of the master key material, from which
// the keys cannot be recovered.
func KeyFingerprint(keys *EncryptionKeys) string {
	h := sha256.New()
	h.Write(keys.MasterKey)
	h.Write(keys.MasterSalt)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// SRTPKeyParams encodes master key material for an SDP crypto attribute.
func SRTPKeyParams(keys *EncryptionKeys) string {
	combined := make([]byte, 0, len(keys.MasterKey)+len(keys.MasterSalt))
	combined = append(combined, keys.MasterKey...)
	combined = append(combined, keys.MasterSalt...)
	return base64.StdEncoding.EncodeToString(combined)
}
