// Package domain defines the core domain models for pqcall.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pqcall/pqcall-go/pkg/token"
)

// Token wire format constants.
const (
	// QRPrefix is the leading field of the QR wire encoding.
	QRPrefix = "pqc"

	// TokenVersion is the current (and only supported) token version.
	TokenVersion = 1

	// TokenValueLength is the hex length of the 256-bit token value.
	TokenValueLength = 64

	// ChecksumLength is the hex length of the embedded checksum.
	ChecksumLength = 8

	// qrFieldCount is the exact number of colon-delimited wire fields.
	qrFieldCount = 4
)

// SupportedVersions is the set of token versions this build accepts.
var SupportedVersions = map[int]bool{
	TokenVersion: true,
}

// SecureToken is a freshly minted scan token. It exists only in memory
// between generation and QR formatting, or between scan and resolution;
// it is never persisted verbatim.
type SecureToken struct {
	// Value is the 256-bit random token, hex encoded (64 characters).
	Value string

	// Version is the token format version.
	Version int

	// Checksum is the first 8 hex characters of
	// SHA-256("{value}:{version}").
	Checksum string

	// CreatedAt is the time the token was minted.
	CreatedAt time.Time
}

// NewSecureToken mints a new version-1 token from the CSPRNG.
func NewSecureToken() (*SecureToken, error) {
	value, err := token.Generate()
	if err != nil {
		return nil, ErrInternalServer.WithCause(err)
	}
	return &SecureToken{
		Value:     value,
		Version:   TokenVersion,
		Checksum:  Checksum(value, TokenVersion),
		CreatedAt: time.Now(),
	}, nil
}

// Checksum computes the integrity checksum for a token value and version.
func Checksum(value string, version int) string {
	sum := sha256.Sum256([]byte(value + ":" + strconv.Itoa(version)))
	return hex.EncodeToString(sum[:])[:ChecksumLength]
}

// FormatQR renders the token in the QR wire encoding:
// "pqc:<version>:<value>:<checksum>".
func (t *SecureToken) FormatQR() string {
	return fmt.Sprintf("%s:%d:%s:%s", QRPrefix, t.Version, t.Value, t.Checksum)
}

// ParseQR parses and fully validates a scanned QR payload. The checks are
// ordered cheapest first and touch no storage: field count and prefix,
// version, value shape, then checksum recomputation.
func ParseQR(raw string) (*SecureToken, error) {
	fields := strings.Split(raw, ":")
	if len(fields) != qrFieldCount {
		return nil, ErrInvalidFormat.WithDetails("expected 4 colon-delimited fields")
	}
	if fields[0] != QRPrefix {
		return nil, ErrInvalidFormat.WithDetails("unrecognized prefix")
	}

	version, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, ErrInvalidFormat.WithDetails("version is not numeric")
	}
	if !SupportedVersions[version] {
		return nil, ErrUnsupportedVersion.WithDetails(fmt.Sprintf("version %d", version))
	}

	value := fields[2]
	if len(value) != TokenValueLength || !isLowerHex(value) {
		return nil, ErrInvalidFormat.WithDetails("token value must be 64 lowercase hex characters")
	}

	checksum := fields[3]
	if len(checksum) != ChecksumLength || !isLowerHex(checksum) {
		return nil, ErrInvalidFormat.WithDetails("checksum must be 8 lowercase hex characters")
	}
	if Checksum(value, version) != checksum {
		return nil, ErrInvalidChecksum
	}

	return &SecureToken{
		Value:    value,
		Version:  version,
		Checksum: checksum,
	}, nil
}

func isLowerHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// HashedToken is the salted, one-way digest of a token value. This is the
// only form that may be persisted.
type HashedToken struct {
	// Hash is the hex-encoded salted SHA-256 digest.
	Hash string `json:"hash"`

	// Salt is the hex-encoded per-hash random salt.
	Salt string `json:"salt"`

	// Algorithm names the digest algorithm.
	Algorithm string `json:"algorithm"`
}

// HashSecureToken produces a salted digest of a token value. Each call
// draws a fresh salt, so repeated hashes of the same value differ.
func HashSecureToken(value string) (HashedToken, error) {
	salted, err := token.Hash(value)
	if err != nil {
		return HashedToken{}, ErrInternalServer.WithCause(err)
	}
	return HashedToken{
		Hash:      salted.Hash,
		Salt:      salted.Salt,
		Algorithm: token.HashAlgorithm,
	}, nil
}

// VerifySecureToken checks a candidate value against a stored salted
// digest in constant time.
func VerifySecureToken(value string, hashed HashedToken) bool {
	return token.Verify(value, token.Salted{Hash: hashed.Hash, Salt: hashed.Salt})
}

// LookupDigest computes the deterministic resolution-index digest of a
// token value. It is distinct from the salted at-rest hash: the index
// digest locates candidate metadata, the salted hash proves the match.
func LookupDigest(value string) string {
	return token.Digest(value)
}

// TokenMetadata is the persisted record for an issued token. It is the
// only place a user identifier and token digest coexist, and it never
// contains the token value itself.
type TokenMetadata struct {
	// Hashed is the salted at-rest digest.
	Hashed HashedToken `json:"hashed"`

	// LookupHash is the deterministic digest used by the resolution index.
	LookupHash string `json:"lookup_hash"`

	// UserID identifies the owning user. Must never travel past token
	// resolution.
	UserID string `json:"user_id"`

	// CreatedAt is the issue timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at"`

	// ExpiresAt is the absolute expiry (Unix milliseconds, 0 = none).
	ExpiresAt int64 `json:"expires_at"`

	// Revoked marks the token as revoked.
	Revoked bool `json:"revoked"`

	// RevokedAt is the revocation timestamp (Unix milliseconds).
	RevokedAt int64 `json:"revoked_at,omitempty"`

	// RevokeReason records why the token was revoked.
	RevokeReason string `json:"revoke_reason,omitempty"`
}

// IsExpired returns true if the metadata has an expiry in the past.
func (m *TokenMetadata) IsExpired() bool {
	if m.ExpiresAt == 0 {
		return false
	}
	return time.Now().UnixMilli() > m.ExpiresAt
}

// IsActive returns true if the token is neither revoked nor expired.
func (m *TokenMetadata) IsActive() bool {
	return !m.Revoked && !m.IsExpired()
}

// Revoke marks the metadata revoked. Returns false if already revoked.
func (m *TokenMetadata) Revoke(reason string) bool {
	if m.Revoked {
		return false
	}
	m.Revoked = true
	m.RevokedAt = time.Now().UnixMilli()
	m.RevokeReason = reason
	return true
}

// Clone creates a copy of the metadata.
func (m *TokenMetadata) Clone() *TokenMetadata {
	clone := *m
	return &clone
}

// MaskTokenValue masks a token value or QR payload for safe logging.
// Only a short prefix and suffix survive.
func MaskTokenValue(s string) string {
	if len(s) < 12 {
		return "***REDACTED***"
	}
	return s[:6] + "..." + s[len(s)-4:]
}

// MaskUserID turns a user identifier into a short hashed reference for
// logging. The same user always hashes to the same reference, so log
// lines stay correlatable without carrying the raw identifier.
func MaskUserID(userID string) string {
	if userID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(userID))
	return "user#" + hex.EncodeToString(sum[:4])
}
