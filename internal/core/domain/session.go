// Package domain defines the core domain models for pqcall.
package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Identifier prefixes. Both identifier kinds are minted from CSPRNG
// entropy and embed no user data.
const (
	// SessionIDPrefix is the prefix for anonymous call session IDs.
	// Format: pqcs-{ulid_lowercase}, 31 characters total.
	SessionIDPrefix = "pqcs-"

	// AnonymousIDPrefix is the prefix for anonymous participant IDs.
	// Format: pqan-{ulid_lowercase}, 31 characters total.
	AnonymousIDPrefix = "pqan-"

	// prefixedIDLength is prefix (5) + ULID (26).
	prefixedIDLength = 31
)

// NewSessionID mints a new anonymous call session identifier.
func NewSessionID() (string, error) {
	return newPrefixedID(SessionIDPrefix)
}

// NewAnonymousID mints a new anonymous participant identifier.
func NewAnonymousID() (string, error) {
	return newPrefixedID(AnonymousIDPrefix)
}

func newPrefixedID(prefix string) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return prefix + strings.ToLower(id.String()), nil
}

// IsValidSessionID checks the anonymous session ID shape.
func IsValidSessionID(id string) bool {
	return isValidPrefixedID(id, SessionIDPrefix)
}

// IsValidAnonymousID checks the anonymous participant ID shape.
func IsValidAnonymousID(id string) bool {
	return isValidPrefixedID(id, AnonymousIDPrefix)
}

func isValidPrefixedID(id, prefix string) bool {
	if len(id) != prefixedIDLength || !strings.HasPrefix(id, prefix) {
		return false
	}
	_, err := ulid.Parse(strings.ToUpper(id[len(prefix):]))
	return err == nil
}

// CallStatus is the lifecycle state of a call session.
type CallStatus string

const (
	StatusInitiating CallStatus = "initiating"
	StatusRinging    CallStatus = "ringing"
	StatusConnected  CallStatus = "connected"
	StatusEnded      CallStatus = "ended"
	StatusFailed     CallStatus = "failed"
)

// IsValid reports whether the status is a known value.
func (s CallStatus) IsValid() bool {
	switch s {
	case StatusInitiating, StatusRinging, StatusConnected, StatusEnded, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s CallStatus) IsTerminal() bool {
	return s == StatusEnded || s == StatusFailed
}

// CanTransitionTo reports whether the state machine permits moving from
// s to next. Terminal states reject everything; live states may advance
// one step or jump to a terminal state.
func (s CallStatus) CanTransitionTo(next CallStatus) bool {
	if s.IsTerminal() || !next.IsValid() {
		return false
	}
	switch s {
	case StatusInitiating:
		return next == StatusRinging || next.IsTerminal()
	case StatusRinging:
		return next == StatusConnected || next.IsTerminal()
	case StatusConnected:
		return next.IsTerminal()
	}
	return false
}

// CallSession is a call between two anonymous participants. It carries
// no user identifiers and no token material; the only cryptographic
// residue is an audit fingerprint of the session keys.
type CallSession struct {
	// ID is the anonymous session identifier (pqcs-...).
	ID string `json:"id"`

	// ParticipantA is the caller's anonymous identifier.
	ParticipantA string `json:"participant_a"`

	// ParticipantB is the callee's anonymous identifier.
	ParticipantB string `json:"participant_b"`

	// Status is the current lifecycle state.
	Status CallStatus `json:"status"`

	// CreatedAt is the creation timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at"`

	// EndedAt is set when the session enters a terminal state
	// (Unix milliseconds, 0 = still live).
	EndedAt int64 `json:"ended_at,omitempty"`

	// ExpiresAt is the per-status deadline: the ringing timeout while
	// pre-connect, the maximum call duration once connected
	// (Unix milliseconds).
	ExpiresAt int64 `json:"expires_at"`

	// KeyFingerprint is the audit-only fingerprint of the session's
	// encryption keys. Never the keys themselves.
	KeyFingerprint string `json:"key_fingerprint"`
}

// Validate checks the session's structural invariants.
func (s *CallSession) Validate() error {
	var violations []string

	if !IsValidSessionID(s.ID) {
		violations = append(violations, "invalid session id")
	}
	if !IsValidAnonymousID(s.ParticipantA) {
		violations = append(violations, "invalid participant_a id")
	}
	if !IsValidAnonymousID(s.ParticipantB) {
		violations = append(violations, "invalid participant_b id")
	}
	if s.ParticipantA == s.ParticipantB {
		violations = append(violations, "participants must be distinct")
	}
	if !s.Status.IsValid() {
		violations = append(violations, "invalid status")
	}

	if len(violations) > 0 {
		return ErrSessionValidation.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// IsExpired returns true if the session's current deadline has passed.
func (s *CallSession) IsExpired() bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return time.Now().UnixMilli() > s.ExpiresAt
}

// HasParticipant reports whether id is one of the two participants.
func (s *CallSession) HasParticipant(id string) bool {
	return s.ParticipantA == id || s.ParticipantB == id
}

// Clone creates a copy of the session.
func (s *CallSession) Clone() *CallSession {
	clone := *s
	return &clone
}

// PairKey computes the canonical key for an unordered participant pair.
// Both orderings of the same pair yield the same key.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
