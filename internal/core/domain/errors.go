// Package domain defines the core domain models for pqcall.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "PQ-SESS-4090")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison by code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks whether the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it is a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Token Errors (TOKN)
// ============================================================================

var (
	// ErrInvalidFormat indicates the scanned payload does not match the
	// QR wire format. Raised before any storage lookup.
	ErrInvalidFormat = NewDomainError("PQ-TOKN-4000", "invalid token format")

	// ErrInvalidChecksum indicates the embedded checksum does not match
	// the token value.
	ErrInvalidChecksum = NewDomainError("PQ-TOKN-4001", "invalid token checksum")

	// ErrUnsupportedVersion indicates a token version outside the
	// supported set.
	ErrUnsupportedVersion = NewDomainError("PQ-TOKN-4002", "unsupported token version")

	// ErrTokenNotFound indicates no active owner exists for the token.
	ErrTokenNotFound = NewDomainError("PQ-TOKN-4040", "token not found")

	// ErrTokenResolutionFailed indicates the token could not be resolved
	// because it failed format or checksum validation.
	ErrTokenResolutionFailed = NewDomainError("PQ-TOKN-4010", "token resolution failed")

	// ErrTokenExpired indicates the token metadata has expired.
	ErrTokenExpired = NewDomainError("PQ-TOKN-4011", "token expired")

	// ErrTokenRevoked indicates the token has been revoked.
	ErrTokenRevoked = NewDomainError("PQ-TOKN-4012", "token revoked")

	// ErrTokenGeneration indicates token minting or hashing failed.
	ErrTokenGeneration = NewDomainError("PQ-TOKN-5000", "token generation failed")
)

// ============================================================================
// Privacy Errors (PRIV)
// ============================================================================

var (
	// ErrPrivacyViolation indicates a request that would link identities:
	// a self-call, or colliding caller/callee anonymous identifiers.
	ErrPrivacyViolation = NewDomainError("PQ-PRIV-4030", "privacy violation")
)

// ============================================================================
// Session Errors (SESS)
// ============================================================================

var (
	// ErrSessionNotFound indicates the requested call session was not found.
	ErrSessionNotFound = NewDomainError("PQ-SESS-4040", "call session not found")

	// ErrDuplicateSession indicates a live session already links the
	// same participant pair.
	ErrDuplicateSession = NewDomainError("PQ-SESS-4090", "duplicate call session")

	// ErrSessionTerminal indicates a transition was attempted on an
	// ended or failed session.
	ErrSessionTerminal = NewDomainError("PQ-SESS-4091", "call session already terminal")

	// ErrSessionValidation indicates the session request failed validation.
	ErrSessionValidation = NewDomainError("PQ-SESS-4001", "session validation failed")

	// ErrSessionCreationFailed indicates session creation failed after
	// capacity cleanup was attempted.
	ErrSessionCreationFailed = NewDomainError("PQ-SESS-5001", "session creation failed")
)

// ============================================================================
// Routing Errors (ROUT)
// ============================================================================

var (
	// ErrRoutingFailed indicates the call router could not complete an
	// initiate request for a non-client-fault reason.
	ErrRoutingFailed = NewDomainError("PQ-ROUT-5000", "call routing failed")
)

// ============================================================================
// Signaling Errors (SIG)
// ============================================================================

var (
	// ErrMessageStale indicates a signaling message outside the
	// freshness window.
	ErrMessageStale = NewDomainError("PQ-SIG-4010", "signaling message stale")

	// ErrMessageIntegrity indicates the integrity digest did not match
	// the expected sequence and content.
	ErrMessageIntegrity = NewDomainError("PQ-SIG-4011", "signaling integrity mismatch")

	// ErrMessageDecryption indicates authenticated decryption failed.
	ErrMessageDecryption = NewDomainError("PQ-SIG-4012", "signaling decryption failed")

	// ErrMessageReplay indicates a previously-seen message ID.
	ErrMessageReplay = NewDomainError("PQ-SIG-4015", "signaling replay detected")

	// ErrChannelNotFound indicates no signaling channel exists for the
	// session, or the session is terminal.
	ErrChannelNotFound = NewDomainError("PQ-SIG-4040", "signaling channel not found")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("PQ-SYS-5000", "internal server error")

	// ErrStorageError indicates a storage layer or capacity error.
	ErrStorageError = NewDomainError("PQ-SYS-5001", "storage error")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("PQ-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("PQ-ARG-1002", "missing required argument")
)
