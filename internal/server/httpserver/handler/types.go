package handler

import (
	"time"

	"github.com/pqcall/pqcall-go/internal/core/domain"
)

// Response is the standard API response envelope. All JSON responses use
// this format, except /metrics which uses the Prometheus exposition
// format.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// GenerateTokenRequest is the request body for POST /tokens.
type GenerateTokenRequest struct {
	UserID string `json:"user_id"`
}

// GenerateTokenResponse is the response body for POST /tokens. QRPayload
// is the complete wire encoding a client renders as a QR code; the raw
// token value is never echoed separately.
type GenerateTokenResponse struct {
	QRPayload string `json:"qr_payload"`
	ExpiresAt int64  `json:"expires_at"`
}

// ValidateTokenRequest is the request body for POST /tokens/validate.
type ValidateTokenRequest struct {
	QRPayload string `json:"qr_payload"`
}

// ValidateTokenResponse is the response body for POST /tokens/validate.
// It deliberately omits the owning user: validity is the only fact a
// scanner may learn.
type ValidateTokenResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// RevokeTokenRequest is the request body for POST /tokens/revoke.
type RevokeTokenRequest struct {
	QRPayload string `json:"qr_payload"`
	Reason    string `json:"reason,omitempty"`
}

// RevokeTokenResponse is the response body for POST /tokens/revoke.
type RevokeTokenResponse struct {
	Revoked bool `json:"revoked"`
}

// RevokeUserTokensResponse is the response body for
// POST /users/{user_id}/tokens/revoke.
type RevokeUserTokensResponse struct {
	RevokedCount int `json:"revoked_count"`
}

// UpdateCallStatusRequest is the request body for POST /calls/{id}/status.
type UpdateCallStatusRequest struct {
	Status domain.CallStatus `json:"status"`
}

// UpdateCallStatusResponse is the response body for POST /calls/{id}/status.
type UpdateCallStatusResponse struct {
	Updated bool              `json:"updated"`
	Status  domain.CallStatus `json:"status"`
}

// CallSessionResponse represents a call session in API responses.
type CallSessionResponse struct {
	SessionID    string            `json:"session_id"`
	ParticipantA string            `json:"participant_a"`
	ParticipantB string            `json:"participant_b"`
	Status       domain.CallStatus `json:"status"`
	CreatedAt    int64             `json:"created_at"`
	ExpiresAt    int64             `json:"expires_at"`
	EndedAt      int64             `json:"ended_at,omitempty"`
}

// newCallSessionResponse converts a domain session to its API shape.
func newCallSessionResponse(s *domain.CallSession) CallSessionResponse {
	return CallSessionResponse{
		SessionID:    s.ID,
		ParticipantA: s.ParticipantA,
		ParticipantB: s.ParticipantB,
		Status:       s.Status,
		CreatedAt:    s.CreatedAt,
		ExpiresAt:    s.ExpiresAt,
		EndedAt:      s.EndedAt,
	}
}

// CreateSignalRequest is the request body for POST /calls/{id}/signal.
type CreateSignalRequest struct {
	Type    domain.MessageType `json:"type"`
	Payload []byte             `json:"payload"`
	Encrypt bool               `json:"encrypt"`
}

// ValidateSignalRequest is the request body for
// POST /calls/{id}/signal/validate.
type ValidateSignalRequest struct {
	Message *domain.SignalingMessage `json:"message"`
}

// ValidateSignalResponse is the response body for
// POST /calls/{id}/signal/validate.
type ValidateSignalResponse struct {
	Valid   bool   `json:"valid"`
	Payload []byte `json:"payload,omitempty"`
}
