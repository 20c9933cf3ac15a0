package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pqcall/pqcall-go/internal/core/domain"
	"github.com/pqcall/pqcall-go/internal/core/service"
	"github.com/pqcall/pqcall-go/internal/telemetry/logger"
)

// Handler holds the services the HTTP endpoints operate on.
type Handler struct {
	tokens    *service.TokenManager
	calls     *service.CallRouter
	signaling *service.SignalingProtocol
	logger    *slog.Logger
}

// New creates a new Handler with the given services.
func New(tokens *service.TokenManager, calls *service.CallRouter, signaling *service.SignalingProtocol, log *slog.Logger) *Handler {
	return &Handler{
		tokens:    tokens,
		calls:     calls,
		signaling: signaling,
		logger:    log,
	}
}

// writeJSON writes a JSON response with the standard envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with the standard envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := logger.RequestIDFromContext(r.Context())
	response := NewErrorResponse(requestID, code, message)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsDomainError(err, "") {
		code := domain.GetErrorCode(err)
		h.writeError(w, r, errorCodeToHTTPStatus(code), code, err.Error())
		return
	}

	h.logger.Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, "PQ-SYS-5000", "internal server error")
}

// errorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"), strings.HasSuffix(code, "-4091"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4030"):
		return http.StatusForbidden
	// Only signaling integrity failures are authentication-shaped.
	// Token resolution errors surface as plain bad requests.
	case strings.HasPrefix(code, "PQ-SIG-401"):
		return http.StatusUnauthorized
	case strings.HasPrefix(code, "PQ-ARG-"):
		return http.StatusBadRequest
	case strings.Contains(code, "-5"):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// decodeBody decodes a JSON request body into dst, rejecting unknown
// garbage with a uniform bad-request error.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "PQ-ARG-1001", "invalid request body")
		return false
	}
	return true
}
