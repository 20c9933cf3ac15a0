package handler

import (
	"errors"
	"net/http"

	"github.com/pqcall/pqcall-go/internal/core/domain"
)

// HandleGenerateToken handles POST /tokens.
func (h *Handler) HandleGenerateToken(w http.ResponseWriter, r *http.Request) {
	var req GenerateTokenRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		h.writeError(w, r, http.StatusBadRequest, "PQ-ARG-1002", "user_id is required")
		return
	}

	tok, meta, err := h.tokens.Generate(r.Context(), req.UserID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, GenerateTokenResponse{
		QRPayload: tok.FormatQR(),
		ExpiresAt: meta.ExpiresAt,
	})
}

// HandleValidateToken handles POST /tokens/validate. Validation failures
// are reported in-band with Valid=false rather than as HTTP errors, and
// the response never names the owning user.
func (h *Handler) HandleValidateToken(w http.ResponseWriter, r *http.Request) {
	var req ValidateTokenRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.QRPayload == "" {
		h.writeError(w, r, http.StatusBadRequest, "PQ-ARG-1002", "qr_payload is required")
		return
	}

	if _, err := h.tokens.Resolve(r.Context(), req.QRPayload); err != nil {
		if errors.Is(err, domain.ErrStorageError) {
			h.handleServiceError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusOK, ValidateTokenResponse{
			Valid:   false,
			Message: err.Error(),
		})
		return
	}

	h.writeJSON(w, r, http.StatusOK, ValidateTokenResponse{Valid: true})
}

// HandleRevokeToken handles POST /tokens/revoke.
func (h *Handler) HandleRevokeToken(w http.ResponseWriter, r *http.Request) {
	var req RevokeTokenRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.QRPayload == "" {
		h.writeError(w, r, http.StatusBadRequest, "PQ-ARG-1002", "qr_payload is required")
		return
	}

	revoked, err := h.tokens.Revoke(r.Context(), req.QRPayload, req.Reason)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, RevokeTokenResponse{Revoked: revoked})
}

// HandleRevokeUserTokens handles POST /users/{user_id}/tokens/revoke.
func (h *Handler) HandleRevokeUserTokens(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if userID == "" {
		h.writeError(w, r, http.StatusBadRequest, "PQ-ARG-1002", "user_id is required")
		return
	}

	// Body is optional here; only the reason is read from it.
	var req RevokeTokenRequest
	if r.ContentLength > 0 && !h.decodeBody(w, r, &req) {
		return
	}

	count, err := h.tokens.RevokeAllUserTokens(r.Context(), userID, req.Reason)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, RevokeUserTokensResponse{RevokedCount: count})
}
