package handler

import (
	"errors"
	"net/http"

	"github.com/pqcall/pqcall-go/internal/core/domain"
)

// HandleCreateSignal handles POST /calls/{id}/signal.
func (h *Handler) HandleCreateSignal(w http.ResponseWriter, r *http.Request) {
	var req CreateSignalRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if !req.Type.IsValid() {
		h.writeError(w, r, http.StatusBadRequest, "PQ-ARG-1001", "unknown message type")
		return
	}

	msg, err := h.signaling.CreateMessage(r.PathValue("id"), req.Type, req.Payload, req.Encrypt)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, msg)
}

// HandleValidateSignal handles POST /calls/{id}/signal/validate.
// Rejections that are part of normal protocol operation (stale, replay,
// integrity, decryption) are reported in-band with Valid=false; only
// malformed requests and unknown channels surface as HTTP errors.
func (h *Handler) HandleValidateSignal(w http.ResponseWriter, r *http.Request) {
	var req ValidateSignalRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Message == nil {
		h.writeError(w, r, http.StatusBadRequest, "PQ-ARG-1002", "message is required")
		return
	}
	if sessionID := r.PathValue("id"); req.Message.SessionID != sessionID {
		h.writeError(w, r, http.StatusBadRequest, "PQ-ARG-1001", "message session mismatch")
		return
	}

	payload, err := h.signaling.ValidateMessage(req.Message)
	if err != nil {
		if errors.Is(err, domain.ErrMessageStale) ||
			errors.Is(err, domain.ErrMessageReplay) ||
			errors.Is(err, domain.ErrMessageIntegrity) ||
			errors.Is(err, domain.ErrMessageDecryption) {
			h.writeJSON(w, r, http.StatusOK, ValidateSignalResponse{Valid: false})
			return
		}
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, ValidateSignalResponse{
		Valid:   true,
		Payload: payload,
	})
}
