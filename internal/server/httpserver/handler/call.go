package handler

import (
	"net/http"

	"github.com/pqcall/pqcall-go/internal/core/service"
)

// HandleInitiateCall handles POST /calls.
func (h *Handler) HandleInitiateCall(w http.ResponseWriter, r *http.Request) {
	var req service.InitiateCallRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	resp, err := h.calls.InitiateCall(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, resp)
}

// HandleGetCall handles GET /calls/{id}.
func (h *Handler) HandleGetCall(w http.ResponseWriter, r *http.Request) {
	session, err := h.calls.GetCallSession(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, newCallSessionResponse(session))
}

// HandleUpdateCallStatus handles POST /calls/{id}/status.
func (h *Handler) HandleUpdateCallStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateCallStatusRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if !req.Status.IsValid() {
		h.writeError(w, r, http.StatusBadRequest, "PQ-ARG-1001", "unknown call status")
		return
	}

	sessionID := r.PathValue("id")
	updated, err := h.calls.UpdateCallStatus(r.Context(), sessionID, req.Status)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if !updated {
		h.writeError(w, r, http.StatusNotFound, "PQ-SESS-4040", "call session not found")
		return
	}

	h.writeJSON(w, r, http.StatusOK, UpdateCallStatusResponse{
		Updated: true,
		Status:  req.Status,
	})
}

// HandleTerminateCall handles POST /calls/{id}/terminate.
func (h *Handler) HandleTerminateCall(w http.ResponseWriter, r *http.Request) {
	session, err := h.calls.TerminateCall(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, newCallSessionResponse(session))
}

// HandleStats handles GET /stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.calls.Stats())
}
