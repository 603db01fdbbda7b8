package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/readingdna/readingdna/internal/storage"
)

type userRequest struct {
	UserID string `json:"userId" validate:"required,collectionid"`
}

func (h *Handler) HandleGenerateProfile(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	profile, err := h.analysis.GenerateProfile(r.Context(), req.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "readingDNA": profile})
}

func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.analysis.Profile(r.Context(), chi.URLParam(r, "userId"), storage.PerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"readingDNA": profile})
}

func (h *Handler) HandleGenerateConnections(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	graph, err := h.analysis.GenerateConnections(r.Context(), req.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "connections": graph})
}

func (h *Handler) HandleGetConnections(w http.ResponseWriter, r *http.Request) {
	graph, err := h.analysis.Connections(r.Context(), chi.URLParam(r, "userId"), storage.PerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"connections": graph})
}
