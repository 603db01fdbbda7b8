package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type recommendationsRequest struct {
	UserID       string `json:"userId" validate:"required,collectionid"`
	PreferShared *bool  `json:"preferShared,omitempty"`
}

func (h *Handler) HandleGenerateRecommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendationsRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	set, err := h.analysis.GenerateRecommendations(r.Context(), req.UserID, lookupFor(req.PreferShared, h.recsLookup))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "recommendations": set})
}

func (h *Handler) HandleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	set, err := h.analysis.Recommendations(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"recommendations": set})
}
