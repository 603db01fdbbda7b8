package handlers

import (
	"net/http"

	"github.com/readingdna/readingdna/internal/storage"
)

type evaluateRequest struct {
	UserID       string `json:"userId" validate:"required,collectionid"`
	BookTitle    string `json:"bookTitle" validate:"required,max=500"`
	BookAuthor   string `json:"bookAuthor,omitempty" validate:"max=500"`
	PreferShared *bool  `json:"preferShared,omitempty"`
}

// HandleEvaluate reads the caller's own collection and profile unless the
// request sets preferShared
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	eval, err := h.analysis.Evaluate(r.Context(), req.UserID, req.BookTitle, req.BookAuthor, lookupFor(req.PreferShared, storage.PerID))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "evaluation": eval})
}
