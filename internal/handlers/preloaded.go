package handlers

import (
	"net/http"

	"github.com/readingdna/readingdna/internal/search"
	"github.com/readingdna/readingdna/internal/storage"
	"github.com/readingdna/readingdna/internal/validation"
)

func (h *Handler) HandlePreloadedBooks(w http.ResponseWriter, r *http.Request) {
	c, err := h.analysis.Books(r.Context(), storage.SharedID, storage.PerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) HandlePreloadedProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.analysis.Profile(r.Context(), storage.SharedID, storage.PerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) HandlePreloadedConnections(w http.ResponseWriter, r *http.Request) {
	graph, err := h.analysis.Connections(r.Context(), storage.SharedID, storage.PerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, graph)
}

// HandleSearch serves autocomplete: q is the query, field is title or
// author, userId optionally scopes a local search to that collection
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	field, err := search.ParseField(params.Get("field"))
	if err != nil {
		h.writeError(w, r, &validation.Error{Fields: map[string]string{"field": "must be one of: title author"}})
		return
	}

	results, err := h.search.Search(r.Context(), search.Query{
		Text:         params.Get("q"),
		Field:        field,
		CollectionID: params.Get("userId"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, results)
}
