package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// HandleStatic serves a built client from the static directory. Unknown
// paths fall back to index.html so client-side routes resolve.
func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")

	// Prevent directory traversal attacks
	if strings.Contains(path, "..") {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	if path == "" {
		path = "index.html"
	}

	fullPath := filepath.Join(h.staticDir, filepath.FromSlash(path))
	if info, err := os.Stat(fullPath); err != nil || info.IsDir() {
		fullPath = filepath.Join(h.staticDir, "index.html")
	}

	http.ServeFile(w, r, fullPath)
}
