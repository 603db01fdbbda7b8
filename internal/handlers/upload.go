package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/readingdna/readingdna/internal/ingest"
	"github.com/readingdna/readingdna/internal/models"
	"github.com/readingdna/readingdna/internal/storage"
	"github.com/readingdna/readingdna/internal/validation"
)

// multipartOverhead is allowed on top of the file size for part headers
// and boundaries
const multipartOverhead = 64 << 10

// HandleUpload streams the "file" part of a multipart body to a temporary
// file and ingests it in the dialect named by the path
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	format, err := models.ParseSourceFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.writeError(w, r, &validation.Error{Fields: map[string]string{"format": "must be one of: goodreads storygraph"}})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	path, err := h.spoolUpload(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.pipeline.IngestFile(r.Context(), path, format)
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			slog.Warn("Failed to remove upload", "path", path, "err", rmErr)
		}
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"userId":    res.UserID,
		"bookCount": res.BookCount,
		"message":   "Books imported successfully",
	})
}

// spoolUpload copies the file part to the upload directory without holding
// it in memory
func (h *Handler) spoolUpload(r *http.Request) (string, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return "", &ingest.Error{Reason: ingest.ReasonNoFile, Err: err}
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return "", &ingest.Error{Reason: ingest.ReasonNoFile}
		}
		if err != nil {
			return "", err
		}
		if part.FormName() != "file" || part.FileName() == "" {
			part.Close()
			continue
		}

		if err := ingest.CheckUpload(part.FileName(), part.Header.Get("Content-Type")); err != nil {
			part.Close()
			return "", err
		}
		path, err := h.writeUpload(part)
		part.Close()
		return path, err
	}
}

func (h *Handler) writeUpload(src io.Reader) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}

	path := filepath.Join(h.uploadDir, uuid.New().String()+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(src, h.maxUpload+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n > h.maxUpload {
		err = &http.MaxBytesError{Limit: h.maxUpload}
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}

	slog.Debug("Upload spooled", "path", path, "bytes", n)
	return path, nil
}

// HandleUserBooks returns the books of an ingested collection
func (h *Handler) HandleUserBooks(w http.ResponseWriter, r *http.Request) {
	c, err := h.analysis.Books(r.Context(), chi.URLParam(r, "userId"), storage.PerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"books": c.Books})
}
