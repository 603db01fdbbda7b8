package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/readingdna/readingdna/internal/analysis"
	"github.com/readingdna/readingdna/internal/generation"
	"github.com/readingdna/readingdna/internal/ingest"
	"github.com/readingdna/readingdna/internal/ratelimit"
	"github.com/readingdna/readingdna/internal/search"
	"github.com/readingdna/readingdna/internal/storage"
	"github.com/readingdna/readingdna/internal/validation"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// Options carries the collaborators and settings of a Handler. Limiter may
// be nil to disable rate limiting; StaticDir may be empty to serve no UI.
type Options struct {
	Pipeline    *ingest.Pipeline
	Analysis    *analysis.Service
	Search      *search.Index
	Limiter     *ratelimit.Limiter
	UploadDir   string
	MaxUpload   int64
	CORSOrigins []string
	StaticDir   string
	// RecommendationsPreferShared is the default lookup for recommendation
	// requests that do not set preferShared
	RecommendationsPreferShared bool
}

type Handler struct {
	pipeline    *ingest.Pipeline
	analysis    *analysis.Service
	search      *search.Index
	limiter     *ratelimit.Limiter
	validator   *validation.Validator
	uploadDir   string
	maxUpload   int64
	corsOrigins []string
	staticDir   string
	recsLookup  storage.Lookup
}

func New(opts Options) *Handler {
	h := &Handler{
		pipeline:    opts.Pipeline,
		analysis:    opts.Analysis,
		search:      opts.Search,
		limiter:     opts.Limiter,
		validator:   validation.New(),
		uploadDir:   opts.UploadDir,
		maxUpload:   opts.MaxUpload,
		corsOrigins: opts.CORSOrigins,
		staticDir:   opts.StaticDir,
		recsLookup:  storage.PerID,
	}
	if opts.RecommendationsPreferShared {
		h.recsLookup = storage.PreferShared
	}
	if h.maxUpload <= 0 {
		h.maxUpload = 10 << 20
	}
	return h
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	// Reason is the ingestion reason or generation stage
	Reason string            `json:"reason,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

// writeError maps err onto a status and error kind
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)

	var limited *ratelimit.Error
	if errors.As(err, &limited) && limited.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(limited.RetryAfter.Seconds())+1))
	}

	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "path", r.URL.Path, "status", status, "err", err)
	} else {
		slog.Warn("Request rejected", "path", r.URL.Path, "status", status, "kind", body.Kind, "err", err)
	}
	h.writeJSON(w, status, body)
}

func classify(err error) (int, errorResponse) {
	var (
		ingestErr   *ingest.Error
		genErr      *generation.Error
		validErr    *validation.Error
		maxBytesErr *http.MaxBytesError
	)

	switch {
	case errors.As(err, &validErr):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "validation", Fields: validErr.Fields}
	case errors.Is(err, storage.ErrInvalidID):
		return http.StatusBadRequest, errorResponse{Error: "Invalid user ID", Kind: "validation"}
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, errorResponse{
			Error: "File too large (max " + strconv.FormatInt(maxBytesErr.Limit>>20, 10) + "MB)",
			Kind:  "validation",
		}
	case errors.As(err, &ingestErr):
		if ingestErr.Reason == ingest.ReasonNoFile {
			return http.StatusBadRequest, errorResponse{Error: "No file uploaded", Kind: "validation", Reason: string(ingestErr.Reason)}
		}
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: "ingestion", Reason: string(ingestErr.Reason)}
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: notFoundMessage(err), Kind: "not-found"}
	case errors.As(err, &genErr):
		return http.StatusBadGateway, errorResponse{Error: err.Error(), Kind: "generation", Reason: string(genErr.Stage)}
	case errors.Is(err, ratelimit.ErrLimited):
		return http.StatusTooManyRequests, errorResponse{Error: err.Error(), Kind: "rate-limited"}
	case errors.Is(err, storage.ErrInFlight):
		return http.StatusConflict, errorResponse{Error: err.Error(), Kind: "in-flight"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "Internal server error", Kind: "internal"}
	}
}

func notFoundMessage(err error) string {
	var nf *storage.NotFoundError
	if errors.As(err, &nf) {
		switch nf.Kind {
		case storage.KindBooks:
			return "User data not found"
		case storage.KindProfile:
			return "Reading DNA not found. Please generate it first."
		case storage.KindConnections:
			return "Book connections not found. Please generate them first."
		case storage.KindRecommendations:
			return "Recommendations not found. Please generate them first."
		}
	}
	return "Not found"
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return &validation.Error{Fields: map[string]string{"body": "must be valid JSON"}}
	}
	return h.validator.Validate(dst)
}

// lookupFor resolves an optional preferShared request field
func lookupFor(preferShared *bool, fallback storage.Lookup) storage.Lookup {
	if preferShared == nil {
		return fallback
	}
	if *preferShared {
		return storage.PreferShared
	}
	return storage.PerID
}
