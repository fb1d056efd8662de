package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tuannvm/viwoods-obsidian/internal/apperr"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func bookParam(r *http.Request) string {
	raw := chi.URLParam(r, "book")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListBooks handles GET /api/books.
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.ListBooks(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": books, "total": len(books)})
}

// GetManifest handles GET /api/books/{book}/manifest.
func (h *Handler) GetManifest(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.GetManifest(r.Context(), bookParam(r))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("book not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ListRuns handles GET /api/books/{book}/runs.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.svc.ListRuns(r.Context(), bookParam(r), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "total": len(runs)})
}

type importRequest struct {
	File string `json:"file"`
}

// Import handles POST /api/import: run the pipeline for one source file.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.File == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("body must be {\"file\": \"<name>\"}"))
		return
	}
	summary, err := h.svc.ImportFile(r.Context(), req.File)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrImportInProgress):
			writeJSON(w, http.StatusConflict, errorBody(err.Error()))
		case errors.Is(err, apperr.ErrCorruptContainer), errors.Is(err, apperr.ErrUnsupportedFormat):
			writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
		default:
			writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Scan handles POST /api/scan: manual scan-now.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	changes, err := h.svc.ScanNow(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": changes, "total": len(changes)})
}

// ImportPending handles POST /api/scan/import: consume the pending set.
func (h *Handler) ImportPending(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ImportPending(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.SyncStatus(r.Context()))
}

// Status handles GET /api/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.SyncStatus(r.Context()))
}
