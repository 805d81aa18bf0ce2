package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/paperstack-io/paperstack/internal/api/middlewares"
	"github.com/paperstack-io/paperstack/internal/core"
	"github.com/paperstack-io/paperstack/internal/core/ingest"
	"github.com/paperstack-io/paperstack/internal/models"
	"github.com/paperstack-io/paperstack/internal/services"
)

const maxUploadBytes = 50 << 20

type DocumentHandler struct {
	ingestor ingest.Ingestor
	docs     *services.DocumentService
	log      *zap.Logger
}

func NewDocumentHandler(ingestor ingest.Ingestor, docs *services.DocumentService, log *zap.Logger) *DocumentHandler {
	return &DocumentHandler{ingestor: ingestor, docs: docs, log: log}
}

// Upload accepts a multipart PDF and runs it through the ingestion pipeline.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ident, ok := middlewares.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "unreadable upload", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	doc, err := h.ingestor.Ingest(ctx, payload, header.Filename, ident.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// Search handles GET /documents?q=term. Read-path failures degrade to an
// empty result set with an error flag instead of surfacing a 5xx.
func (h *DocumentHandler) Search(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docs.Search(r.Context(), r.URL.Query().Get("q"))
	h.writeResults(w, docs, err)
}

// Filter handles GET /documents/filter with repeatable facet parameters.
func (h *DocumentHandler) Filter(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.FacetFilter{
		Authors:   splitParam(q["authors"]),
		Keywords:  splitParam(q["keywords"]),
		Journals:  splitParam(q["journals"]),
		Year:      q.Get("year"),
		DateRange: q.Get("range"),
	}
	docs, err := h.docs.Filter(r.Context(), f)
	h.writeResults(w, docs, err)
}

func (h *DocumentHandler) PopularTerms(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	terms, err := h.docs.PopularTerms(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if terms == nil {
		terms = []models.SearchTermCount{}
	}
	writeJSON(w, http.StatusOK, terms)
}

func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	ident, ok := middlewares.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	url, err := h.docs.GetDownloadURL(r.Context(), chi.URLParam(r, "id"), ident)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

type updateRequest struct {
	Title    *string  `json:"title"`
	Authors  []string `json:"authors"`
	Date     *string  `json:"date"`
	Keywords []string `json:"keywords"`
	Journal  *string  `json:"journal"`
	Abstract *string  `json:"abstract"`
}

func (u updateRequest) toModel() models.DocumentUpdate {
	return models.DocumentUpdate{
		Title:    u.Title,
		Authors:  u.Authors,
		Date:     u.Date,
		Keywords: u.Keywords,
		Journal:  u.Journal,
		Abstract: u.Abstract,
	}
}

func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ident, ok := middlewares.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := h.docs.Update(r.Context(), chi.URLParam(r, "id"), ident, req.toModel()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	ident, ok := middlewares.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := h.docs.AdminUpdate(r.Context(), chi.URLParam(r, "id"), ident, req.toModel()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ident, ok := middlewares.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	if err := h.docs.Delete(r.Context(), chi.URLParam(r, "id"), ident); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	ident, ok := middlewares.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	if err := h.docs.AdminDelete(r.Context(), chi.URLParam(r, "id"), ident); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) RequestDeletion(w http.ResponseWriter, r *http.Request) {
	ident, ok := middlewares.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := h.docs.RequestDeletion(r.Context(), chi.URLParam(r, "id"), ident, req.Reason); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *DocumentHandler) ResolveDeletion(w http.ResponseWriter, r *http.Request) {
	ident, ok := middlewares.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	var req struct {
		Approve bool `json:"approve"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := h.docs.ResolveDeletion(r.Context(), chi.URLParam(r, "id"), ident, req.Approve); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type searchResponse struct {
	Documents    []models.Document `json:"documents"`
	SearchFailed bool              `json:"search_failed,omitempty"`
}

// writeResults degrades read-path failures to an empty result set with a
// distinguishable flag rather than throwing into the UI layer.
func (h *DocumentHandler) writeResults(w http.ResponseWriter, docs []models.Document, err error) {
	if err != nil {
		h.log.Error("document query failed", zap.Error(err))
		writeJSON(w, http.StatusOK, searchResponse{Documents: []models.Document{}, SearchFailed: true})
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Documents: docs})
}

// writeError maps the error taxonomy to transport responses without leaking
// internal error text.
func (h *DocumentHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		http.Error(w, "invalid request: only PDF uploads are accepted", http.StatusBadRequest)
	case errors.Is(err, core.ErrExtractionFailed):
		http.Error(w, "could not read document contents", http.StatusUnprocessableEntity)
	case errors.Is(err, core.ErrMetadataFailed):
		http.Error(w, "document analysis failed, please retry", http.StatusBadGateway)
	case errors.Is(err, core.ErrStorageFailed):
		http.Error(w, "storage temporarily unavailable, please retry", http.StatusBadGateway)
	case errors.Is(err, core.ErrNotFound):
		http.Error(w, "document not found", http.StatusNotFound)
	case errors.Is(err, core.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		h.log.Error("unclassified error", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// splitParam accepts both repeated query parameters and comma-separated
// lists inside one parameter.
func splitParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
