package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/inkpress/inkpress/content"
	"github.com/inkpress/inkpress/store"
)

// Handlers serves the content API over the service layer
type Handlers struct {
	service *content.Service
}

// NewHandlers creates a Handlers instance
func NewHandlers(service *content.Service) *Handlers {
	return &Handlers{service: service}
}

type createRequest struct {
	OwnerID string `json:"owner_id"`
	Title   string `json:"title"`
	Body    string `json:"body"`
}

type updateRequest struct {
	ExpectedVersion int64   `json:"expected_version"`
	Title           *string `json:"title"`
	Body            *string `json:"body"`
	Publish         bool    `json:"publish"`
}

type overrideViewsRequest struct {
	ExpectedVersion int64 `json:"expected_version"`
	ViewCount       int64 `json:"view_count"`
}

// handleGetPost returns one record with its live counters merged in.
// Reading a post counts as a view unless the dedup filter saw the same
// viewer recently.
func (h *Handlers) handleGetPost(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "id")

	display, err := h.service.ReadRecordForDisplay(r.Context(), recordID, viewerID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, display)
}

// handleListPosts returns a listing page filtered by query parameters
func (h *Handlers) handleListPosts(w http.ResponseWriter, r *http.Request) {
	filters := store.ListFilters{
		OwnerID: r.URL.Query().Get("owner"),
		Status:  store.Status(r.URL.Query().Get("status")),
		Search:  r.URL.Query().Get("search"),
	}

	page, err := parsePage(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.ListRecords(r.Context(), filters, page)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, result)
}

// handleCreatePost creates a draft record
func (h *Handlers) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.OwnerID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "owner_id is required")
		return
	}
	if req.Title == "" {
		writeErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}

	rec, err := h.service.CreateRecord(r.Context(), req.OwnerID, req.Title, req.Body)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": rec}); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// handleUpdatePost edits a record under optimistic locking. A stale
// expected_version yields 409 with the current version so the caller can
// refresh and retry.
func (h *Handlers) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "id")

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ExpectedVersion < 1 {
		writeErrorResponse(w, http.StatusBadRequest, "expected_version is required")
		return
	}

	rec, err := h.service.MutateRecord(r.Context(), recordID, req.ExpectedVersion, content.UpdateRequest{
		Title:   req.Title,
		Body:    req.Body,
		Publish: req.Publish,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, rec)
}

// handleDeletePost tombstones a record under optimistic locking
func (h *Handlers) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "id")

	expectedVersion, err := strconv.ParseInt(r.URL.Query().Get("expected_version"), 10, 64)
	if err != nil || expectedVersion < 1 {
		writeErrorResponse(w, http.StatusBadRequest, "expected_version query parameter is required")
		return
	}

	if err := h.service.DeleteRecord(r.Context(), recordID, expectedVersion); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleToggleLike flips the viewer's like on a record
func (h *Handlers) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "id")

	viewer := viewerID(r)
	if viewer == "" {
		writeErrorResponse(w, http.StatusBadRequest, "viewer identity is required")
		return
	}

	liked, err := h.service.ToggleLike(r.Context(), recordID, viewer)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, map[string]interface{}{"liked": liked})
}

// handleOverrideViews is an operator correction of the durable view count
func (h *Handlers) handleOverrideViews(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "id")

	var req overrideViewsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ExpectedVersion < 1 {
		writeErrorResponse(w, http.StatusBadRequest, "expected_version is required")
		return
	}
	if req.ViewCount < 0 {
		writeErrorResponse(w, http.StatusBadRequest, "view_count must be non-negative")
		return
	}

	rec, err := h.service.OverrideViewCount(r.Context(), recordID, req.ExpectedVersion, req.ViewCount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, rec)
}

// handleHealth reports liveness
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, map[string]interface{}{"status": "ok"})
}

// viewerID extracts the viewer identity from the request. Anonymous
// requests still count views, they just bypass deduplication.
func viewerID(r *http.Request) string {
	if v := r.Header.Get("X-Viewer-ID"); v != "" {
		return v
	}
	return r.URL.Query().Get("viewer")
}

// parsePage parses pagination query parameters with defaults
func parsePage(r *http.Request) (store.Page, error) {
	page := store.Page{Number: 1, Size: 20}

	if s := r.URL.Query().Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return page, errors.New("page must be a positive integer")
		}
		page.Number = n
	}

	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return page, errors.New("size must be a positive integer")
		}
		if n > 100 {
			return page, errors.New("size cannot exceed 100")
		}
		page.Size = n
	}

	return page, nil
}

// writeServiceError maps service-layer errors to HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	var notFound *content.NotFoundError
	var conflict *content.ConflictError
	var exhausted *content.SlugExhaustionError
	var transient *store.TransientError

	switch {
	case errors.As(err, &notFound):
		writeErrorResponse(w, http.StatusNotFound, err.Error())
	case errors.As(err, &conflict):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		response := map[string]interface{}{
			"error":            err.Error(),
			"expected_version": conflict.ExpectedVersion,
			"current_version":  conflict.CurrentVersion,
		}
		if err := json.NewEncoder(w).Encode(response); err != nil {
			log.Error().Err(err).Msg("Failed to encode error response")
		}
	case errors.As(err, &exhausted):
		writeErrorResponse(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &transient):
		writeErrorResponse(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error().Err(err).Msg("Unhandled service error")
		writeErrorResponse(w, http.StatusInternalServerError, "internal error")
	}
}

// writeJSONResponse writes a successful JSON response
func writeJSONResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": data}); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error JSON response
func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"error": message}); err != nil {
		log.Error().Err(err).Msg("Failed to encode error response")
	}
}
