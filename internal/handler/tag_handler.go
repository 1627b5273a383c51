package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/pantrylabs/pantry/internal/auth"
	"github.com/pantrylabs/pantry/internal/service"
)

// TagHandler handles the caller-scoped tag vocabulary.
type TagHandler struct {
	tags   *service.TagService
	logger zerolog.Logger
}

// NewTagHandler creates a new TagHandler.
func NewTagHandler(tags *service.TagService, logger zerolog.Logger) *TagHandler {
	return &TagHandler{
		tags:   tags,
		logger: logger.With().Str("handler", "tag").Logger(),
	}
}

// RegisterRoutes registers tag routes under /api/tags.
func (h *TagHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Patch("/{id}", h.handlePatch)
	r.Delete("/{id}", h.handleDelete)
}

func (h *TagHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}

	assignedOnly := r.URL.Query().Get("assigned_only") == "1"
	tags, err := h.tags.List(r.Context(), ac.Identity.UserID, assignedOnly)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	items := make([]nameRef, 0, len(tags))
	for _, tag := range tags {
		items = append(items, nameRef{ID: tag.ID, Name: tag.Name})
	}
	writeJSON(w, http.StatusOK, items)
}

type nameRequest struct {
	Name string `json:"name"`
}

func (h *TagHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tag, err := h.tags.Create(r.Context(), ac.Identity.UserID, req.Name)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, nameRef{ID: tag.ID, Name: tag.Name})
}

func (h *TagHandler) handlePatch(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "not found")
		return
	}

	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tag, err := h.tags.Update(r.Context(), ac.Identity.UserID, id, req.Name)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, nameRef{ID: tag.ID, Name: tag.Name})
}

func (h *TagHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "not found")
		return
	}

	if err := h.tags.Delete(r.Context(), ac.Identity.UserID, id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
