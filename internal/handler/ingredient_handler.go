package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/pantrylabs/pantry/internal/auth"
	"github.com/pantrylabs/pantry/internal/service"
)

// IngredientHandler handles the caller-scoped ingredient vocabulary.
type IngredientHandler struct {
	ingredients *service.IngredientService
	logger      zerolog.Logger
}

// NewIngredientHandler creates a new IngredientHandler.
func NewIngredientHandler(ingredients *service.IngredientService, logger zerolog.Logger) *IngredientHandler {
	return &IngredientHandler{
		ingredients: ingredients,
		logger:      logger.With().Str("handler", "ingredient").Logger(),
	}
}

// RegisterRoutes registers ingredient routes under /api/ingredients.
func (h *IngredientHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Patch("/{id}", h.handlePatch)
	r.Delete("/{id}", h.handleDelete)
}

func (h *IngredientHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}

	assignedOnly := r.URL.Query().Get("assigned_only") == "1"
	ingredients, err := h.ingredients.List(r.Context(), ac.Identity.UserID, assignedOnly)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	items := make([]nameRef, 0, len(ingredients))
	for _, ingredient := range ingredients {
		items = append(items, nameRef{ID: ingredient.ID, Name: ingredient.Name})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *IngredientHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
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

	ingredient, err := h.ingredients.Create(r.Context(), ac.Identity.UserID, req.Name)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, nameRef{ID: ingredient.ID, Name: ingredient.Name})
}

func (h *IngredientHandler) handlePatch(w http.ResponseWriter, r *http.Request) {
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

	ingredient, err := h.ingredients.Update(r.Context(), ac.Identity.UserID, id, req.Name)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, nameRef{ID: ingredient.ID, Name: ingredient.Name})
}

func (h *IngredientHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.ingredients.Delete(r.Context(), ac.Identity.UserID, id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
