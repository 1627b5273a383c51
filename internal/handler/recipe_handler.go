package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pantrylabs/pantry/internal/auth"
	"github.com/pantrylabs/pantry/internal/domain"
	"github.com/pantrylabs/pantry/internal/service"
)

// mediaURLPrefix is where stored image keys are exposed over HTTP.
const mediaURLPrefix = "/media/"

// RecipeHandler handles the caller-scoped recipe collection.
type RecipeHandler struct {
	recipes       *service.RecipeService
	maxUploadSize int64
	logger        zerolog.Logger
}

// NewRecipeHandler creates a new RecipeHandler.
func NewRecipeHandler(recipes *service.RecipeService, maxUploadSize int64, logger zerolog.Logger) *RecipeHandler {
	return &RecipeHandler{
		recipes:       recipes,
		maxUploadSize: maxUploadSize,
		logger:        logger.With().Str("handler", "recipe").Logger(),
	}
}

// RegisterRoutes registers recipe routes under /api/recipes.
func (h *RecipeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Patch("/{id}", h.handlePatch)
	r.Put("/{id}", h.handlePut)
	r.Delete("/{id}", h.handleDelete)
	r.Post("/{id}/upload-image", h.handleUploadImage)
}

// nameRef is the nested tag/ingredient shape on the wire.
type nameRef struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// recipeListItem is the summary shape used in listings.
type recipeListItem struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	TimeMinutes int             `json:"time_minutes"`
	Price       decimal.Decimal `json:"price"`
	Link        string          `json:"link"`
	Tags        []nameRef       `json:"tags"`
	Ingredients []nameRef       `json:"ingredients"`
}

// recipeDetail adds the fields only the detail view exposes.
type recipeDetail struct {
	recipeListItem
	Description string `json:"description"`
	Image       string `json:"image"`
}

func toNameRefs(tags []*domain.Tag, ingredients []*domain.Ingredient) ([]nameRef, []nameRef) {
	t := make([]nameRef, 0, len(tags))
	for _, tag := range tags {
		t = append(t, nameRef{ID: tag.ID, Name: tag.Name})
	}
	in := make([]nameRef, 0, len(ingredients))
	for _, ingredient := range ingredients {
		in = append(in, nameRef{ID: ingredient.ID, Name: ingredient.Name})
	}
	return t, in
}

func toListItem(r *domain.Recipe) recipeListItem {
	tags, ingredients := toNameRefs(r.Tags, r.Ingredients)
	return recipeListItem{
		ID:          r.ID,
		Title:       r.Title,
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price,
		Link:        r.Link,
		Tags:        tags,
		Ingredients: ingredients,
	}
}

func toDetail(r *domain.Recipe) recipeDetail {
	d := recipeDetail{
		recipeListItem: toListItem(r),
		Description:    r.Description,
	}
	if r.ImagePath != "" {
		d.Image = mediaURLPrefix + r.ImagePath
	}
	return d
}

// parseIDList parses a comma-separated ID list query value.
func parseIDList(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (h *RecipeHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}

	tagIDs, err := parseIDList(r.URL.Query().Get("tags"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "tags must be a comma-separated list of IDs")
		return
	}
	ingredientIDs, err := parseIDList(r.URL.Query().Get("ingredients"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "ingredients must be a comma-separated list of IDs")
		return
	}

	recipes, err := h.recipes.List(r.Context(), service.ListRecipesInput{
		UserID:        ac.Identity.UserID,
		TagIDs:        tagIDs,
		IngredientIDs: ingredientIDs,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	items := make([]recipeListItem, 0, len(recipes))
	for _, recipe := range recipes {
		items = append(items, toListItem(recipe))
	}
	writeJSON(w, http.StatusOK, items)
}

type createRecipeRequest struct {
	Title       string           `json:"title"`
	TimeMinutes int              `json:"time_minutes"`
	Price       decimal.Decimal  `json:"price"`
	Description string           `json:"description"`
	Link        string           `json:"link"`
	Tags        []nameRef        `json:"tags"`
	Ingredients []nameRef        `json:"ingredients"`
}

func names(refs []nameRef) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.Name)
	}
	return out
}

func (h *RecipeHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req createRecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	recipe, err := h.recipes.Create(r.Context(), service.CreateRecipeInput{
		UserID:      ac.Identity.UserID,
		Title:       req.Title,
		TimeMinutes: req.TimeMinutes,
		Price:       req.Price,
		Description: req.Description,
		Link:        req.Link,
		Tags:        names(req.Tags),
		Ingredients: names(req.Ingredients),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toDetail(recipe))
}

// recipeID pulls the {id} URL parameter.
func recipeID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (h *RecipeHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, ok := recipeID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "not found")
		return
	}

	recipe, err := h.recipes.Get(r.Context(), ac.Identity.UserID, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetail(recipe))
}

type updateRecipeRequest struct {
	Title       *string          `json:"title"`
	TimeMinutes *int             `json:"time_minutes"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
	Link        *string          `json:"link"`
	Tags        *[]nameRef       `json:"tags"`
	Ingredients *[]nameRef       `json:"ingredients"`
}

func (h *RecipeHandler) update(w http.ResponseWriter, r *http.Request, full bool) {
	ac, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, ok := recipeID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "not found")
		return
	}

	var req updateRecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if full {
		verr := service.NewValidationError()
		if req.Title == nil {
			verr.Add("title", "this field is required")
		}
		if req.TimeMinutes == nil {
			verr.Add("time_minutes", "this field is required")
		}
		if req.Price == nil {
			verr.Add("price", "this field is required")
		}
		if verr.HasErrors() {
			writeValidationError(w, verr)
			return
		}
	}

	input := service.UpdateRecipeInput{
		UserID:      ac.Identity.UserID,
		ID:          id,
		Title:       req.Title,
		TimeMinutes: req.TimeMinutes,
		Price:       req.Price,
		Description: req.Description,
		Link:        req.Link,
	}
	if req.Tags != nil {
		tagNames := names(*req.Tags)
		input.Tags = &tagNames
	}
	if req.Ingredients != nil {
		ingredientNames := names(*req.Ingredients)
		input.Ingredients = &ingredientNames
	}

	recipe, err := h.recipes.Update(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetail(recipe))
}

func (h *RecipeHandler) handlePatch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

func (h *RecipeHandler) handlePut(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *RecipeHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, ok := recipeID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "not found")
		return
	}

	if err := h.recipes.Delete(r.Context(), ac.Identity.UserID, id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecipeHandler) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, ok := recipeID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	file, header, err := r.FormFile("image")
	if err != nil {
		verr := service.NewValidationError()
		verr.Add("image", "no image provided")
		writeValidationError(w, verr)
		return
	}
	defer file.Close()

	recipe, err := h.recipes.UploadImage(r.Context(), ac.Identity.UserID, id, header.Filename, file)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		ID    int64  `json:"id"`
		Image string `json:"image"`
	}{ID: recipe.ID, Image: mediaURLPrefix + recipe.ImagePath})
}

// ServeMedia streams a stored image blob. Mounted at GET /media/*.
func (h *RecipeHandler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	rc, err := h.recipes.OpenImage(r.Context(), key)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "not found")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentTypeForKey(key))
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn().Err(err).Str("key", key).Msg("failed to stream media")
	}
}

func contentTypeForKey(key string) string {
	switch {
	case strings.HasSuffix(key, ".png"):
		return "image/png"
	case strings.HasSuffix(key, ".gif"):
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
