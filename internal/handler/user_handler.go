package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/pantrylabs/pantry/internal/auth"
	"github.com/pantrylabs/pantry/internal/service"
)

// UserHandler handles account registration, token issuing, and the
// caller's own profile.
type UserHandler struct {
	users  *service.UserService
	tokens *service.TokenService
	logger zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.UserService, tokens *service.TokenService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		tokens: tokens,
		logger: logger.With().Str("handler", "user").Logger(),
	}
}

// RegisterRoutes registers user routes under /api/user.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Post("/create", h.handleCreate)
	r.Post("/token", h.handleToken)
	r.Get("/me", h.handleMe)
	r.Patch("/me", h.handlePatchMe)
	r.Put("/me", h.handlePutMe)
}

// userResponse is the profile shape returned by the user endpoints.
// The password never appears in any response.
type userResponse struct {
	ID    int64  `json:"id,omitempty"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *UserHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	})
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *UserHandler) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.tokens.Issue(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *UserHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}

	user, err := h.users.GetByID(r.Context(), ac.Identity.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Email: user.Email, Name: user.Name})
}

type updateMeRequest struct {
	Email    *string `json:"email"`
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

func (h *UserHandler) handlePatchMe(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req updateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), service.UpdateProfileInput{
		UserID:   ac.Identity.UserID,
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Email: user.Email, Name: user.Name})
}

// handlePutMe is the full-update variant: every writable field must be
// present.
func (h *UserHandler) handlePutMe(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req updateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	verr := service.NewValidationError()
	if req.Email == nil {
		verr.Add("email", "this field is required")
	}
	if req.Name == nil {
		verr.Add("name", "this field is required")
	}
	if req.Password == nil {
		verr.Add("password", "this field is required")
	}
	if verr.HasErrors() {
		writeValidationError(w, verr)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), service.UpdateProfileInput{
		UserID:   ac.Identity.UserID,
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Email: user.Email, Name: user.Name})
}
