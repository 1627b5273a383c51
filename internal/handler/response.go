// Package handler provides HTTP handlers for the Pantry API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pantrylabs/pantry/internal/service"
)

// detailResponse is the body for 401/403/404/405 responses.
type detailResponse struct {
	Detail string `json:"detail"`
}

// validationResponse is the body for 400 validation failures:
// a map of field name to messages.
type validationResponse struct {
	Errors map[string][]string `json:"errors"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeDetail writes a JSON body of the form {"detail": "..."}.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

// writeValidationError writes the 400 field-error envelope.
func writeValidationError(w http.ResponseWriter, verr *service.ValidationError) {
	writeJSON(w, http.StatusBadRequest, validationResponse{Errors: verr.Fields})
}

// writeServiceError maps a service error onto an HTTP response.
// Cross-owner access has already been collapsed into not-found
// sentinels by the service layer, so no ownership detail leaks here.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		writeValidationError(w, verr)
		return
	}

	switch {
	case errors.Is(err, service.ErrRecipeNotFound),
		errors.Is(err, service.ErrTagNotFound),
		errors.Is(err, service.ErrIngredientNotFound),
		errors.Is(err, service.ErrUserNotFound):
		writeDetail(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrNotAnImage):
		verr := service.NewValidationError()
		verr.Add("image", "upload a valid image")
		writeValidationError(w, verr)
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUserInactive):
		verr := service.NewValidationError()
		verr.Add("non_field_errors", "unable to authenticate with provided credentials")
		writeValidationError(w, verr)
	default:
		logger.Error().Err(err).Msg("request failed")
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON decodes a request body into dst, rejecting bodies that are
// not valid JSON.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}

// writeMethodNotAllowed writes the 405 response used across the API.
func writeMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeDetail(w, http.StatusMethodNotAllowed, `method "`+r.Method+`" not allowed`)
}
