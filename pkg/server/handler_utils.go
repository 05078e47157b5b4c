package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/glosahq/glosa/pkg/models"
)

// APIError represents an error response.
type APIError struct {
	Message string `json:"message"`
}

var validate = validator.New()

// encodeJSON encodes data into JSON and writes it to the response writer.
func encodeJSON(w http.ResponseWriter, data interface{}) error {
	return json.NewEncoder(w).Encode(data)
}

// decodeJSON decodes a JSON request body into the provided data struct.
func decodeJSON(r *http.Request, data interface{}) error {
	return json.NewDecoder(r.Body).Decode(&data)
}

// decodeAndValidateJSON decodes the request body and validates the result.
func decodeAndValidateJSON(r *http.Request, data interface{}) error {
	if err := decodeJSON(r, data); err != nil {
		return models.NewValidationError("invalid request body: " + err.Error())
	}
	if err := validate.Struct(data); err != nil {
		return models.NewValidationError(err.Error())
	}
	return nil
}

// renderError maps domain errors to HTTP statuses and writes the response.
func renderError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.Error(err)
	}
	http.Error(w, err.Error(), status)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrLockAcquisitionFailed):
		return http.StatusTooManyRequests
	case errors.Is(err, models.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// parseUUIDFromURL parses a UUID from a URL parameter. If the UUID is invalid,
// an error is rendered and uuid.Nil is returned.
func parseUUIDFromURL(r *http.Request, w http.ResponseWriter, paramName string) uuid.UUID {
	uuidStr := chi.URLParam(r, paramName)
	parsed, err := uuid.Parse(uuidStr)
	if err != nil {
		renderError(
			w,
			models.NewValidationError(fmt.Sprintf("unable to parse %s: %v", paramName, err)),
		)
		return uuid.Nil
	}
	return parsed
}

// parseIDFromURL parses an int64 annotation id from a URL parameter. If the
// id is invalid, an error is rendered and -1 is returned.
func parseIDFromURL(r *http.Request, w http.ResponseWriter, paramName string) int64 {
	idStr := chi.URLParam(r, paramName)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		renderError(
			w,
			models.NewValidationError(fmt.Sprintf("unable to parse %s: %v", paramName, err)),
		)
		return -1
	}
	return id
}

// userIDFromRequest returns the acting user's id. Authentication happens
// upstream; the gateway forwards the authenticated principal in this header.
func userIDFromRequest(r *http.Request, w http.ResponseWriter) string {
	userID := r.Header.Get(UserIDHeader)
	if userID == "" {
		renderError(w, models.NewValidationError(UserIDHeader+" header is required"))
		return ""
	}
	return userID
}
