package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/moogar0880/problems"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/apperrors"
)

const problemContentType = "application/problem+json"

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteProblem writes an RFC 7807 problem document for requests that never
// reached a service, such as malformed bodies or unknown routes.
func WriteProblem(w http.ResponseWriter, r *http.Request, statusCode int, problemType, detail string) error {
	problem := problems.NewStatusProblem(statusCode).
		WithInstance(r.URL.Path).
		WithType(problemType).
		WithDetail(detail)

	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(problem)
}

// StatusFor maps a classified service error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// NotFound answers requests that match no route.
func NotFound(w http.ResponseWriter, r *http.Request) {
	_ = WriteProblem(w, r, http.StatusNotFound, "not_found", "No route for "+r.Method+" "+r.URL.Path)
}
