package handler

// RESPONSE HELPERS:
// Pages go through Renderer. The few JSON endpoints (/healthz, /api/*) and
// the live feeds' pre-upgrade failures use writeJSON / writeError, so every
// JSON error has the same shape:
//   {"error": "not_analyzed", "message": "Project acme not found"}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/sonarhub/internal/apperror"
)

// ErrorResponse is the standard error format returned by all JSON endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusOf maps a domain error to its HTTP status and machine-readable type.
//
// errors.Is walks the whole chain, so a service error like
//
//	fmt.Errorf("service/analysis: ...: %w", apperror.NotAnalyzed(...))
//
// still matches ErrNotAnalyzed.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrIdentityUnavailable):
		return http.StatusFailedDependency, "identity_unavailable"
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrNotAnalyzed):
		return http.StatusNotFound, "not_analyzed"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrPrerequisite):
		return http.StatusPreconditionRequired, "prerequisite"
	case errors.Is(err, apperror.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError maps a domain error to the appropriate HTTP status code and
// sends it.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, errorType := statusOf(err)
		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	// Unknown error: never expose internals to the client.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
