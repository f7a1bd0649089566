package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON and responder.writeError, so the
// client always sees the same shapes:
//
//	success: the resource itself, e.g. {"_id": "...", "title": "..."}
//	failure: {"error": "not_found", "message": "Recipe not found"}
//
// Validation failures also name the offending field:
//
//	{"error": "validation_error", "message": "Title is required", "field": "title"}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/recipe-share/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Offending input field for validation errors
	Cause   string `json:"cause,omitempty"` // Underlying error, development only
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent, so logging is all we can do.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// responder carries what writeError needs beyond the ResponseWriter: a
// logger for unexpected failures, and whether to expose their cause.
type responder struct {
	logger      *slog.Logger
	exposeCause bool
}

// Options configures behaviour shared by all handlers.
type Options struct {
	// ExposeErrors adds the underlying cause to 500 bodies. Development only.
	ExposeErrors bool
}

func newResponder(logger *slog.Logger, opts Options) responder {
	return responder{logger: logger, exposeCause: opts.ExposeErrors}
}

// writeError maps a domain error to its HTTP status and sends it.
//
// errors.Is walks the whole chain, so a service error like
//
//	fmt.Errorf("rating recipe: %w", apperror.NotFound("Recipe", id))
//
// still maps to 404. Anything without a sentinel is a 500 whose details
// are logged and never sent, unless exposeCause is set.
func (rs responder) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, kind := classify(err)
		if status != http.StatusInternalServerError {
			writeJSON(w, status, ErrorResponse{
				Error:   kind,
				Message: appErr.Message,
				Field:   appErr.Field,
			})
			return
		}
	}

	rs.logger.ErrorContext(r.Context(), "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)

	resp := ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	}
	if rs.exposeCause {
		resp.Cause = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, resp)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	}
	return http.StatusInternalServerError, "internal_error"
}

// decodeJSON reads a single JSON object from the request body. Malformed
// bodies become validation errors so they answer 400 like any other bad input.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperror.ValidationFailed("body", "Request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}

// NotFound answers requests that match no route.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: "Route not found",
	})
}

// MethodNotAllowed answers requests whose path exists under another method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Error:   "method_not_allowed",
		Message: "Method not allowed",
	})
}
