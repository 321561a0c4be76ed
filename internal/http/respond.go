package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Default().Error("Failed to encode response", log.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeMessage(w http.ResponseWriter, status int, msg string, fields map[string]any) {
	body := map[string]any{"message": msg}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// statusFor maps service errors to response codes.
func statusFor(err error) int {
	var resErr *report.ResourceError
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrEmailTaken):
		return http.StatusConflict
	case errors.As(err, &resErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes err with the status it maps to. Client errors
// carry the error text; server errors are logged and answered generically.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusUnauthorized:
		if errors.Is(err, auth.ErrInvalidCredentials) {
			msg = "Invalid credentials"
		} else {
			msg = "Unauthorized"
		}
	case http.StatusNotFound:
		msg = "Not found"
	case http.StatusConflict:
		msg = "Email already registered"
	case http.StatusServiceUnavailable:
		msg = "Service temporarily unavailable"
	case http.StatusInternalServerError:
		msg = "Internal server error"
	}

	if status >= 500 {
		log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).
			ErrorContext(r.Context(), "Request failed", log.FieldPath, r.URL.Path, log.FieldStatusCode, status, log.FieldError, err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
