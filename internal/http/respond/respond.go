// Package respond writes handler results and maps domain errors to status codes.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrJamesThe3rd/till/internal/apperr"
)

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Error writes err with the status matching its apperr class. Messages of
// invalid input are shown to the caller; storage failures are only logged.
func Error(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, apperr.ErrStorageUnavailable):
		slog.Error("storage unavailable", "error", err)
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
	default:
		slog.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func NotFound(w http.ResponseWriter, what string) {
	http.Error(w, what+" not found", http.StatusNotFound)
}

// Decode reads a JSON body into v, answering 400 on failure.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}

	return true
}
