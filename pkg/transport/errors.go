package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/runbox-dev/runbox/pkg/api"
)

// writeJSON serializes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response failed", "error", err.Error())
	}
}

// writeError serializes an APIError with the status code matching its type.
func writeError(w http.ResponseWriter, apiErr *api.APIError) {
	status := http.StatusInternalServerError
	switch apiErr.Type {
	case api.ErrorTypeInvalidRequest:
		status = http.StatusBadRequest
	case api.ErrorTypeTooManyRequests:
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, api.ErrorResponse{Error: apiErr})
}
