package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
)

// Helper to respond with JSON
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Default().Error("Failed to write JSON response", "error", err)
		}
	}
}

// Helper to respond with an error
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// mapDomainErrorToHTTPStatus converts service errors to HTTP status codes.
func mapDomainErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCampaignAlreadyDispatched),
		errors.Is(err, domain.ErrDispatchInProgress),
		errors.Is(err, domain.ErrDuplicateEntry):
		return http.StatusConflict
	case errors.Is(err, domain.ErrDependencyUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondWithDomainError writes err with its mapped status. Internal failures are logged and masked.
func respondWithDomainError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	code := mapDomainErrorToHTTPStatus(err)
	if code >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, msg, "error", err)
		respondWithError(w, code, http.StatusText(code))
		return
	}
	logger.WarnContext(ctx, msg, "error", err, "status_code", code)
	respondWithError(w, code, err.Error())
}

// decodeJSON reads a request body into dst. The returned message is safe to send to the client.
func decodeJSON(r *http.Request, dst interface{}) (string, bool) {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return "Request body is empty", false
		}
		return "Invalid request payload: " + err.Error(), false
	}
	return "", true
}
