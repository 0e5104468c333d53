package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aradsms/crm_services/internal/public_api_service/middleware"
)

// AuthHandler exposes the identity attached by the auth middleware.
type AuthHandler struct {
	logger *slog.Logger
}

func NewAuthHandler(logger *slog.Logger) *AuthHandler {
	return &AuthHandler{logger: logger.With("handler", "auth")}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.Me)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.CurrentUser(r.Context())
	if !ok {
		h.logger.WarnContext(r.Context(), "Identity not found in context for /auth/me")
		respondWithError(w, http.StatusUnauthorized, "Not signed in")
		return
	}
	emails := id.Emails
	if emails == nil {
		emails = []string{}
	}
	respondWithJSON(w, http.StatusOK, UserProfileResponse{ID: id.ID, DisplayName: id.DisplayName, Emails: emails})
}
