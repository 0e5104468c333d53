package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aradsms/crm_services/internal/crm_service/app"
)

type Suggester interface {
	Suggest(ctx context.Context, req app.SuggestRequest) ([]string, error)
}

// SuggestionHandler returns candidate campaign messages.
type SuggestionHandler struct {
	suggester Suggester
	logger    *slog.Logger
	validate  *validator.Validate
}

func NewSuggestionHandler(suggester Suggester, logger *slog.Logger, validate *validator.Validate) *SuggestionHandler {
	return &SuggestionHandler{
		suggester: suggester,
		logger:    logger.With("handler", "suggestion"),
		validate:  validate,
	}
}

func (h *SuggestionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/suggestions", h.Suggest)
}

func (h *SuggestionHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req SuggestRequestDTO
	if msg, ok := decodeJSON(r, &req); !ok {
		respondWithError(w, http.StatusBadRequest, msg)
		return
	}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	out, err := h.suggester.Suggest(ctx, app.SuggestRequest{
		Context:  req.Context,
		Audience: req.Audience,
		Tone:     req.Tone,
		N:        req.N,
	})
	if err != nil {
		respondWithDomainError(ctx, w, h.logger, "Failed to build suggestions", err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuggestResponseDTO{Suggestions: out})
}
