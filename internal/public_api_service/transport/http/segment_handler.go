package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aradsms/crm_services/internal/crm_service/app"
	"github.com/aradsms/crm_services/internal/crm_service/domain"
)

// SegmentService is the segment use-case surface the handler needs.
type SegmentService interface {
	SaveSegment(ctx context.Context, name string, conditions []domain.Condition, logic string) (*domain.Segment, error)
	PreviewSegment(ctx context.Context, conditions []domain.Condition, logic string) (*app.PreviewResult, error)
	GetSegment(ctx context.Context, id uuid.UUID) (*domain.Segment, error)
	ListSegments(ctx context.Context) ([]*domain.Segment, error)
}

// SegmentHandler handles HTTP requests related to audience segments.
type SegmentHandler struct {
	service  SegmentService
	logger   *slog.Logger
	validate *validator.Validate
}

func NewSegmentHandler(service SegmentService, logger *slog.Logger, validate *validator.Validate) *SegmentHandler {
	return &SegmentHandler{
		service:  service,
		logger:   logger.With("handler", "segment"),
		validate: validate,
	}
}

func (h *SegmentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/segments", func(r chi.Router) {
		r.Post("/", h.SaveSegment)
		r.Get("/", h.ListSegments)
		r.Post("/preview", h.PreviewSegment)
		r.Get("/{segmentID}", h.GetSegment)
	})
}

func (h *SegmentHandler) SaveSegment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req SaveSegmentRequestDTO
	if msg, ok := decodeJSON(r, &req); !ok {
		respondWithError(w, http.StatusBadRequest, msg)
		return
	}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	seg, err := h.service.SaveSegment(ctx, req.Name, toConditions(req.Conditions), req.Logic)
	if err != nil {
		respondWithDomainError(ctx, w, h.logger, "Failed to save segment", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, seg)
}

func (h *SegmentHandler) PreviewSegment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req PreviewSegmentRequestDTO
	if msg, ok := decodeJSON(r, &req); !ok {
		respondWithError(w, http.StatusBadRequest, msg)
		return
	}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	res, err := h.service.PreviewSegment(ctx, toConditions(req.Conditions), req.Logic)
	if err != nil {
		respondWithDomainError(ctx, w, h.logger, "Failed to preview segment", err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (h *SegmentHandler) GetSegment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "segmentID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid segment ID format")
		return
	}
	seg, err := h.service.GetSegment(ctx, id)
	if err != nil {
		respondWithDomainError(ctx, w, h.logger, "Failed to get segment", err)
		return
	}
	respondWithJSON(w, http.StatusOK, seg)
}

func (h *SegmentHandler) ListSegments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	segs, err := h.service.ListSegments(ctx)
	if err != nil {
		respondWithDomainError(ctx, w, h.logger, "Failed to list segments", err)
		return
	}
	if segs == nil {
		segs = []*domain.Segment{}
	}
	respondWithJSON(w, http.StatusOK, ListSegmentsResponseDTO{Segments: segs, Total: len(segs)})
}
