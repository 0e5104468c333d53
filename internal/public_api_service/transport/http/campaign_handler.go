package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aradsms/crm_services/internal/crm_service/app"
	"github.com/aradsms/crm_services/internal/crm_service/domain"
)

// CampaignService is the campaign use-case surface the handler needs.
type CampaignService interface {
	CreateCampaign(ctx context.Context, name string, segmentID uuid.UUID, message string) (*domain.Campaign, error)
	GetCampaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)
	ListCampaigns(ctx context.Context) ([]*domain.Campaign, error)
	ListCommunicationLog(ctx context.Context, campaignID uuid.UUID) ([]*domain.CommunicationLogRecord, error)
}

// CampaignSender dispatches a campaign.
type CampaignSender interface {
	Send(ctx context.Context, campaignID uuid.UUID) (*app.DispatchResult, error)
}

// CampaignHandler handles campaign CRUD, dispatch and the communication log.
type CampaignHandler struct {
	service  CampaignService
	sender   CampaignSender
	logger   *slog.Logger
	validate *validator.Validate
}

func NewCampaignHandler(service CampaignService, sender CampaignSender, logger *slog.Logger, validate *validator.Validate) *CampaignHandler {
	return &CampaignHandler{
		service:  service,
		sender:   sender,
		logger:   logger.With("handler", "campaign"),
		validate: validate,
	}
}

func (h *CampaignHandler) RegisterRoutes(r chi.Router) {
	r.Route("/campaigns", func(r chi.Router) {
		r.Post("/", h.CreateCampaign)
		r.Get("/", h.ListCampaigns)
		r.Get("/{campaignID}", h.GetCampaign)
		r.Post("/{campaignID}/send", h.SendCampaign)
	})
	r.Get("/communication-log", h.ListCommunicationLog)
}

func (h *CampaignHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CreateCampaignRequestDTO
	if msg, ok := decodeJSON(r, &req); !ok {
		respondWithError(w, http.StatusBadRequest, msg)
		return
	}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	c, err := h.service.CreateCampaign(ctx, req.Name, uuid.MustParse(req.SegmentID), req.Message)
	if err != nil {
		respondWithDomainError(ctx, w, h.logger, "Failed to create campaign", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, c)
}

func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid campaign ID format")
		return
	}
	c, err := h.service.GetCampaign(ctx, id)
	if err != nil {
		respondWithDomainError(ctx, w, h.logger, "Failed to get campaign", err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *CampaignHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cs, err := h.service.ListCampaigns(ctx)
	if err != nil {
		respondWithDomainError(ctx, w, h.logger, "Failed to list campaigns", err)
		return
	}
	if cs == nil {
		cs = []*domain.Campaign{}
	}
	respondWithJSON(w, http.StatusOK, ListCampaignsResponseDTO{Campaigns: cs, Total: len(cs)})
}

func (h *CampaignHandler) SendCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	id, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid campaign ID format")
		return
	}
	res, err := h.sender.Send(ctx, id)
	if err != nil {
		respondWithDomainError(ctx, w, logger.With("campaign_id", id), "Failed to send campaign", err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (h *CampaignHandler) ListCommunicationLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	campaignID := uuid.Nil
	if raw := r.URL.Query().Get("campaign_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid campaign_id query parameter")
			return
		}
		campaignID = id
	}
	recs, err := h.service.ListCommunicationLog(ctx, campaignID)
	if err != nil {
		respondWithDomainError(ctx, w, h.logger, "Failed to list communication log", err)
		return
	}
	if recs == nil {
		recs = []*domain.CommunicationLogRecord{}
	}
	respondWithJSON(w, http.StatusOK, CommunicationLogResponseDTO{Records: recs, Total: len(recs)})
}
