package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
	"github.com/google/uuid"
)

// CampaignService creates and reads campaigns and the communication log.
type CampaignService struct {
	campaigns domain.CampaignRepository
	segments  domain.SegmentRepository
	logs      domain.CommunicationLogRepository
	logger    *slog.Logger
}

func NewCampaignService(
	campaigns domain.CampaignRepository,
	segments domain.SegmentRepository,
	logs domain.CommunicationLogRepository,
	logger *slog.Logger,
) *CampaignService {
	return &CampaignService{
		campaigns: campaigns,
		segments:  segments,
		logs:      logs,
		logger:    logger.With("component", "campaign_service"),
	}
}

// CreateCampaign validates the input and requires the target segment to exist.
func (s *CampaignService) CreateCampaign(ctx context.Context, name string, segmentID uuid.UUID, message string) (*domain.Campaign, error) {
	c, err := domain.NewCampaign(uuid.New(), name, segmentID, message)
	if err != nil {
		return nil, err
	}
	if _, err := s.segments.GetByID(ctx, segmentID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrSegmentNotFound
		}
		return nil, storageErr("get segment", err)
	}
	if err := s.campaigns.Create(ctx, c); err != nil {
		return nil, storageErr("create campaign", err)
	}
	s.logger.InfoContext(ctx, "Campaign created", "campaign_id", c.ID, "segment_id", segmentID)
	return c, nil
}

func (s *CampaignService) GetCampaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCampaignNotFound
		}
		return nil, storageErr("get campaign", err)
	}
	return c, nil
}

func (s *CampaignService) ListCampaigns(ctx context.Context) ([]*domain.Campaign, error) {
	cs, err := s.campaigns.List(ctx)
	if err != nil {
		return nil, storageErr("list campaigns", err)
	}
	return cs, nil
}

// ListCommunicationLog returns the whole log, or one campaign's records when campaignID is set.
func (s *CampaignService) ListCommunicationLog(ctx context.Context, campaignID uuid.UUID) ([]*domain.CommunicationLogRecord, error) {
	var (
		recs []*domain.CommunicationLogRecord
		err  error
	)
	if campaignID == uuid.Nil {
		recs, err = s.logs.List(ctx)
	} else {
		recs, err = s.logs.ListByCampaign(ctx, campaignID)
	}
	if err != nil {
		return nil, storageErr("list communication log", err)
	}
	return recs, nil
}
