package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
	"github.com/google/uuid"
)

// SegmentService saves segments and previews rule-sets against the customer store.
type SegmentService struct {
	segments  domain.SegmentRepository
	customers domain.CustomerRepository
	logger    *slog.Logger
}

func NewSegmentService(segments domain.SegmentRepository, customers domain.CustomerRepository, logger *slog.Logger) *SegmentService {
	return &SegmentService{
		segments:  segments,
		customers: customers,
		logger:    logger.With("component", "segment_service"),
	}
}

func (s *SegmentService) SaveSegment(ctx context.Context, name string, conditions []domain.Condition, logic string) (*domain.Segment, error) {
	seg, err := domain.NewSegment(uuid.New(), name, conditions, logic)
	if err != nil {
		return nil, err
	}
	if err := s.segments.Create(ctx, seg); err != nil {
		return nil, storageErr("create segment", err)
	}
	s.logger.InfoContext(ctx, "Segment saved", "segment_id", seg.ID, "conditions", len(seg.Conditions), "logic", seg.Logic)
	return seg, nil
}

func (s *SegmentService) PreviewSegment(ctx context.Context, conditions []domain.Condition, logic string) (*PreviewResult, error) {
	if err := domain.ValidateConditions(conditions); err != nil {
		return nil, err
	}
	l, err := domain.ParseLogic(logic)
	if err != nil {
		return nil, err
	}
	customers, err := s.customers.List(ctx)
	if err != nil {
		return nil, storageErr("list customers", err)
	}
	res := Preview(customers, conditions, l)
	return &res, nil
}

func (s *SegmentService) GetSegment(ctx context.Context, id uuid.UUID) (*domain.Segment, error) {
	seg, err := s.segments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrSegmentNotFound
		}
		return nil, storageErr("get segment", err)
	}
	return seg, nil
}

func (s *SegmentService) ListSegments(ctx context.Context) ([]*domain.Segment, error) {
	segs, err := s.segments.List(ctx)
	if err != nil {
		return nil, storageErr("list segments", err)
	}
	return segs, nil
}

// storageErr passes domain sentinels through and wraps everything else.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *domain.StorageError
	if errors.As(err, &se) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrDuplicateEntry) ||
		errors.Is(err, domain.ErrValidation) {
		return err
	}
	return domain.NewStorageError(op, err)
}
