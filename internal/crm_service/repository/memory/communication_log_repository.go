package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
)

type CommunicationLogRepository struct{ s *Store }

func NewCommunicationLogRepository(s *Store) *CommunicationLogRepository {
	return &CommunicationLogRepository{s: s}
}

func (r *CommunicationLogRepository) Append(_ context.Context, rec *domain.CommunicationLogRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.logIndex[rec.ID]; ok {
		return domain.ErrDuplicateEntry
	}
	r.s.logIndex[rec.ID] = len(r.s.logs)
	r.s.logs = append(r.s.logs, copyLog(rec))
	return nil
}

func (r *CommunicationLogRepository) List(_ context.Context) ([]*domain.CommunicationLogRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.CommunicationLogRecord, len(r.s.logs))
	for i, rec := range r.s.logs {
		out[i] = copyLog(rec)
	}
	return out, nil
}

func (r *CommunicationLogRepository) ListByCampaign(_ context.Context, campaignID uuid.UUID) ([]*domain.CommunicationLogRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.CommunicationLogRecord
	for _, rec := range r.s.logs {
		if rec.CampaignID == campaignID {
			out = append(out, copyLog(rec))
		}
	}
	return out, nil
}

func (r *CommunicationLogRepository) UpdateDeliveries(_ context.Context, updates []domain.DeliveryUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	// Resolve every target first so a bad id leaves the log untouched.
	idx := make([]int, len(updates))
	for i, u := range updates {
		j, ok := r.s.logIndex[u.RecordID]
		if !ok {
			return domain.ErrNotFound
		}
		idx[i] = j
	}
	for i, u := range updates {
		rec := r.s.logs[idx[i]]
		rec.Status = u.Status
		at := u.DeliveredAt.UTC()
		rec.DeliveredAt = &at
	}
	return nil
}
