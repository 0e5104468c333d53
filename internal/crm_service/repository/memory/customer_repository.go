package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
)

type CustomerRepository struct{ s *Store }

func NewCustomerRepository(s *Store) *CustomerRepository { return &CustomerRepository{s: s} }

func (r *CustomerRepository) Create(_ context.Context, c *domain.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := domain.NormalizeEmail(c.Email)
	if _, ok := r.s.customerIndex[key]; ok {
		return domain.ErrDuplicateEntry
	}
	stored := copyCustomer(c)
	stored.Email = key
	r.s.customerIndex[key] = len(r.s.customers)
	r.s.customers = append(r.s.customers, stored)
	return nil
}

func (r *CustomerRepository) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	i, ok := r.s.customerIndex[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return copyCustomer(r.s.customers[i]), nil
}

func (r *CustomerRepository) List(_ context.Context) ([]*domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Customer, len(r.s.customers))
	for i, c := range r.s.customers {
		out[i] = copyCustomer(c)
	}
	return out, nil
}

type OrderRepository struct{ s *Store }

func NewOrderRepository(s *Store) *OrderRepository { return &OrderRepository{s: s} }

func (r *OrderRepository) CreateWithRollup(_ context.Context, o *domain.Order) (*domain.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.s.customerIndex[domain.NormalizeEmail(o.CustomerEmail)]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	if _, dup := r.s.orders[o.ID]; dup {
		return nil, domain.ErrDuplicateEntry
	}
	r.s.orders[o.ID] = copyOrder(o)
	cust := r.s.customers[i]
	cust.ApplyOrder(o.Amount, o.Date)
	return copyCustomer(cust), nil
}

func (r *OrderRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyOrder(o), nil
}

type SegmentRepository struct{ s *Store }

func NewSegmentRepository(s *Store) *SegmentRepository { return &SegmentRepository{s: s} }

func (r *SegmentRepository) Create(_ context.Context, seg *domain.Segment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.segmentIndex[seg.ID]; ok {
		return domain.ErrDuplicateEntry
	}
	r.s.segmentIndex[seg.ID] = len(r.s.segments)
	r.s.segments = append(r.s.segments, copySegment(seg))
	return nil
}

func (r *SegmentRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Segment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	i, ok := r.s.segmentIndex[id]
	if !ok {
		return nil, domain.ErrSegmentNotFound
	}
	return copySegment(r.s.segments[i]), nil
}

func (r *SegmentRepository) List(_ context.Context) ([]*domain.Segment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Segment, len(r.s.segments))
	for i, seg := range r.s.segments {
		out[i] = copySegment(seg)
	}
	return out, nil
}

type CampaignRepository struct{ s *Store }

func NewCampaignRepository(s *Store) *CampaignRepository { return &CampaignRepository{s: s} }

func (r *CampaignRepository) Create(_ context.Context, c *domain.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.campaignIndex[c.ID]; ok {
		return domain.ErrDuplicateEntry
	}
	r.s.campaignIndex[c.ID] = len(r.s.campaigns)
	r.s.campaigns = append(r.s.campaigns, copyCampaign(c))
	return nil
}

func (r *CampaignRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Campaign, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	i, ok := r.s.campaignIndex[id]
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	return copyCampaign(r.s.campaigns[i]), nil
}

func (r *CampaignRepository) List(_ context.Context) ([]*domain.Campaign, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Campaign, len(r.s.campaigns))
	for i, c := range r.s.campaigns {
		out[i] = copyCampaign(c)
	}
	return out, nil
}

func (r *CampaignRepository) UpdateStatus(_ context.Context, id uuid.UUID, status domain.CampaignStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.s.campaignIndex[id]
	if !ok {
		return domain.ErrCampaignNotFound
	}
	r.s.campaigns[i].Status = status
	r.s.campaigns[i].UpdatedAt = time.Now().UTC()
	return nil
}
