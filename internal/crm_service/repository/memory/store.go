// Package memory is an in-process record store. Every write holds the store
// lock for its full read-modify-write, so concurrent HTTP writes and the
// reconciler tick never lose updates.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
)

// Store holds every collection behind one lock.
type Store struct {
	mu sync.RWMutex

	customers     []*domain.Customer
	customerIndex map[string]int

	orders map[uuid.UUID]*domain.Order

	segments     []*domain.Segment
	segmentIndex map[uuid.UUID]int

	campaigns     []*domain.Campaign
	campaignIndex map[uuid.UUID]int

	logs     []*domain.CommunicationLogRecord
	logIndex map[uuid.UUID]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		customerIndex: make(map[string]int),
		orders:        make(map[uuid.UUID]*domain.Order),
		segmentIndex:  make(map[uuid.UUID]int),
		campaignIndex: make(map[uuid.UUID]int),
		logIndex:      make(map[uuid.UUID]int),
	}
}

func copyCustomer(c *domain.Customer) *domain.Customer {
	cp := *c
	if c.LastOrderDate != nil {
		d := *c.LastOrderDate
		cp.LastOrderDate = &d
	}
	if c.Metadata != nil {
		cp.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

func copySegment(s *domain.Segment) *domain.Segment {
	cp := *s
	cp.Conditions = append([]domain.Condition(nil), s.Conditions...)
	return &cp
}

func copyCampaign(c *domain.Campaign) *domain.Campaign {
	cp := *c
	return &cp
}

func copyLog(r *domain.CommunicationLogRecord) *domain.CommunicationLogRecord {
	cp := *r
	if r.DeliveredAt != nil {
		d := *r.DeliveredAt
		cp.DeliveredAt = &d
	}
	return &cp
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]domain.LineItem(nil), o.Items...)
	return &cp
}
