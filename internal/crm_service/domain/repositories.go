package domain

import (
	"context"

	"github.com/google/uuid"
)

// CustomerRepository stores customers keyed by lowercased email.
type CustomerRepository interface {
	// Create returns ErrDuplicateEntry if the email is already taken.
	Create(ctx context.Context, c *Customer) error
	GetByEmail(ctx context.Context, email string) (*Customer, error)
	// List returns every customer in insertion order.
	List(ctx context.Context) ([]*Customer, error)
}

// OrderRepository stores orders and rolls them up into their customer.
type OrderRepository interface {
	// CreateWithRollup stores o and applies it to its customer atomically.
	// Returns ErrCustomerNotFound if the customer is unknown and ErrDuplicateEntry if o.ID exists.
	CreateWithRollup(ctx context.Context, o *Order) (*Customer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
}

// SegmentRepository stores immutable segments.
type SegmentRepository interface {
	Create(ctx context.Context, s *Segment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Segment, error)
	List(ctx context.Context) ([]*Segment, error)
}

// CampaignRepository stores campaigns; only the dispatcher changes status.
type CampaignRepository interface {
	Create(ctx context.Context, c *Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*Campaign, error)
	List(ctx context.Context) ([]*Campaign, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status CampaignStatus) error
}

// CommunicationLogRepository is the append-only log of send attempts.
type CommunicationLogRepository interface {
	// Append persists one record; each call is a single atomic write.
	Append(ctx context.Context, rec *CommunicationLogRecord) error
	// List returns the full log in append order.
	List(ctx context.Context) ([]*CommunicationLogRecord, error)
	ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*CommunicationLogRecord, error)
	// UpdateDeliveries applies every update or none.
	UpdateDeliveries(ctx context.Context, updates []DeliveryUpdate) error
}
