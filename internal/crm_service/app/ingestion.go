package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
	"github.com/google/uuid"
)

const (
	SubjectIngestCustomer = "crm.ingest.customer"
	SubjectIngestOrder    = "crm.ingest.order"
	SubjectIngestAll      = "crm.ingest.>"
)

// CustomerInput is an ingestion request for one customer. A zero ID is assigned on write.
type CustomerInput struct {
	ID            uuid.UUID      `json:"id,omitempty"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Phone         string         `json:"phone,omitempty"`
	TotalSpent    float64        `json:"total_spent"`
	LastOrderDate *time.Time     `json:"last_order_date,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// OrderInput is an ingestion request for one order. A caller supplied ID makes the write idempotent.
type OrderInput struct {
	ID            uuid.UUID         `json:"id,omitempty"`
	CustomerEmail string            `json:"customer_email"`
	Amount        float64           `json:"amount"`
	Date          time.Time         `json:"date"`
	Items         []domain.LineItem `json:"items,omitempty"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
}

// IngestResult reports what an ingestion call did. Queued results carry no persisted record yet.
type IngestResult struct {
	Customer *domain.Customer `json:"customer,omitempty"`
	Order    *domain.Order    `json:"order,omitempty"`
	Created  bool             `json:"created"`
	Queued   bool             `json:"queued"`
}

// Ingestor accepts customers and orders either synchronously or through a queue.
type Ingestor interface {
	IngestCustomer(ctx context.Context, in CustomerInput) (*IngestResult, error)
	IngestOrder(ctx context.Context, in OrderInput) (*IngestResult, error)
}

func (in *CustomerInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = domain.NormalizeEmail(in.Email)
	if in.Name == "" {
		return domain.NewValidationError("name", "is required")
	}
	if in.Email == "" {
		return domain.NewValidationError("email", "is required")
	}
	if !strings.Contains(in.Email, "@") {
		return domain.NewValidationError("email", "must be a valid email address")
	}
	if in.TotalSpent < 0 {
		return domain.NewValidationError("total_spent", "must not be negative")
	}
	return nil
}

func (in *OrderInput) toOrder() (*domain.Order, error) {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	o := domain.NewOrder(in.ID, in.CustomerEmail, in.Amount, in.Date, in.Items, in.Metadata)
	if err := o.Validate(); err != nil {
		return nil, err
	}
	in.CustomerEmail = o.CustomerEmail
	in.Date = o.Date
	return o, nil
}

// DirectIngestor writes straight to the record store.
type DirectIngestor struct {
	customers domain.CustomerRepository
	orders    domain.OrderRepository
	logger    *slog.Logger
}

func NewDirectIngestor(customers domain.CustomerRepository, orders domain.OrderRepository, logger *slog.Logger) *DirectIngestor {
	return &DirectIngestor{
		customers: customers,
		orders:    orders,
		logger:    logger.With("component", "direct_ingestor"),
	}
}

// IngestCustomer is idempotent on email: an existing customer is returned unchanged.
func (d *DirectIngestor) IngestCustomer(ctx context.Context, in CustomerInput) (*IngestResult, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	existing, err := d.customers.GetByEmail(ctx, in.Email)
	if err == nil {
		ingestedRecordsCounter.WithLabelValues("customer", "existing").Inc()
		return &IngestResult{Customer: existing}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		ingestedRecordsCounter.WithLabelValues("customer", "error").Inc()
		return nil, storageErr("get customer", err)
	}

	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	c := domain.NewCustomer(id, in.Name, in.Email, in.Phone, in.TotalSpent, in.LastOrderDate, in.Metadata)
	if err := d.customers.Create(ctx, c); err != nil {
		if errors.Is(err, domain.ErrDuplicateEntry) {
			// Lost a race with a concurrent create for the same email.
			existing, getErr := d.customers.GetByEmail(ctx, in.Email)
			if getErr != nil {
				return nil, storageErr("get customer", getErr)
			}
			ingestedRecordsCounter.WithLabelValues("customer", "existing").Inc()
			return &IngestResult{Customer: existing}, nil
		}
		ingestedRecordsCounter.WithLabelValues("customer", "error").Inc()
		return nil, storageErr("create customer", err)
	}

	ingestedRecordsCounter.WithLabelValues("customer", "created").Inc()
	d.logger.InfoContext(ctx, "Customer created", "customer_id", c.ID, "email", c.Email)
	return &IngestResult{Customer: c, Created: true}, nil
}

// IngestOrder stores the order and rolls it up onto its customer in one write.
func (d *DirectIngestor) IngestOrder(ctx context.Context, in OrderInput) (*IngestResult, error) {
	o, err := in.toOrder()
	if err != nil {
		return nil, err
	}
	cust, err := d.orders.CreateWithRollup(ctx, o)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return nil, domain.ErrCustomerNotFound
		case errors.Is(err, domain.ErrDuplicateEntry):
			return d.existingOrder(ctx, o.ID)
		}
		ingestedRecordsCounter.WithLabelValues("order", "error").Inc()
		return nil, storageErr("create order", err)
	}

	ingestedRecordsCounter.WithLabelValues("order", "created").Inc()
	d.logger.InfoContext(ctx, "Order created",
		"order_id", o.ID, "customer_email", o.CustomerEmail, "amount", o.Amount, "total_spent", cust.TotalSpent)
	return &IngestResult{Customer: cust, Order: o, Created: true}, nil
}

func (d *DirectIngestor) existingOrder(ctx context.Context, id uuid.UUID) (*IngestResult, error) {
	o, err := d.orders.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("get order", err)
	}
	cust, err := d.customers.GetByEmail(ctx, o.CustomerEmail)
	if err != nil {
		return nil, storageErr("get customer", err)
	}
	ingestedRecordsCounter.WithLabelValues("order", "existing").Inc()
	return &IngestResult{Customer: cust, Order: o}, nil
}

// Publisher is the outbound half of the ingestion queue.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Deduper reserves identity keys so one record is queued at most once while pending.
type Deduper interface {
	Reserve(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type ingestionMessage struct {
	Customer *CustomerInput `json:"customer,omitempty"`
	Order    *OrderInput    `json:"order,omitempty"`
}

func customerKey(email string) string { return "customer:" + email }
func orderKey(id uuid.UUID) string    { return "order:" + id.String() }

// QueuedIngestor publishes ingestion requests and lets IngestionConsumer apply them.
// When the queue or the deduper is unavailable it falls back to the direct path.
type QueuedIngestor struct {
	direct    *DirectIngestor
	publisher Publisher
	deduper   Deduper
	logger    *slog.Logger
}

func NewQueuedIngestor(direct *DirectIngestor, publisher Publisher, deduper Deduper, logger *slog.Logger) *QueuedIngestor {
	return &QueuedIngestor{
		direct:    direct,
		publisher: publisher,
		deduper:   deduper,
		logger:    logger.With("component", "queued_ingestor"),
	}
}

func (q *QueuedIngestor) IngestCustomer(ctx context.Context, in CustomerInput) (*IngestResult, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	existing, err := q.direct.customers.GetByEmail(ctx, in.Email)
	if err == nil {
		ingestedRecordsCounter.WithLabelValues("customer", "existing").Inc()
		return &IngestResult{Customer: existing}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, storageErr("get customer", err)
	}
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}

	queued, err := q.enqueue(ctx, customerKey(in.Email), SubjectIngestCustomer, ingestionMessage{Customer: &in})
	if err != nil {
		q.logger.WarnContext(ctx, "Ingestion queue unavailable, writing customer directly", "error", err, "email", in.Email)
		ingestedRecordsCounter.WithLabelValues("customer", "fallback").Inc()
		return q.direct.IngestCustomer(ctx, in)
	}
	ingestedRecordsCounter.WithLabelValues("customer", "queued").Inc()
	if !queued {
		return &IngestResult{Queued: true}, nil
	}
	return &IngestResult{Customer: provisionalCustomer(in), Queued: true}, nil
}

func (q *QueuedIngestor) IngestOrder(ctx context.Context, in OrderInput) (*IngestResult, error) {
	o, err := in.toOrder()
	if err != nil {
		return nil, err
	}
	// Unknown customers are rejected before queueing.
	if _, err := q.direct.customers.GetByEmail(ctx, o.CustomerEmail); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, storageErr("get customer", err)
	}

	if _, err := q.enqueue(ctx, orderKey(o.ID), SubjectIngestOrder, ingestionMessage{Order: &in}); err != nil {
		q.logger.WarnContext(ctx, "Ingestion queue unavailable, writing order directly", "error", err, "order_id", o.ID)
		ingestedRecordsCounter.WithLabelValues("order", "fallback").Inc()
		return q.direct.IngestOrder(ctx, in)
	}
	ingestedRecordsCounter.WithLabelValues("order", "queued").Inc()
	return &IngestResult{Order: o, Queued: true}, nil
}

// enqueue reserves key and publishes msg. It reports false when the key was already pending.
// Any returned error wraps domain.ErrDependencyUnavailable.
func (q *QueuedIngestor) enqueue(ctx context.Context, key, subject string, msg ingestionMessage) (bool, error) {
	reserved, err := q.deduper.Reserve(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: reserve %s: %v", domain.ErrDependencyUnavailable, key, err)
	}
	if !reserved {
		q.logger.DebugContext(ctx, "Ingestion already pending", "key", key)
		return false, nil
	}

	data, err := json.Marshal(msg)
	if err != nil {
		_ = q.deduper.Release(ctx, key)
		return false, fmt.Errorf("marshal ingestion message: %w", err)
	}
	if err := q.publisher.Publish(ctx, subject, data); err != nil {
		if relErr := q.deduper.Release(ctx, key); relErr != nil {
			q.logger.WarnContext(ctx, "Failed to release ingestion key", "error", relErr, "key", key)
		}
		return false, fmt.Errorf("%w: publish %s: %v", domain.ErrDependencyUnavailable, subject, err)
	}
	return true, nil
}

func provisionalCustomer(in CustomerInput) *domain.Customer {
	return domain.NewCustomer(in.ID, in.Name, in.Email, in.Phone, in.TotalSpent, in.LastOrderDate, in.Metadata)
}
