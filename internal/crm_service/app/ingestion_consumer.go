package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Subscriber is the inbound half of a NATS connection.
type Subscriber interface {
	Subscribe(ctx context.Context, subject, queueGroup string, handler nats.MsgHandler) (*nats.Subscription, error)
}

// IngestionConsumer applies queued ingestion requests through the direct path.
type IngestionConsumer struct {
	direct  *DirectIngestor
	deduper Deduper
	logger  *slog.Logger
}

func NewIngestionConsumer(direct *DirectIngestor, deduper Deduper, logger *slog.Logger) *IngestionConsumer {
	return &IngestionConsumer{
		direct:  direct,
		deduper: deduper,
		logger:  logger.With("component", "ingestion_consumer"),
	}
}

// Start subscribes to every ingestion subject. Messages are handled until ctx is done.
func (c *IngestionConsumer) Start(ctx context.Context, sub Subscriber, queueGroup string) error {
	_, err := sub.Subscribe(ctx, SubjectIngestAll, queueGroup, func(msg *nats.Msg) {
		if err := c.HandleMessage(ctx, msg.Subject, msg.Data); err != nil {
			natsMessagesReceivedCounter.WithLabelValues(SubjectIngestAll, "error").Inc()
			c.logger.ErrorContext(ctx, "Failed to apply ingestion message", "error", err, "subject", msg.Subject)
			return
		}
		natsMessagesReceivedCounter.WithLabelValues(SubjectIngestAll, "success").Inc()
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectIngestAll, err)
	}
	c.logger.InfoContext(ctx, "Ingestion consumer subscribed", "subject", SubjectIngestAll, "queue_group", queueGroup)
	return nil
}

// HandleMessage applies one queued request and releases its identity key.
func (c *IngestionConsumer) HandleMessage(ctx context.Context, subject string, data []byte) error {
	var msg ingestionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode ingestion message: %w", err)
	}

	switch subject {
	case SubjectIngestCustomer:
		if msg.Customer == nil {
			return fmt.Errorf("ingestion message on %s has no customer", subject)
		}
		defer c.release(ctx, customerKey(msg.Customer.Email))
		res, err := c.direct.IngestCustomer(ctx, *msg.Customer)
		if err != nil {
			return err
		}
		c.logger.DebugContext(ctx, "Queued customer applied", "email", res.Customer.Email, "created", res.Created)
		return nil

	case SubjectIngestOrder:
		if msg.Order == nil {
			return fmt.Errorf("ingestion message on %s has no order", subject)
		}
		defer c.release(ctx, orderKey(msg.Order.ID))
		res, err := c.direct.IngestOrder(ctx, *msg.Order)
		if err != nil {
			return err
		}
		c.logger.DebugContext(ctx, "Queued order applied", "order_id", res.Order.ID, "created", res.Created)
		return nil
	}
	return fmt.Errorf("unexpected ingestion subject %q", subject)
}

func (c *IngestionConsumer) release(ctx context.Context, key string) {
	if err := c.deduper.Release(ctx, key); err != nil {
		c.logger.WarnContext(ctx, "Failed to release ingestion key", "error", err, "key", key)
	}
}
