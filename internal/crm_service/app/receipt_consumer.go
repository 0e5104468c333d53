package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectReceipts matches crm.receipts.<vendor>.
const SubjectReceipts = "crm.receipts.*"

// ReceiptMessage is the vendor callback payload, shared by NATS and the HTTP webhook.
type ReceiptMessage struct {
	CampaignID    string    `json:"campaign_id"`
	CustomerEmail string    `json:"customer_email"`
	Status        string    `json:"status"`
	ReceivedAt    time.Time `json:"received_at,omitempty"`
}

// ReceiptConsumer feeds receipts published on NATS into the intake buffer.
type ReceiptConsumer struct {
	intake *ReceiptIntake
	logger *slog.Logger
}

func NewReceiptConsumer(intake *ReceiptIntake, logger *slog.Logger) *ReceiptConsumer {
	return &ReceiptConsumer{
		intake: intake,
		logger: logger.With("component", "receipt_consumer"),
	}
}

func (c *ReceiptConsumer) Start(ctx context.Context, sub Subscriber, queueGroup string) error {
	_, err := sub.Subscribe(ctx, SubjectReceipts, queueGroup, func(msg *nats.Msg) {
		if err := c.HandleMessage(ctx, msg.Subject, msg.Data); err != nil {
			natsMessagesReceivedCounter.WithLabelValues(SubjectReceipts, "error").Inc()
			c.logger.ErrorContext(ctx, "Failed to accept receipt message", "error", err, "subject", msg.Subject)
			return
		}
		natsMessagesReceivedCounter.WithLabelValues(SubjectReceipts, "success").Inc()
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectReceipts, err)
	}
	c.logger.InfoContext(ctx, "Receipt consumer subscribed", "subject", SubjectReceipts, "queue_group", queueGroup)
	return nil
}

// HandleMessage takes the vendor name from the subject and buffers the receipt.
func (c *ReceiptConsumer) HandleMessage(ctx context.Context, subject string, data []byte) error {
	parts := strings.Split(subject, ".")
	if len(parts) != 3 || parts[0] != "crm" || parts[1] != "receipts" {
		return fmt.Errorf("invalid receipt subject %q", subject)
	}
	vendor := parts[2]
	if vendor == "" || vendor == "*" || vendor == ">" {
		return fmt.Errorf("receipt subject %q has no vendor", subject)
	}

	var m ReceiptMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decode receipt message: %w", err)
	}
	r, err := c.intake.AcceptAt(ctx, m.CampaignID, m.CustomerEmail, m.Status, m.ReceivedAt, "nats")
	if err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "Receipt received over NATS", "vendor", vendor, "receipt_id", r.ID)
	return nil
}
