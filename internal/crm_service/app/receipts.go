package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
	"github.com/google/uuid"
)

// ReceiptBuffer holds receipts until the next reconciliation tick drains them.
type ReceiptBuffer struct {
	mu      sync.Mutex
	pending []domain.Receipt
}

func NewReceiptBuffer() *ReceiptBuffer {
	return &ReceiptBuffer{}
}

func (b *ReceiptBuffer) Add(r domain.Receipt) {
	b.mu.Lock()
	b.pending = append(b.pending, r)
	receiptsPendingGauge.Set(float64(len(b.pending)))
	b.mu.Unlock()
}

// Drain swaps the pending slice out and leaves the buffer empty.
func (b *ReceiptBuffer) Drain() []domain.Receipt {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	b.pending = nil
	receiptsPendingGauge.Set(0)
	return out
}

// Requeue puts receipts back ahead of anything that arrived since they were drained.
func (b *ReceiptBuffer) Requeue(rs []domain.Receipt) {
	if len(rs) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	merged := make([]domain.Receipt, 0, len(rs)+len(b.pending))
	merged = append(merged, rs...)
	merged = append(merged, b.pending...)
	b.pending = merged
	receiptsPendingGauge.Set(float64(len(b.pending)))
}

func (b *ReceiptBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// ReceiptIntake validates vendor receipts and appends them to the buffer.
type ReceiptIntake struct {
	buffer *ReceiptBuffer
	logger *slog.Logger
	now    func() time.Time
}

func NewReceiptIntake(buffer *ReceiptBuffer, logger *slog.Logger) *ReceiptIntake {
	return &ReceiptIntake{
		buffer: buffer,
		logger: logger.With("component", "receipt_intake"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Accept buffers a receipt stamped with the current time.
func (i *ReceiptIntake) Accept(ctx context.Context, campaignID, email, status string) (*domain.Receipt, error) {
	return i.AcceptAt(ctx, campaignID, email, status, time.Time{}, "http")
}

// AcceptAt buffers a receipt with a vendor supplied timestamp; zero means now.
func (i *ReceiptIntake) AcceptAt(ctx context.Context, campaignID, email, status string, receivedAt time.Time, source string) (*domain.Receipt, error) {
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return nil, domain.NewValidationError("campaign_id", "is required")
	}
	cid, err := uuid.Parse(campaignID)
	if err != nil {
		return nil, domain.NewValidationError("campaign_id", "must be a valid UUID")
	}
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.NewValidationError("customer_email", "is required")
	}
	st := domain.ParseDeliveryStatus(status)
	if len(st) > domain.MaxDeliveryStatusLength {
		return nil, domain.NewValidationError("status", fmt.Sprintf("must be at most %d characters", domain.MaxDeliveryStatusLength))
	}
	if receivedAt.IsZero() {
		receivedAt = i.now()
	}

	r := domain.Receipt{
		ID:            uuid.New(),
		CampaignID:    cid,
		CustomerEmail: email,
		Status:        st,
		ReceivedAt:    receivedAt.UTC(),
	}
	i.buffer.Add(r)
	receiptsAcceptedCounter.WithLabelValues(source).Inc()

	i.logger.DebugContext(ctx, "Receipt accepted",
		"receipt_id", r.ID, "campaign_id", r.CampaignID, "customer_email", r.CustomerEmail, "status", r.Status, "source", source)
	return &r, nil
}
