package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus is the state of one send attempt. Dispatch writes SENT or FAILED;
// receipts may overwrite it with whatever the vendor reports (DELIVERED, BOUNCED, ...).
type DeliveryStatus string

const (
	DeliveryStatusSent      DeliveryStatus = "SENT"
	DeliveryStatusFailed    DeliveryStatus = "FAILED"
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
)

// MaxDeliveryStatusLength matches the communication_log.status column width.
const MaxDeliveryStatusLength = 20

// ParseDeliveryStatus upper-cases a vendor status. Empty defaults to SENT.
func ParseDeliveryStatus(s string) DeliveryStatus {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DeliveryStatusSent
	}
	return DeliveryStatus(s)
}

// CommunicationLogRecord is one dispatch attempt for one recipient.
type CommunicationLogRecord struct {
	ID            uuid.UUID      `json:"id"`
	CampaignID    uuid.UUID      `json:"campaign_id"`
	CustomerEmail string         `json:"customer_email"`
	Status        DeliveryStatus `json:"status"`
	Message       string         `json:"message"`
	Timestamp     time.Time      `json:"timestamp"`
	DeliveredAt   *time.Time     `json:"delivered_at,omitempty"`
}

// NewCommunicationLogRecord creates a record stamped with the current time.
func NewCommunicationLogRecord(id, campaignID uuid.UUID, email string, status DeliveryStatus, message string) *CommunicationLogRecord {
	return &CommunicationLogRecord{
		ID:            id,
		CampaignID:    campaignID,
		CustomerEmail: NormalizeEmail(email),
		Status:        status,
		Message:       message,
		Timestamp:     time.Now().UTC(),
	}
}

// Receipt is an out-of-band delivery acknowledgement waiting for reconciliation.
type Receipt struct {
	ID            uuid.UUID      `json:"id"`
	CampaignID    uuid.UUID      `json:"campaign_id"`
	CustomerEmail string         `json:"customer_email"`
	Status        DeliveryStatus `json:"status"`
	ReceivedAt    time.Time      `json:"received_at"`
}

// DeliveryUpdate is the in-place change reconciliation applies to one log record.
type DeliveryUpdate struct {
	RecordID    uuid.UUID
	Status      DeliveryStatus
	DeliveredAt time.Time
}
