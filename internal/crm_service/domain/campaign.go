package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CampaignStatus is CREATED until the first dispatch, then one of the terminal states.
type CampaignStatus string

const (
	CampaignStatusCreated       CampaignStatus = "CREATED"
	CampaignStatusNoAudience    CampaignStatus = "NO_AUDIENCE"
	CampaignStatusSent          CampaignStatus = "SENT"
	CampaignStatusPartialFailed CampaignStatus = "PARTIAL_FAILED"
)

// IsTerminal reports whether a campaign in this status may no longer be dispatched.
func (s CampaignStatus) IsTerminal() bool {
	switch s {
	case CampaignStatusNoAudience, CampaignStatusSent, CampaignStatusPartialFailed:
		return true
	}
	return false
}

// Campaign targets one segment with one message.
type Campaign struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	SegmentID uuid.UUID      `json:"segment_id"`
	Message   string         `json:"message"`
	Status    CampaignStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewCampaign creates a campaign in status CREATED. Segment existence is checked by the caller.
func NewCampaign(id uuid.UUID, name string, segmentID uuid.UUID, message string) (*Campaign, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name", "is required")
	}
	if segmentID == uuid.Nil {
		return nil, NewValidationError("segment_id", "is required")
	}
	if strings.TrimSpace(message) == "" {
		return nil, NewValidationError("message", "is required")
	}
	now := time.Now().UTC()
	return &Campaign{
		ID:        id,
		Name:      name,
		SegmentID: segmentID,
		Message:   message,
		Status:    CampaignStatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
