package http

import (
	"time"

	"github.com/aradsms/crm_services/internal/crm_service/app"
	"github.com/aradsms/crm_services/internal/crm_service/domain"
	"github.com/google/uuid"
)

// --- Customers & orders ---

type CreateCustomerRequestDTO struct {
	Name          string         `json:"name" validate:"required,max=255"`
	Email         string         `json:"email" validate:"required,email,max=255"`
	Phone         string         `json:"phone,omitempty" validate:"omitempty,max=50"`
	TotalSpent    float64        `json:"total_spent" validate:"gte=0"`
	LastOrderDate *time.Time     `json:"last_order_date,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

func (d CreateCustomerRequestDTO) toInput() app.CustomerInput {
	return app.CustomerInput{
		Name:          d.Name,
		Email:         d.Email,
		Phone:         d.Phone,
		TotalSpent:    d.TotalSpent,
		LastOrderDate: d.LastOrderDate,
		Metadata:      d.Metadata,
	}
}

type LineItemDTO struct {
	SKU      string `json:"sku" validate:"required,max=100"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

type CreateOrderRequestDTO struct {
	ID            string         `json:"id,omitempty" validate:"omitempty,uuid"`
	CustomerEmail string         `json:"customer_email" validate:"required,email"`
	Amount        float64        `json:"amount" validate:"gte=0"`
	Date          *time.Time     `json:"date,omitempty"`
	Items         []LineItemDTO  `json:"items,omitempty" validate:"omitempty,dive"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

func (d CreateOrderRequestDTO) toInput() app.OrderInput {
	in := app.OrderInput{
		CustomerEmail: d.CustomerEmail,
		Amount:        d.Amount,
		Metadata:      d.Metadata,
	}
	if d.ID != "" {
		in.ID = uuid.MustParse(d.ID)
	}
	if d.Date != nil {
		in.Date = *d.Date
	}
	for _, it := range d.Items {
		in.Items = append(in.Items, domain.LineItem{SKU: it.SKU, Quantity: it.Quantity})
	}
	return in
}

// IngestResponseDTO is returned by both ingestion endpoints.
type IngestResponseDTO struct {
	Status   string           `json:"status"` // created, existing or queued
	Customer *domain.Customer `json:"customer,omitempty"`
	Order    *domain.Order    `json:"order,omitempty"`
}

type ListCustomersResponseDTO struct {
	Customers []*domain.Customer `json:"customers"`
	Total     int                `json:"total"`
}

// --- Segments ---

type ConditionDTO struct {
	Field    string `json:"field" validate:"required,oneof=total_spent email last_order_date"`
	Operator string `json:"operator" validate:"required,oneof=gt gte lt lte eq neq"`
	// Value is checked by the domain; a literal 0 is a valid threshold.
	Value any `json:"value"`
}

func toConditions(in []ConditionDTO) []domain.Condition {
	out := make([]domain.Condition, 0, len(in))
	for _, c := range in {
		out = append(out, domain.Condition{
			Field:    domain.Field(c.Field),
			Operator: domain.Operator(c.Operator),
			Value:    c.Value,
		})
	}
	return out
}

type SaveSegmentRequestDTO struct {
	Name       string         `json:"name" validate:"required,max=255"`
	Conditions []ConditionDTO `json:"conditions" validate:"required,min=1,dive"`
	Logic      string         `json:"logic,omitempty"`
}

type PreviewSegmentRequestDTO struct {
	Conditions []ConditionDTO `json:"conditions" validate:"required,min=1,dive"`
	Logic      string         `json:"logic,omitempty"`
}

type ListSegmentsResponseDTO struct {
	Segments []*domain.Segment `json:"segments"`
	Total    int               `json:"total"`
}

// --- Campaigns ---

type CreateCampaignRequestDTO struct {
	Name      string `json:"name" validate:"required,max=255"`
	SegmentID string `json:"segment_id" validate:"required,uuid"`
	Message   string `json:"message" validate:"required,max=2000"`
}

type ListCampaignsResponseDTO struct {
	Campaigns []*domain.Campaign `json:"campaigns"`
	Total     int                `json:"total"`
}

type CommunicationLogResponseDTO struct {
	Records []*domain.CommunicationLogRecord `json:"records"`
	Total   int                              `json:"total"`
}

// --- Receipts ---

// SubmitReceiptRequestDTO is posted by delivery vendors. Presence of the ids is checked by the intake.
type SubmitReceiptRequestDTO struct {
	CampaignID    string     `json:"campaign_id"`
	CustomerEmail string     `json:"customer_email"`
	Status        string     `json:"status,omitempty" validate:"omitempty,max=20"`
	ReceivedAt    *time.Time `json:"received_at,omitempty"`
}

type SubmitReceiptResponseDTO struct {
	Status    string    `json:"status"`
	ReceiptID uuid.UUID `json:"receipt_id"`
}

// --- Suggestions ---

type SuggestRequestDTO struct {
	Context  string `json:"context" validate:"required,max=1000"`
	Audience string `json:"audience,omitempty" validate:"omitempty,max=255"`
	Tone     string `json:"tone,omitempty" validate:"omitempty,max=50"`
	N        int    `json:"n,omitempty" validate:"omitempty,min=1,max=10"`
}

type SuggestResponseDTO struct {
	Suggestions []string `json:"suggestions"`
}

// --- Auth ---

type UserProfileResponse struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Emails      []string `json:"emails"`
}
