package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Customer is keyed by its lowercased email.
type Customer struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Phone         string         `json:"phone,omitempty"`
	TotalSpent    float64        `json:"total_spent"`
	LastOrderDate *time.Time     `json:"last_order_date,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// NormalizeEmail returns the identity-key form of an email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewCustomer creates a new Customer instance.
func NewCustomer(id uuid.UUID, name, email, phone string, totalSpent float64, lastOrderDate *time.Time, metadata map[string]any) *Customer {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &Customer{
		ID:            id,
		Name:          strings.TrimSpace(name),
		Email:         NormalizeEmail(email),
		Phone:         strings.TrimSpace(phone),
		TotalSpent:    RoundMoney(totalSpent),
		LastOrderDate: lastOrderDate,
		Metadata:      metadata,
		CreatedAt:     time.Now().UTC(),
	}
}

// ApplyOrder folds an order into the customer's spend and sets last_order_date to the order's date.
func (c *Customer) ApplyOrder(amount float64, date time.Time) {
	c.TotalSpent = AddMoney(c.TotalSpent, amount)
	d := date.UTC()
	c.LastOrderDate = &d
}

// StringField returns the value of a textual attribute by its rule field name.
func (c *Customer) StringField(field string) (string, bool) {
	switch field {
	case "email":
		return c.Email, true
	case "name":
		return c.Name, true
	case "phone":
		return c.Phone, true
	default:
		return "", false
	}
}

// LineItem is one sku within an order.
type LineItem struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// Order is immutable once created.
type Order struct {
	ID            uuid.UUID      `json:"id"`
	CustomerEmail string         `json:"customer_email"`
	Amount        float64        `json:"amount"`
	Date          time.Time      `json:"date"`
	Items         []LineItem     `json:"items,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// NewOrder creates a new Order instance. A zero date means "now".
func NewOrder(id uuid.UUID, customerEmail string, amount float64, date time.Time, items []LineItem, metadata map[string]any) *Order {
	now := time.Now().UTC()
	if date.IsZero() {
		date = now
	}
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &Order{
		ID:            id,
		CustomerEmail: NormalizeEmail(customerEmail),
		Amount:        RoundMoney(amount),
		Date:          date.UTC(),
		Items:         items,
		Metadata:      metadata,
		CreatedAt:     now,
	}
}

// Validate checks the invariants an order must satisfy before it is stored.
func (o *Order) Validate() error {
	if o.CustomerEmail == "" {
		return NewValidationError("customer_email", "is required")
	}
	if o.Amount < 0 {
		return NewValidationError("amount", "must not be negative")
	}
	for _, it := range o.Items {
		if strings.TrimSpace(it.SKU) == "" {
			return NewValidationError("items.sku", "is required")
		}
		if it.Quantity <= 0 {
			return NewValidationError("items.quantity", "must be positive")
		}
	}
	return nil
}
