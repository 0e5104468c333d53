package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Field names a customer attribute a condition can test.
type Field string

const (
	FieldTotalSpent    Field = "total_spent"
	FieldEmail         Field = "email"
	FieldLastOrderDate Field = "last_order_date"
)

func (f Field) Valid() bool {
	switch f {
	case FieldTotalSpent, FieldEmail, FieldLastOrderDate:
		return true
	}
	return false
}

// Operator is a comparison between a customer attribute and a condition value.
type Operator string

const (
	OpGT  Operator = "gt"
	OpGTE Operator = "gte"
	OpLT  Operator = "lt"
	OpLTE Operator = "lte"
	OpEQ  Operator = "eq"
	OpNEQ Operator = "neq"
)

func (o Operator) Valid() bool {
	switch o {
	case OpGT, OpGTE, OpLT, OpLTE, OpEQ, OpNEQ:
		return true
	}
	return false
}

// Logic composes a condition list.
type Logic string

const (
	LogicAND Logic = "AND"
	LogicOR  Logic = "OR"
)

// ParseLogic normalizes a logic string. Empty defaults to AND.
func ParseLogic(s string) (Logic, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(LogicAND):
		return LogicAND, nil
	case string(LogicOR):
		return LogicOR, nil
	}
	return "", NewValidationError("logic", "must be AND or OR")
}

// Condition is a pure value object: {field, operator, value}.
type Condition struct {
	Field    Field    `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// ValidateConditions enforces a non-empty list of well-formed conditions.
func ValidateConditions(conditions []Condition) error {
	if len(conditions) == 0 {
		return NewValidationError("conditions", "at least one condition is required")
	}
	for _, c := range conditions {
		if !c.Field.Valid() {
			return NewValidationError("conditions.field", "unsupported field '"+string(c.Field)+"'")
		}
		if !c.Operator.Valid() {
			return NewValidationError("conditions.operator", "unsupported operator '"+string(c.Operator)+"'")
		}
		if c.Value == nil {
			return NewValidationError("conditions.value", "is required")
		}
	}
	return nil
}

// Segment is a saved, named audience-selection rule-set. Immutable after creation.
type Segment struct {
	ID         uuid.UUID   `json:"id"`
	Name       string      `json:"name"`
	Conditions []Condition `json:"conditions"`
	Logic      Logic       `json:"logic"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewSegment validates and builds a Segment.
func NewSegment(id uuid.UUID, name string, conditions []Condition, logic string) (*Segment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name", "is required")
	}
	if err := ValidateConditions(conditions); err != nil {
		return nil, err
	}
	l, err := ParseLogic(logic)
	if err != nil {
		return nil, err
	}
	conds := make([]Condition, len(conditions))
	copy(conds, conditions)
	return &Segment{
		ID:         id,
		Name:       name,
		Conditions: conds,
		Logic:      l,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
