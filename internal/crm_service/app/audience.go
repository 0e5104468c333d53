package app

import (
	"github.com/aradsms/crm_services/internal/crm_service/domain"
)

const (
	// PreviewSampleSize caps the customers returned by a preview.
	PreviewSampleSize = 10
)

// PreviewResult is the full match count plus the first matches.
type PreviewResult struct {
	Count  int                `json:"count"`
	Sample []*domain.Customer `json:"sample"`
}

// Resolve returns the customers matching seg, in the order given.
func Resolve(customers []*domain.Customer, seg *domain.Segment) []*domain.Customer {
	return filter(customers, seg.Conditions, seg.Logic)
}

// Preview evaluates an unsaved rule-set.
func Preview(customers []*domain.Customer, conditions []domain.Condition, logic domain.Logic) PreviewResult {
	matches := filter(customers, conditions, logic)
	n := len(matches)
	if n > PreviewSampleSize {
		n = PreviewSampleSize
	}
	return PreviewResult{
		Count:  len(matches),
		Sample: append([]*domain.Customer{}, matches[:n]...),
	}
}

func filter(customers []*domain.Customer, conditions []domain.Condition, logic domain.Logic) []*domain.Customer {
	var out []*domain.Customer
	for _, c := range customers {
		if Evaluate(c, conditions, logic) {
			out = append(out, c)
		}
	}
	return out
}
