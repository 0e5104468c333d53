package app

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
)

var epoch = time.Unix(0, 0).UTC()

// dateLayouts are tried in order when a condition value is a string.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Match evaluates one condition against one customer. Unusable values fail closed.
func Match(c *domain.Customer, cond domain.Condition) bool {
	switch cond.Field {
	case domain.FieldLastOrderDate:
		want, ok := parseDateValue(cond.Value)
		if !ok {
			return false
		}
		have := epoch
		if c.LastOrderDate != nil {
			have = c.LastOrderDate.UTC()
		}
		return compareOrdered(cond.Operator, have.Compare(want), 0)

	case domain.FieldTotalSpent:
		want, ok := parseNumberValue(cond.Value)
		if !ok {
			return false
		}
		return compareOrdered(cond.Operator, c.TotalSpent, want)

	default:
		have, ok := c.StringField(string(cond.Field))
		if !ok {
			return false
		}
		want, ok := stringValue(cond.Value)
		if !ok {
			return false
		}
		switch cond.Operator {
		case domain.OpEQ:
			return strings.EqualFold(have, want)
		case domain.OpNEQ:
			return !strings.EqualFold(have, want)
		default:
			// No lexical ordering on text fields.
			return false
		}
	}
}

// Evaluate composes conditions with AND/OR. Every condition is evaluated.
// Callers reject empty lists before getting here; an empty list matches nothing.
func Evaluate(c *domain.Customer, conditions []domain.Condition, logic domain.Logic) bool {
	if len(conditions) == 0 {
		return false
	}
	matched := 0
	for _, cond := range conditions {
		if Match(c, cond) {
			matched++
		}
	}
	if logic == domain.LogicOR {
		return matched > 0
	}
	return matched == len(conditions)
}

type ordered interface {
	~int | ~float64
}

func compareOrdered[T ordered](op domain.Operator, have, want T) bool {
	switch op {
	case domain.OpGT:
		return have > want
	case domain.OpGTE:
		return have >= want
	case domain.OpLT:
		return have < want
	case domain.OpLTE:
		return have <= want
	case domain.OpEQ:
		return have == want
	case domain.OpNEQ:
		return have != want
	}
	return false
}

func parseNumberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// parseDateValue accepts time values, date strings, and numbers as unix milliseconds.
func parseDateValue(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d.UTC(), true
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	}
	if ms, ok := parseNumberValue(v); ok {
		// Outside the int64 range the conversion is undefined.
		if math.IsNaN(ms) || ms < -(1<<63) || ms >= 1<<63 {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(ms)).UTC(), true
	}
	return time.Time{}, false
}

func stringValue(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), true
	case fmt.Stringer:
		return s.String(), true
	case float64, int, int64, json.Number, bool:
		return fmt.Sprint(s), true
	}
	return "", false
}
