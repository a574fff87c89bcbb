package core

import (
	"context"
	"fmt"
	"strconv"

	"farmcore/pkg/domain"
	"farmcore/pkg/record"
)

// NewNonNegativeDurationRule returns the in-transaction rule rejecting
// negative duration values. The form layer stores whatever the temporal pair
// computes, so an end time placed before its start surfaces here as a field
// violation on submit rather than being silently clamped.
func NewNonNegativeDurationRule() domain.Rule {
	return nonNegativeDurationRule{}
}

type nonNegativeDurationRule struct{}

func (nonNegativeDurationRule) Name() string { return "non_negative_duration" }

func (nonNegativeDurationRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.After == nil {
			continue
		}
		value, ok := record.Get(change.After.Fields, "duration")
		if !ok {
			continue
		}
		minutes, ok := asFloat(value)
		if !ok || minutes >= 0 {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "non_negative_duration",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("duration %.0f minutes is negative", minutes),
			Entity:   change.Entity,
			EntityID: change.After.ID,
			Field:    "duration",
		})
	}
	return res, nil
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
