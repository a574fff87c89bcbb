package core

import (
	"context"
	"fmt"

	"farmcore/pkg/domain"
	"farmcore/pkg/record"
)

// NewPositiveQuantityRule returns the in-transaction rule requiring production
// quantities to be strictly positive.
func NewPositiveQuantityRule() domain.Rule {
	return positiveQuantityRule{}
}

type positiveQuantityRule struct{}

func (positiveQuantityRule) Name() string { return "positive_quantity" }

func (positiveQuantityRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.After == nil || change.Entity != domain.EntityProductionRecord {
			continue
		}
		value, ok := record.Get(change.After.Fields, "quantity")
		if !ok {
			continue
		}
		quantity, parsed := asFloat(value)
		if parsed && quantity > 0 {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "positive_quantity",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("quantity %v must be a positive number", value),
			Entity:   change.Entity,
			EntityID: change.After.ID,
			Field:    "quantity",
		})
	}
	return res, nil
}
