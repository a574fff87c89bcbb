package core

import (
	"context"

	"farmcore/pkg/domain"
	"farmcore/pkg/record"
)

// requiredFieldsByEntity lists the field paths that must be non-empty for a
// bucket's records to commit.
var requiredFieldsByEntity = map[domain.EntityType][]string{
	domain.EntityAnimal:           {"name", "animal_type"},
	domain.EntityHealthRecord:     {"animal_id", "record_type"},
	domain.EntityBreedingRecord:   {"dam_id", "sire_id"},
	domain.EntityProductionRecord: {"product_category.name", "quantity"},
	domain.EntityTask:             {"title"},
	domain.EntitySupplier:         {"name"},
	domain.EntityNote:             {"content"},
}

// NewRequiredFieldsRule returns the in-transaction rule enforcing that each
// bucket's required field paths carry a value.
func NewRequiredFieldsRule() domain.Rule {
	return requiredFieldsRule{}
}

type requiredFieldsRule struct{}

func (requiredFieldsRule) Name() string { return "required_fields" }

func (requiredFieldsRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.After == nil {
			continue
		}
		for _, path := range requiredFieldsByEntity[change.Entity] {
			value, ok := record.Get(change.After.Fields, path)
			if ok && value != nil && value != "" {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "required_fields",
				Severity: domain.SeverityBlock,
				Message:  "required",
				Entity:   change.Entity,
				EntityID: change.After.ID,
				Field:    path,
			})
		}
	}
	return res, nil
}
