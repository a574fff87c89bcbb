package core

import (
	"context"
	"fmt"

	"farmcore/pkg/domain"
	"farmcore/pkg/record"
	"farmcore/pkg/taxonomy"
)

// NewTaxonomyMembershipRule returns the in-transaction rule rejecting
// dependent field values outside the legal set for their trigger. It guards
// the same tables the form cascade reconciles client-side, so records written
// by other paths cannot drift out of the taxonomy.
func NewTaxonomyMembershipRule() domain.Rule {
	return taxonomyMembershipRule{rules: taxonomy.DefaultCascade()}
}

type taxonomyMembershipRule struct {
	rules []taxonomy.CascadeRule
}

func (taxonomyMembershipRule) Name() string { return "taxonomy_membership" }

func (r taxonomyMembershipRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.After == nil {
			continue
		}
		for _, rule := range r.rules {
			dependent := record.GetString(change.After.Fields, rule.Dependent)
			if dependent == "" {
				continue
			}
			trigger := record.GetString(change.After.Fields, rule.Trigger)
			if legal(taxonomy.OptionsFor(rule.Table, trigger), dependent) {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "taxonomy_membership",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("%q is not valid for %s %q", dependent, rule.Trigger, trigger),
				Entity:   change.Entity,
				EntityID: change.After.ID,
				Field:    rule.Dependent,
			})
		}
	}
	return res, nil
}

func legal(options []string, value string) bool {
	for _, option := range options {
		if option == value {
			return true
		}
	}
	return false
}
