package core

import "farmcore/pkg/domain"

// NewDefaultRulesEngine returns a rules engine preloaded with the standard
// farm validation rules.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewRequiredFieldsRule())
	engine.Register(NewTaxonomyMembershipRule())
	engine.Register(NewNonNegativeDurationRule())
	engine.Register(NewPositiveQuantityRule())
	return engine
}
