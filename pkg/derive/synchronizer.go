// Package derive keeps computed record fields consistent with the source
// fields they are derived from. Each rule observes a set of source paths and
// rewrites its target paths whenever a source changes.
package derive

import (
	"reflect"

	"farmcore/pkg/record"
)

// Rule recomputes one or more target paths from the current values of its
// source paths. Compute returns the desired value per target path; a nil map
// leaves every target untouched.
type Rule struct {
	Name    string
	Sources []string
	Targets []string
	Compute func(rec record.Record) map[string]any
}

// Synchronizer applies a fixed rule set after record edits.
type Synchronizer struct {
	rules []Rule
}

// NewSynchronizer builds a synchronizer over the given rules, applied in
// registration order.
func NewSynchronizer(rules ...Rule) *Synchronizer {
	return &Synchronizer{rules: rules}
}

// Apply recomputes the targets of every rule whose source set includes
// editedPath. A rule whose own target was edited is skipped, which is what
// keeps bidirectional pairs from feeding back into each other: each direction
// is a separate rule, and a freshly computed value is only written when it
// differs from the current one. The input record is never mutated.
func (s *Synchronizer) Apply(rec record.Record, editedPath string) record.Record {
	for _, rule := range s.rules {
		if containsPath(rule.Targets, editedPath) {
			continue
		}
		if !containsPath(rule.Sources, editedPath) {
			continue
		}
		rec = applyRule(rec, rule)
	}
	return rec
}

// Normalize runs every rule once in registration order, writing only values
// that differ. Used when a persisted record is loaded under a newer rule set.
func (s *Synchronizer) Normalize(rec record.Record) record.Record {
	for _, rule := range s.rules {
		rec = applyRule(rec, rule)
	}
	return rec
}

// Rules returns the configured rules in registration order.
func (s *Synchronizer) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

func applyRule(rec record.Record, rule Rule) record.Record {
	computed := rule.Compute(rec)
	if computed == nil {
		return rec
	}
	for _, target := range rule.Targets {
		value, ok := computed[target]
		if !ok {
			continue
		}
		current, _ := record.Get(rec, target)
		if reflect.DeepEqual(current, value) {
			continue
		}
		rec = record.Set(rec, target, value)
	}
	return rec
}

func containsPath(paths []string, path string) bool {
	for _, p := range paths {
		if p == path {
			return true
		}
	}
	return false
}
