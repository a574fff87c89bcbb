// Package taxonomy constrains dependent record fields to the legal values
// allowed by their trigger field, cascading resets when a trigger changes.
package taxonomy

import (
	"fmt"

	"farmcore/pkg/record"
)

// Table maps a trigger field's value to the ordered legal values of a
// dependent field. Tables are pure data, loaded once and immutable for the
// lifetime of a form session.
type Table map[string][]string

// CascadeRule binds a trigger path to a dependent path through a table.
type CascadeRule struct {
	Trigger   string
	Dependent string
	Table     Table
}

// ConfigurationError reports an invalid cascade configuration. It is raised
// once at resolver construction, never during normal operation.
type ConfigurationError struct {
	Reason string
}

func (e ConfigurationError) Error() string {
	return "taxonomy configuration: " + e.Reason
}

// Resolver evaluates cascade rules against record state. A resolver is
// read-only after construction and safe to share across sessions.
type Resolver struct {
	rules []CascadeRule
	// byTrigger indexes rule positions by trigger path, preserving
	// registration order within a trigger.
	byTrigger map[string][]int
}

// NewResolver validates the cascade graph and builds a resolver. A cyclic
// trigger/dependent graph is rejected with ConfigurationError.
func NewResolver(rules ...CascadeRule) (*Resolver, error) {
	byTrigger := make(map[string][]int, len(rules))
	for i, rule := range rules {
		if rule.Trigger == "" || rule.Dependent == "" {
			return nil, ConfigurationError{Reason: fmt.Sprintf("rule %d has an empty trigger or dependent path", i)}
		}
		if rule.Trigger == rule.Dependent {
			return nil, ConfigurationError{Reason: fmt.Sprintf("rule %d makes %s depend on itself", i, rule.Trigger)}
		}
		if rule.Table == nil {
			return nil, ConfigurationError{Reason: fmt.Sprintf("rule %d (%s -> %s) has no table", i, rule.Trigger, rule.Dependent)}
		}
		byTrigger[rule.Trigger] = append(byTrigger[rule.Trigger], i)
	}
	if cycle := findCycle(rules, byTrigger); cycle != "" {
		return nil, ConfigurationError{Reason: "cyclic cascade through " + cycle}
	}
	return &Resolver{rules: rules, byTrigger: byTrigger}, nil
}

// findCycle walks trigger->dependent edges depth-first and returns the path
// that revisits an in-progress node, or "" when the graph is acyclic.
func findCycle(rules []CascadeRule, byTrigger map[string][]int) string {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int)
	var visit func(path string) string
	visit = func(path string) string {
		state[path] = visiting
		for _, idx := range byTrigger[path] {
			next := rules[idx].Dependent
			switch state[next] {
			case visiting:
				return path + " -> " + next
			case unvisited:
				if cycle := visit(next); cycle != "" {
					return cycle
				}
			}
		}
		state[path] = done
		return ""
	}
	for trigger := range byTrigger {
		if state[trigger] == unvisited {
			if cycle := visit(trigger); cycle != "" {
				return cycle
			}
		}
	}
	return ""
}

// OptionsFor returns the ordered legal values for a dependent field given the
// trigger's current value. An empty trigger value or a value without a table
// entry yields an empty list.
func OptionsFor(table Table, triggerValue string) []string {
	if triggerValue == "" {
		return nil
	}
	options, ok := table[triggerValue]
	if !ok {
		return nil
	}
	out := make([]string, len(options))
	copy(out, options)
	return out
}

// Rules returns the configured cascade rules in registration order.
func (r *Resolver) Rules() []CascadeRule {
	out := make([]CascadeRule, len(r.rules))
	copy(out, r.rules)
	return out
}

// ReconcileFrom cascades resets from an edit to editedPath. Rules triggered by
// the edited path fire first; when a reconciled dependent is itself a trigger
// for further rules, those fire transitively, depth-first. The input record is
// never mutated.
func (r *Resolver) ReconcileFrom(rec record.Record, editedPath string) record.Record {
	return r.cascade(rec, editedPath)
}

// Reconcile applies every configured rule once, in registration order, then
// cascades from any dependent it rewrote. Used to normalize records loaded
// from persistence under an older rule set.
func (r *Resolver) Reconcile(rec record.Record) record.Record {
	for _, rule := range r.rules {
		next, changed := r.applyRule(rec, rule)
		rec = next
		if changed {
			rec = r.cascade(rec, rule.Dependent)
		}
	}
	return rec
}

func (r *Resolver) cascade(rec record.Record, triggerPath string) record.Record {
	for _, idx := range r.byTrigger[triggerPath] {
		rule := r.rules[idx]
		next, changed := r.applyRule(rec, rule)
		rec = next
		if changed {
			rec = r.cascade(rec, rule.Dependent)
		}
	}
	return rec
}

// applyRule resets the rule's dependent when its current value is non-empty
// and no longer legal for the trigger's value. The replacement is the first
// legal option, or empty when the option set is empty.
func (r *Resolver) applyRule(rec record.Record, rule CascadeRule) (record.Record, bool) {
	current := record.GetString(rec, rule.Dependent)
	if current == "" {
		return rec, false
	}
	options := OptionsFor(rule.Table, record.GetString(rec, rule.Trigger))
	for _, option := range options {
		if option == current {
			return rec, false
		}
	}
	replacement := ""
	if len(options) > 0 {
		replacement = options[0]
	}
	return record.Set(rec, rule.Dependent, replacement), true
}
