// Package domain defines the persistent farm entities, validation primitives,
// and persistence contracts shared by the form engine and its stores.
package domain

import (
	"fmt"
	"sort"
	"time"

	"farmcore/pkg/record"
)

// EntityType identifies the kind of record stored in a persistence bucket.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityAnimal identifies an individual animal record.
	EntityAnimal EntityType = "animal"
	// EntityHealthRecord identifies a veterinary health record.
	EntityHealthRecord EntityType = "health_record"
	// EntityBreedingRecord identifies a breeding record.
	EntityBreedingRecord EntityType = "breeding_record"
	// EntityProductionRecord identifies a production yield record.
	EntityProductionRecord EntityType = "production_record"
	// EntityTask identifies a scheduled task record.
	EntityTask EntityType = "task"
	// EntitySupplier identifies a supplier record.
	EntitySupplier EntityType = "supplier"
	// EntityNote identifies a free-form note record.
	EntityNote EntityType = "note"
)

// EntityTypes lists every supported entity type in bucket order.
func EntityTypes() []EntityType {
	return []EntityType{
		EntityAnimal,
		EntityHealthRecord,
		EntityBreedingRecord,
		EntityProductionRecord,
		EntityTask,
		EntitySupplier,
		EntityNote,
	}
}

// Entity is the stored envelope around one record tree.
type Entity struct {
	ID        string        `json:"id"`
	Type      EntityType    `json:"type"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Fields    record.Record `json:"fields"`
}

// Clone returns a deep copy of the entity.
func (e Entity) Clone() Entity {
	cp := e
	cp.Fields = record.Clone(e.Fields)
	return cp
}

// Action identifies the mutation kind captured in a Change.
type Action string

// Mutation kinds recorded within a transaction.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change captures one mutation applied within a transaction, for rule evaluation.
type Change struct {
	Entity EntityType
	Action Action
	Before *Entity
	After  *Entity
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn allows commit but is surfaced to callers.
	SeverityWarn Severity = "warn"
)

// Violation describes one rule finding, scoped to a field path when the rule
// can attribute it to a specific field.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
	Field    string
}

// Result aggregates violations across rule evaluations.
type Result struct {
	Violations []Violation
}

// Merge appends another result's violations.
func (r *Result) Merge(other Result) {
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking reports whether the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// FieldErrors folds blocking violations into a field-path keyed message map,
// the shape form sessions merge into their error maps. Violations without a
// field path are grouped under the empty key.
func (r Result) FieldErrors() map[string][]string {
	out := make(map[string][]string)
	for _, v := range r.Violations {
		if v.Severity != SeverityBlock {
			continue
		}
		out[v.Field] = append(out[v.Field], v.Message)
	}
	return out
}

// RuleViolationError is returned when blocking violations abort a transaction.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by validation rules"
}

// ErrNotFound is returned when an entity lookup fails.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ValidationError is the structured failure shape the persistence collaborator
// hands back to form sessions: a top-level message plus per-field messages.
type ValidationError struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return e.Message
	}
	paths := make([]string, 0, len(e.Errors))
	for path := range e.Errors {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return fmt.Sprintf("%s (fields: %v)", e.Message, paths)
}

// FieldErrors returns the per-field payload as loosely typed values, matching
// what a decoded wire response would carry.
func (e ValidationError) FieldErrors() map[string]any {
	out := make(map[string]any, len(e.Errors))
	for path, messages := range e.Errors {
		out[path] = messages
	}
	return out
}

// NewValidationError converts a blocking rule result into the wire shape.
func NewValidationError(result Result) ValidationError {
	return ValidationError{
		Message: "validation failed",
		Errors:  result.FieldErrors(),
	}
}
