package domain

import (
	"context"

	"farmcore/pkg/record"
)

// Transaction exposes the mutations a persistence implementation must support
// within an atomic scope.
type Transaction interface {
	Create(entity EntityType, fields record.Record) (Entity, error)
	Update(entity EntityType, id string, mutator func(*record.Record) error) (Entity, error)
	Delete(entity EntityType, id string) error
	Find(entity EntityType, id string) (Entity, bool)
	Snapshot() RuleView
}

// PersistentStore is a minimal abstraction over durable backends. Rule
// evaluation happens inside RunInTransaction; blocking violations abort the
// commit.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(RuleView) error) error
	Get(entity EntityType, id string) (Entity, bool)
	List(entity EntityType) []Entity
}
