// Package memory provides an in-memory implementation of the persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"farmcore/pkg/domain"
	"farmcore/pkg/record"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain
// persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type bucketState map[domain.EntityType]map[string]domain.Entity

// Snapshot is the serialisable representation of the in-memory state, keyed
// by bucket name.
type Snapshot map[domain.EntityType]map[string]domain.Entity

func newBucketState() bucketState {
	state := make(bucketState, len(domain.EntityTypes()))
	for _, entity := range domain.EntityTypes() {
		state[entity] = make(map[string]domain.Entity)
	}
	return state
}

func (s bucketState) clone() bucketState {
	cloned := make(bucketState, len(s))
	for entity, bucket := range s {
		copied := make(map[string]domain.Entity, len(bucket))
		for id, item := range bucket {
			copied[id] = item.Clone()
		}
		cloned[entity] = copied
	}
	return cloned
}

// Store is an in-memory transactional store evaluating validation rules at
// commit time.
type Store struct {
	mu     sync.RWMutex
	state  bucketState
	engine *domain.RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *domain.RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newBucketState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the transaction clock, for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState returns a deep snapshot of the committed state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot(s.state.clone())
}

// ImportState replaces the committed state with the snapshot contents.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := newBucketState()
	for entity, bucket := range snapshot {
		copied := make(map[string]domain.Entity, len(bucket))
		for id, item := range bucket {
			copied[id] = item.Clone()
		}
		state[entity] = copied
	}
	s.state = state
}

type transaction struct {
	store   *Store
	state   bucketState
	changes []domain.Change
	now     time.Time
}

type view struct {
	state bucketState
}

// List returns all entities in a bucket.
func (v view) List(entity domain.EntityType) []domain.Entity {
	out := make([]domain.Entity, 0, len(v.state[entity]))
	for _, item := range v.state[entity] {
		out = append(out, item.Clone())
	}
	return out
}

// Find retrieves one entity by id.
func (v view) Find(entity domain.EntityType, id string) (domain.Entity, bool) {
	item, ok := v.state[entity][id]
	if !ok {
		return domain.Entity{}, false
	}
	return item.Clone(), true
}

// RunInTransaction executes fn within a transactional copy of the store
// state, evaluates the rules engine against the result, and commits unless a
// blocking violation or error occurred.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{store: s, state: s.state.clone(), now: s.nowFn()}
	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, view{state: tx.state}, tx.changes)
		if err != nil {
			return domain.Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}
	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the committed state.
func (s *Store) View(_ context.Context, fn func(domain.RuleView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(view{state: s.state.clone()})
}

// Get retrieves an entity from committed state.
func (s *Store) Get(entity domain.EntityType, id string) (domain.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.state[entity][id]
	if !ok {
		return domain.Entity{}, false
	}
	return item.Clone(), true
}

// List returns all committed entities in a bucket.
func (s *Store) List(entity domain.EntityType) []domain.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Entity, 0, len(s.state[entity]))
	for _, item := range s.state[entity] {
		out = append(out, item.Clone())
	}
	return out
}

func (tx *transaction) recordChange(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot exposes the transactional state to rules and callers.
func (tx *transaction) Snapshot() domain.RuleView {
	return view{state: tx.state}
}

// Find retrieves one entity from the transactional state.
func (tx *transaction) Find(entity domain.EntityType, id string) (domain.Entity, bool) {
	item, ok := tx.state[entity][id]
	if !ok {
		return domain.Entity{}, false
	}
	return item.Clone(), true
}

// Create stores a new entity within the transaction.
func (tx *transaction) Create(entity domain.EntityType, fields record.Record) (domain.Entity, error) {
	id := record.GetString(fields, "id")
	if id == "" {
		id = tx.store.newID()
		fields = record.Set(fields, "id", id)
	}
	if _, exists := tx.state[entity][id]; exists {
		return domain.Entity{}, domain.ValidationError{
			Message: "duplicate identifier",
			Errors:  map[string][]string{"id": {"already exists"}},
		}
	}
	item := domain.Entity{
		ID:        id,
		Type:      entity,
		CreatedAt: tx.now,
		UpdatedAt: tx.now,
		Fields:    record.Clone(fields),
	}
	tx.state[entity][id] = item
	after := item.Clone()
	tx.recordChange(domain.Change{Entity: entity, Action: domain.ActionCreate, After: &after})
	return item.Clone(), nil
}

// Update mutates an entity's fields using the provided mutator.
func (tx *transaction) Update(entity domain.EntityType, id string, mutator func(*record.Record) error) (domain.Entity, error) {
	current, ok := tx.state[entity][id]
	if !ok {
		return domain.Entity{}, domain.ErrNotFound{Entity: entity, ID: id}
	}
	before := current.Clone()
	fields := record.Clone(current.Fields)
	if err := mutator(&fields); err != nil {
		return domain.Entity{}, err
	}
	current.Fields = record.Set(fields, "id", id)
	current.UpdatedAt = tx.now
	tx.state[entity][id] = current
	after := current.Clone()
	tx.recordChange(domain.Change{Entity: entity, Action: domain.ActionUpdate, Before: &before, After: &after})
	return current.Clone(), nil
}

// Delete removes an entity from the transaction state.
func (tx *transaction) Delete(entity domain.EntityType, id string) error {
	current, ok := tx.state[entity][id]
	if !ok {
		return domain.ErrNotFound{Entity: entity, ID: id}
	}
	delete(tx.state[entity], id)
	before := current.Clone()
	tx.recordChange(domain.Change{Entity: entity, Action: domain.ActionDelete, Before: &before})
	return nil
}
