// Package core exposes the transactional service the form and list layers
// persist through. It wraps a persistent store, evaluates server-side
// validation rules at the transaction boundary, and reports operations to the
// configured observability hooks.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"farmcore/internal/infra/persistence/memory"
	"farmcore/pkg/domain"
	"farmcore/pkg/form"
	"farmcore/pkg/record"
)

// Service exposes higher-level transactional CRUD operations over the farm
// entity buckets.
type Service struct {
	store   domain.PersistentStore
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	clock   Clock
}

// Option customizes a service at construction.
type Option func(*Service)

// WithLogger sets the operational logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(metrics MetricsRecorder) Option {
	return func(s *Service) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithTracer sets the span tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithClock overrides the service clock. Stores that expose a clock hook pick
// it up too.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
	}
	for _, opt := range opts {
		opt(s)
	}
	if hooked, ok := store.(interface{ SetNowFunc(func() time.Time) }); ok {
		hooked.SetNowFunc(s.clock.Now)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store with the
// given rules engine.
func NewInMemoryService(engine *domain.RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore { return s.store }

// instrument wraps one operation with tracing, timing, and logging.
func (s *Service) instrument(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, operation)
	started := s.clock.Now()
	err := fn(ctx)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, s.clock.Now().Sub(started))
	if err != nil {
		s.logger.Warnf("%s failed: %v", operation, err)
	} else {
		s.logger.Debugf("%s ok", operation)
	}
	return err
}

// translateRuleError converts a blocking rule abort into the wire-shaped
// validation error form sessions understand. Other errors pass through.
func translateRuleError(err error) error {
	var ruleErr domain.RuleViolationError
	if errors.As(err, &ruleErr) {
		return domain.NewValidationError(ruleErr.Result)
	}
	return err
}

// Create persists a new entity in the given bucket.
func (s *Service) Create(ctx context.Context, entity domain.EntityType, fields record.Record) (domain.Entity, domain.Result, error) {
	var created domain.Entity
	var result domain.Result
	err := s.instrument(ctx, "create_"+string(entity), func(ctx context.Context) error {
		res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			created, err = tx.Create(entity, fields)
			return err
		})
		result = res
		return translateRuleError(err)
	})
	return created, result, err
}

// Update mutates an entity's fields using the provided mutator.
func (s *Service) Update(ctx context.Context, entity domain.EntityType, id string, mutator func(*record.Record) error) (domain.Entity, domain.Result, error) {
	var updated domain.Entity
	var result domain.Result
	err := s.instrument(ctx, "update_"+string(entity), func(ctx context.Context) error {
		res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			updated, err = tx.Update(entity, id, mutator)
			return err
		})
		result = res
		return translateRuleError(err)
	})
	return updated, result, err
}

// Replace overwrites an entity's fields wholesale, the submit path for edit
// sessions.
func (s *Service) Replace(ctx context.Context, entity domain.EntityType, id string, fields record.Record) (domain.Entity, domain.Result, error) {
	return s.Update(ctx, entity, id, func(current *record.Record) error {
		*current = record.Clone(fields)
		return nil
	})
}

// Delete removes an entity from its bucket.
func (s *Service) Delete(ctx context.Context, entity domain.EntityType, id string) (domain.Result, error) {
	var result domain.Result
	err := s.instrument(ctx, "delete_"+string(entity), func(ctx context.Context) error {
		res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return tx.Delete(entity, id)
		})
		result = res
		return translateRuleError(err)
	})
	return result, err
}

// Get retrieves one entity from committed state.
func (s *Service) Get(ctx context.Context, entity domain.EntityType, id string) (domain.Entity, error) {
	var found domain.Entity
	err := s.instrument(ctx, "get_"+string(entity), func(ctx context.Context) error {
		return s.store.View(ctx, func(v domain.RuleView) error {
			item, ok := v.Find(entity, id)
			if !ok {
				return domain.ErrNotFound{Entity: entity, ID: id}
			}
			found = item
			return nil
		})
	})
	return found, err
}

// List returns every entity in a bucket.
func (s *Service) List(ctx context.Context, entity domain.EntityType) ([]domain.Entity, error) {
	var items []domain.Entity
	err := s.instrument(ctx, "list_"+string(entity), func(ctx context.Context) error {
		return s.store.View(ctx, func(v domain.RuleView) error {
			items = v.List(entity)
			return nil
		})
	})
	return items, err
}

// Records returns a bucket's contents as bare record trees, the shape list
// views and optimistic mutators work with.
func (s *Service) Records(ctx context.Context, entity domain.EntityType) ([]record.Record, error) {
	items, err := s.List(ctx, entity)
	if err != nil {
		return nil, err
	}
	out := make([]record.Record, len(items))
	for i, item := range items {
		out[i] = item.Fields
	}
	return out, nil
}

// formPersistence adapts one entity bucket to the form collaborator contract.
type formPersistence struct {
	svc    *Service
	entity domain.EntityType
}

var _ form.Persistence = (*formPersistence)(nil)

// Forms returns the persistence collaborator a form session submits through
// for the given bucket.
func (s *Service) Forms(entity domain.EntityType) form.Persistence {
	return &formPersistence{svc: s, entity: entity}
}

// FetchOne loads the record tree behind one entity.
func (p *formPersistence) FetchOne(ctx context.Context, id string) (record.Record, error) {
	item, err := p.svc.Get(ctx, p.entity, id)
	if err != nil {
		return nil, err
	}
	return item.Fields, nil
}

// Create persists a fresh record and returns the stored tree.
func (p *formPersistence) Create(ctx context.Context, fields record.Record) (record.Record, error) {
	created, _, err := p.svc.Create(ctx, p.entity, fields)
	if err != nil {
		return nil, err
	}
	return created.Fields, nil
}

// Update replaces the record tree behind an existing entity.
func (p *formPersistence) Update(ctx context.Context, id string, fields record.Record) (record.Record, error) {
	updated, _, err := p.svc.Replace(ctx, p.entity, id, fields)
	if err != nil {
		return nil, err
	}
	return updated.Fields, nil
}

// Remove deletes an entity, wrapping validation aborts like the other ops.
func (p *formPersistence) Remove(ctx context.Context, id string) error {
	_, err := p.svc.Delete(ctx, p.entity, id)
	if err != nil {
		return fmt.Errorf("remove %s %s: %w", p.entity, id, err)
	}
	return nil
}
