// Package form manages the lifecycle of one record-editing session: loading,
// edit pipeline, submission, and the per-field error state that goes with it.
package form

import (
	"context"
	"errors"
	"sync"

	"farmcore/pkg/derive"
	"farmcore/pkg/domain"
	"farmcore/pkg/errmap"
	"farmcore/pkg/record"
	"farmcore/pkg/taxonomy"
)

// State names a position in the session lifecycle.
type State string

// Session lifecycle states. Succeeded is terminal; a failed submission
// returns the session to StateReady with its error map populated.
const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
)

// Session errors.
var (
	// ErrNotEditable is returned when an edit arrives outside StateReady.
	ErrNotEditable = errors.New("form: session is not editable")
	// ErrSubmitInFlight is returned when a submit overlaps another.
	ErrSubmitInFlight = errors.New("form: submit already in flight")
	// ErrNotReady is returned when submit is called outside StateReady.
	ErrNotReady = errors.New("form: session is not ready to submit")
)

// Persistence is the external collaborator a session submits through.
type Persistence interface {
	FetchOne(ctx context.Context, id string) (record.Record, error)
	Create(ctx context.Context, fields record.Record) (record.Record, error)
	Update(ctx context.Context, id string, fields record.Record) (record.Record, error)
	Remove(ctx context.Context, id string) error
}

// Engine bundles the cascade resolver and derived-field synchronizer one
// session runs its edits through. Engines are stateless and shareable.
type Engine struct {
	Resolver     *taxonomy.Resolver
	Synchronizer *derive.Synchronizer
}

// normalize corrects a record that may predate the current rule set: cascade
// constraints first, then derived fields.
func (e Engine) normalize(rec record.Record) record.Record {
	if e.Resolver != nil {
		rec = e.Resolver.Reconcile(rec)
	}
	if e.Synchronizer != nil {
		rec = e.Synchronizer.Normalize(rec)
	}
	return rec
}

// applyEdit runs the edit pipeline for one field write.
func (e Engine) applyEdit(rec record.Record, path string, value any) record.Record {
	rec = record.Set(rec, path, value)
	if e.Resolver != nil {
		rec = e.Resolver.ReconcileFrom(rec, path)
	}
	if e.Synchronizer != nil {
		rec = e.Synchronizer.Apply(rec, path)
	}
	return rec
}

// Session wraps one record with lifecycle state and a field error map. A
// session is owned by a single page; the mutex exists so an overlapping
// submit is rejected deterministically, not to support parallel editing.
type Session struct {
	mu           sync.Mutex
	engine       Engine
	state        State
	id           string
	rec          record.Record
	errors       errmap.Map
	submission   string
	loadDegraded bool
}

// NewCreateSession opens a session over a fresh default record. The defaults
// are normalized through the engine so they satisfy the current rule set.
func NewCreateSession(engine Engine, defaults record.Record) *Session {
	return &Session{
		engine: engine,
		state:  StateReady,
		rec:    engine.normalize(record.Clone(defaults)),
		errors: errmap.Map{},
	}
}

// NewEditSession opens a session over a fetched record. When the fetch fails
// the caller-supplied fallback is used instead and the session is marked
// load-degraded; it stays usable rather than dead-ending.
func NewEditSession(ctx context.Context, engine Engine, id string, fetch func(ctx context.Context, id string) (record.Record, error), fallback record.Record) *Session {
	s := &Session{
		engine: engine,
		state:  StateLoading,
		id:     id,
		errors: errmap.Map{},
	}
	fetched, err := fetch(ctx, id)
	if err != nil {
		s.rec = engine.normalize(record.Clone(fallback))
		s.loadDegraded = true
	} else {
		s.rec = engine.normalize(fetched)
	}
	s.state = StateReady
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Record returns the session's current record. The record is immutable;
// callers observe a consistent tree.
func (s *Session) Record() record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}

// Errors returns the current field error map.
func (s *Session) Errors() errmap.Map {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors
}

// LoadDegraded reports whether the edit target failed to load and the session
// is running on the fallback record.
func (s *Session) LoadDegraded() bool { return s.loadDegraded }

// SubmissionError returns the record-scoped message from the last failed
// submit, or "" when the last submit did not fail at the record level.
func (s *Session) SubmissionError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submission
}

// Edit writes one field and runs the full pipeline: path set, cascade
// reconciliation, derived-field recompute, then clearing the field's error.
// Record and error map are replaced together.
func (s *Session) Edit(path string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return ErrNotEditable
	}
	s.rec = s.engine.applyEdit(s.rec, path, value)
	s.errors = errmap.Clear(s.errors, path)
	return nil
}

// Submit persists the record captured at call time. Create sessions go
// through Persistence.Create, edit sessions through Update. A validation
// failure populates the error map and returns the session to StateReady; any
// other failure becomes the record-scoped submission error. A second submit
// while one is in flight is rejected synchronously.
func (s *Session) Submit(ctx context.Context, persist Persistence) (record.Record, error) {
	s.mu.Lock()
	switch s.state {
	case StateSubmitting:
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	case StateReady:
	default:
		s.mu.Unlock()
		return nil, ErrNotReady
	}
	captured := s.rec
	s.state = StateSubmitting
	s.submission = ""
	s.mu.Unlock()

	var (
		saved record.Record
		err   error
	)
	if s.id == "" {
		saved, err = persist.Create(ctx, captured)
	} else {
		saved, err = persist.Update(ctx, s.id, captured)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateReady
		var ve domain.ValidationError
		if errors.As(err, &ve) && len(ve.Errors) > 0 {
			s.errors = errmap.MergeServer(s.errors, ve.FieldErrors())
			s.submission = ve.Message
		} else {
			s.submission = err.Error()
		}
		return nil, err
	}

	s.state = StateSucceeded
	if saved != nil {
		s.rec = saved
	}
	return s.rec, nil
}

// Reset returns the session to StateReady over a fresh default record,
// discarding errors and submission state. The edit target, if any, is kept.
func (s *Session) Reset(defaults record.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = s.engine.normalize(record.Clone(defaults))
	s.errors = errmap.Map{}
	s.submission = ""
	s.state = StateReady
}
