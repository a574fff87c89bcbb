// Package listview applies list mutations optimistically: the in-memory
// collection changes immediately and a deferred commit either finalizes the
// change or restores the exact pre-mutation snapshot.
package listview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"farmcore/pkg/record"
)

// IDField is the leaf every list element carries for identity.
const IDField = "id"

// Mutator errors.
var (
	// ErrMutationInFlight is returned when a second mutation targets an
	// element whose previous mutation has not committed yet.
	ErrMutationInFlight = errors.New("listview: mutation already in flight for element")
)

// ErrNoSuchElement is returned when the target id is absent from the list.
type ErrNoSuchElement struct {
	ID string
}

func (e ErrNoSuchElement) Error() string {
	return fmt.Sprintf("listview: no element with id %s", e.ID)
}

// Commit issues the persistence request backing an optimistic mutation and
// returns the list the caller should hold afterwards: the optimistic list on
// success, the restored pre-mutation snapshot on failure.
type Commit func(ctx context.Context, persist func(ctx context.Context) error) ([]record.Record, error)

// Mutator serializes optimistic mutations per element id. One mutator guards
// one list-owning page.
type Mutator struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewMutator constructs a mutator with no mutations in flight.
func NewMutator() *Mutator {
	return &Mutator{inflight: make(map[string]struct{})}
}

// Remove deletes the element with the given id immediately and returns the
// optimistic list plus the commit closure. A failing commit restores a list
// deep-equal to the input.
func (m *Mutator) Remove(list []record.Record, id string) ([]record.Record, Commit, error) {
	return m.mutate(list, []string{id}, func(optimistic []record.Record) []record.Record {
		out := optimistic[:0]
		for _, item := range optimistic {
			if record.GetString(item, IDField) == id {
				continue
			}
			out = append(out, item)
		}
		return out
	})
}

// RemoveAll deletes every listed id immediately, sharing one commit, for the
// bulk actions list screens offer.
func (m *Mutator) RemoveAll(list []record.Record, ids []string) ([]record.Record, Commit, error) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	return m.mutate(list, ids, func(optimistic []record.Record) []record.Record {
		out := optimistic[:0]
		for _, item := range optimistic {
			if _, gone := drop[record.GetString(item, IDField)]; gone {
				continue
			}
			out = append(out, item)
		}
		return out
	})
}

// Update patches the element with the given id in place. The patch maps field
// paths to new values, so a list row can be edited without opening its form.
func (m *Mutator) Update(list []record.Record, id string, patch map[string]any) ([]record.Record, Commit, error) {
	return m.mutate(list, []string{id}, func(optimistic []record.Record) []record.Record {
		for i, item := range optimistic {
			if record.GetString(item, IDField) != id {
				continue
			}
			for path, value := range patch {
				item = record.Set(item, path, value)
			}
			optimistic[i] = item
		}
		return optimistic
	})
}

func (m *Mutator) mutate(list []record.Record, ids []string, apply func([]record.Record) []record.Record) ([]record.Record, Commit, error) {
	for _, id := range ids {
		if !contains(list, id) {
			return nil, nil, ErrNoSuchElement{ID: id}
		}
	}

	m.mu.Lock()
	for _, id := range ids {
		if _, busy := m.inflight[id]; busy {
			m.mu.Unlock()
			return nil, nil, ErrMutationInFlight
		}
	}
	for _, id := range ids {
		m.inflight[id] = struct{}{}
	}
	m.mu.Unlock()

	snapshot := cloneList(list)
	optimistic := apply(cloneList(list))

	var once sync.Once
	commit := func(ctx context.Context, persist func(ctx context.Context) error) ([]record.Record, error) {
		err := persist(ctx)
		once.Do(func() {
			m.mu.Lock()
			for _, id := range ids {
				delete(m.inflight, id)
			}
			m.mu.Unlock()
		})
		if err != nil {
			return snapshot, err
		}
		return optimistic, nil
	}
	return optimistic, commit, nil
}

// InFlight reports whether the element currently has an uncommitted mutation.
func (m *Mutator) InFlight(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, busy := m.inflight[id]
	return busy
}

func contains(list []record.Record, id string) bool {
	for _, item := range list {
		if record.GetString(item, IDField) == id {
			return true
		}
	}
	return false
}

func cloneList(list []record.Record) []record.Record {
	out := make([]record.Record, len(list))
	for i, item := range list {
		out[i] = record.Clone(item)
	}
	return out
}
