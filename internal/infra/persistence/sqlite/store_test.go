package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"farmcore/pkg/domain"
	"farmcore/pkg/record"
)

func TestSnapshotSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farm.db")

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var id string
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		created, err := tx.Create(domain.EntityAnimal, record.Record{
			"name":        "Bessie",
			"animal_type": "cattle",
			"breed":       "Angus",
		})
		id = created.ID
		return err
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	got, ok := reopened.Get(domain.EntityAnimal, id)
	if !ok {
		t.Fatalf("entity missing after reopen")
	}
	if record.GetString(got.Fields, "breed") != "Angus" {
		t.Fatalf("fields = %v", got.Fields)
	}
}

func TestDeleteIsPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farm.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var id string
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		created, err := tx.Create(domain.EntityTask, record.Record{"title": "fix fence"})
		id = created.ID
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.Delete(domain.EntityTask, id)
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if _, ok := reopened.Get(domain.EntityTask, id); ok {
		t.Fatalf("deleted entity resurrected after reopen")
	}
}

func TestAbortedTransactionDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farm.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	wantErr := domain.ErrNotFound{Entity: domain.EntityNote, ID: "missing"}
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.Create(domain.EntityNote, record.Record{"content": "ghost"}); err != nil {
			return err
		}
		return wantErr
	}); err == nil {
		t.Fatalf("expected abort")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if got := reopened.List(domain.EntityNote); len(got) != 0 {
		t.Fatalf("aborted write persisted: %d notes", len(got))
	}
}
