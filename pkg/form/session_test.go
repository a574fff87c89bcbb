package form

import (
	"context"
	"errors"
	"reflect"
	"runtime"
	"testing"

	"farmcore/pkg/derive"
	"farmcore/pkg/domain"
	"farmcore/pkg/errmap"
	"farmcore/pkg/record"
	"farmcore/pkg/taxonomy"
)

func testEngine(t *testing.T) Engine {
	t.Helper()
	return Engine{
		Resolver: taxonomy.DefaultResolver(),
		Synchronizer: derive.NewSynchronizer(
			derive.TotalPriceRule("quantity", "price_per_unit", "total_price"),
			derive.EndFromDurationRule("start_date", "start_time", "duration", "end_date", "end_time"),
			derive.DurationFromEndRule("start_date", "start_time", "end_date", "end_time", "duration"),
		),
	}
}

type fakePersistence struct {
	createErr error
	updateErr error
	created   record.Record
	updated   record.Record
	saved     record.Record
	fetchRec  record.Record
	fetchErr  error
	calls     int
	block     chan struct{}
}

func (f *fakePersistence) FetchOne(_ context.Context, _ string) (record.Record, error) {
	return f.fetchRec, f.fetchErr
}

func (f *fakePersistence) Create(_ context.Context, fields record.Record) (record.Record, error) {
	f.calls++
	if f.block != nil {
		<-f.block
	}
	f.created = fields
	return f.saved, f.createErr
}

func (f *fakePersistence) Update(_ context.Context, _ string, fields record.Record) (record.Record, error) {
	f.calls++
	if f.block != nil {
		<-f.block
	}
	f.updated = fields
	return f.saved, f.updateErr
}

func (f *fakePersistence) Remove(_ context.Context, _ string) error { return nil }

func TestCreateSessionStartsReady(t *testing.T) {
	s := NewCreateSession(testEngine(t), record.Record{"animal_type": "cattle"})
	if s.State() != StateReady {
		t.Fatalf("state = %s, want ready", s.State())
	}
	if s.LoadDegraded() {
		t.Fatalf("create session should not be load-degraded")
	}
}

func TestEditPipelineCascadesAndDerives(t *testing.T) {
	s := NewCreateSession(testEngine(t), record.Record{"animal_type": "cattle", "breed": "Angus"})

	if err := s.Edit("animal_type", "poultry"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got := record.GetString(s.Record(), "breed"); got != "Leghorn" {
		t.Fatalf("breed = %q after type change, want Leghorn", got)
	}

	if err := s.Edit("quantity", "10"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := s.Edit("price_per_unit", "2.5"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got, _ := record.Get(s.Record(), "total_price"); got != "25.00" {
		t.Fatalf("total_price = %v, want 25.00", got)
	}
}

func TestEditClearsFieldError(t *testing.T) {
	s := NewCreateSession(testEngine(t), record.Record{})
	s.errors = errmap.Set(s.errors, "collector.name", []string{"required"})

	if err := s.Edit("collector.name", "Ada"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if _, ok := s.Errors()["collector.name"]; ok {
		t.Fatalf("editing a path must delete its error key")
	}
}

func TestEditSessionNormalizesFetchedRecord(t *testing.T) {
	persist := &fakePersistence{fetchRec: record.Record{
		"animal_type": "sheep",
		"breed":       "Angus",
		"quantity":    "4",
		// total persisted under an older rule set
		"price_per_unit": "5",
		"total_price":    "1.00",
	}}
	s := NewEditSession(context.Background(), testEngine(t), "a1", persist.FetchOne, nil)
	if s.State() != StateReady {
		t.Fatalf("state = %s", s.State())
	}
	if got := record.GetString(s.Record(), "breed"); got != "Merino" {
		t.Fatalf("stale breed should be reconciled on load, got %q", got)
	}
	if got, _ := record.Get(s.Record(), "total_price"); got != "20.00" {
		t.Fatalf("stale total should be recomputed on load, got %v", got)
	}
}

func TestEditSessionFallsBackOnFetchFailure(t *testing.T) {
	persist := &fakePersistence{fetchErr: errors.New("boom")}
	fallback := record.Record{"animal_type": "goat"}
	s := NewEditSession(context.Background(), testEngine(t), "a1", persist.FetchOne, fallback)

	if s.State() != StateReady {
		t.Fatalf("fetch failure must still land in ready, got %s", s.State())
	}
	if !s.LoadDegraded() {
		t.Fatalf("expected load-degraded signal")
	}
	if got := record.GetString(s.Record(), "animal_type"); got != "goat" {
		t.Fatalf("fallback record not installed, got %q", got)
	}
	if err := s.Edit("breed", "Boer"); err != nil {
		t.Fatalf("degraded session must stay editable: %v", err)
	}
}

func TestSubmitSuccessIsTerminal(t *testing.T) {
	saved := record.Record{"id": "p1", "quantity": "10"}
	persist := &fakePersistence{saved: saved}
	s := NewCreateSession(testEngine(t), record.Record{"quantity": "10"})

	got, err := s.Submit(context.Background(), persist)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !record.Equal(got, saved) {
		t.Fatalf("submit should adopt the server record, got %v", got)
	}
	if s.State() != StateSucceeded {
		t.Fatalf("state = %s, want succeeded", s.State())
	}
	if err := s.Edit("quantity", "11"); !errors.Is(err, ErrNotEditable) {
		t.Fatalf("succeeded session must reject edits, got %v", err)
	}
	if _, err := s.Submit(context.Background(), persist); !errors.Is(err, ErrNotReady) {
		t.Fatalf("succeeded session must reject submits, got %v", err)
	}
}

func TestSubmitValidationFailurePopulatesErrors(t *testing.T) {
	persist := &fakePersistence{createErr: domain.ValidationError{
		Message: "validation failed",
		Errors:  map[string][]string{"collector.name": {"required"}},
	}}
	s := NewCreateSession(testEngine(t), record.Record{})

	_, err := s.Submit(context.Background(), persist)
	if err == nil {
		t.Fatalf("expected submit failure")
	}
	if s.State() != StateReady {
		t.Fatalf("failed submit must return to ready, got %s", s.State())
	}
	if got := errmap.Messages(s.Errors(), "collector.name"); !reflect.DeepEqual(got, []string{"required"}) {
		t.Fatalf("collector.name errors = %v", got)
	}
	if s.SubmissionError() != "validation failed" {
		t.Fatalf("submission error = %q", s.SubmissionError())
	}

	// Editing the path self-heals its error, then resubmission is allowed.
	if err := s.Edit("collector.name", "Ada"); err != nil {
		t.Fatalf("edit after failure: %v", err)
	}
	if _, ok := s.Errors()["collector.name"]; ok {
		t.Fatalf("error should clear on edit")
	}
	persist.createErr = nil
	if _, err := s.Submit(context.Background(), persist); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
}

func TestSubmitOpaqueFailureBecomesTopLevelError(t *testing.T) {
	persist := &fakePersistence{createErr: errors.New("gateway timeout")}
	s := NewCreateSession(testEngine(t), record.Record{})

	if _, err := s.Submit(context.Background(), persist); err == nil {
		t.Fatalf("expected failure")
	}
	if s.SubmissionError() != "gateway timeout" {
		t.Fatalf("submission error = %q", s.SubmissionError())
	}
	if errmap.HasErrors(s.Errors()) {
		t.Fatalf("opaque failures must not fabricate field errors")
	}
}

func TestSubmitUsesUpdateForEditSessions(t *testing.T) {
	persist := &fakePersistence{fetchRec: record.Record{"quantity": "1"}}
	s := NewEditSession(context.Background(), testEngine(t), "p9", persist.FetchOne, nil)
	if _, err := s.Submit(context.Background(), persist); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if persist.updated == nil {
		t.Fatalf("edit session should submit through Update")
	}
	if persist.created != nil {
		t.Fatalf("edit session must not call Create")
	}
}

func TestDoubleSubmitRejectedSynchronously(t *testing.T) {
	persist := &fakePersistence{block: make(chan struct{})}
	s := NewCreateSession(testEngine(t), record.Record{})

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), persist)
		done <- err
	}()
	for s.State() != StateSubmitting {
		runtime.Gosched()
	}

	if _, err := s.Submit(context.Background(), persist); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("overlapping submit should be rejected, got %v", err)
	}
	close(persist.block)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if persist.calls != 1 {
		t.Fatalf("persistence called %d times, want 1", persist.calls)
	}
}

func TestResetReturnsToReady(t *testing.T) {
	persist := &fakePersistence{saved: record.Record{"id": "x"}}
	s := NewCreateSession(testEngine(t), record.Record{"quantity": "1"})
	if _, err := s.Submit(context.Background(), persist); err != nil {
		t.Fatalf("submit: %v", err)
	}
	s.Reset(record.Record{"animal_type": "pig"})
	if s.State() != StateReady {
		t.Fatalf("state = %s after reset", s.State())
	}
	if errmap.HasErrors(s.Errors()) || s.SubmissionError() != "" {
		t.Fatalf("reset must clear error state")
	}
	if got := record.GetString(s.Record(), "animal_type"); got != "pig" {
		t.Fatalf("reset record = %q", got)
	}
}
