package taxonomy

import (
	"errors"
	"testing"

	"farmcore/pkg/record"
)

func TestOptionsFor(t *testing.T) {
	options := OptionsFor(AnimalBreeds, "cattle")
	if len(options) == 0 || options[0] != "Angus" {
		t.Fatalf("unexpected cattle breeds: %v", options)
	}
	if got := OptionsFor(AnimalBreeds, ""); len(got) != 0 {
		t.Fatalf("empty trigger should yield no options, got %v", got)
	}
	if got := OptionsFor(AnimalBreeds, "llama"); len(got) != 0 {
		t.Fatalf("unknown trigger should yield no options, got %v", got)
	}
}

func TestOptionsForReturnsCopy(t *testing.T) {
	options := OptionsFor(AnimalBreeds, "cattle")
	options[0] = "mutated"
	if AnimalBreeds["cattle"][0] != "Angus" {
		t.Fatalf("OptionsFor exposed the underlying table")
	}
}

func TestCascadeResetsIllegalBreed(t *testing.T) {
	resolver := DefaultResolver()
	rec := record.Record{"animal_type": "poultry", "breed": "Angus"}

	reconciled := resolver.ReconcileFrom(rec, "animal_type")
	if got := record.GetString(reconciled, "breed"); got != "Leghorn" {
		t.Fatalf("breed should reset to first poultry breed, got %q", got)
	}
	if record.GetString(rec, "breed") != "Angus" {
		t.Fatalf("reconcile mutated its input")
	}
}

func TestCascadeKeepsLegalValue(t *testing.T) {
	resolver := DefaultResolver()
	rec := record.Record{"animal_type": "cattle", "breed": "Hereford"}
	reconciled := resolver.ReconcileFrom(rec, "animal_type")
	if got := record.GetString(reconciled, "breed"); got != "Hereford" {
		t.Fatalf("legal breed should survive, got %q", got)
	}
}

func TestCascadeLeavesEmptyDependent(t *testing.T) {
	resolver := DefaultResolver()
	rec := record.Record{"animal_type": "cattle"}
	reconciled := resolver.ReconcileFrom(rec, "animal_type")
	if got := record.GetString(reconciled, "breed"); got != "" {
		t.Fatalf("empty dependent should stay empty, got %q", got)
	}
}

func TestCascadeResetsToEmptyWhenNoOptions(t *testing.T) {
	resolver := DefaultResolver()
	rec := record.Record{"animal_type": "llama", "breed": "Angus"}
	reconciled := resolver.ReconcileFrom(rec, "animal_type")
	if got := record.GetString(reconciled, "breed"); got != "" {
		t.Fatalf("dependent should reset to empty when no options exist, got %q", got)
	}
}

func TestProductCategoryFanOut(t *testing.T) {
	resolver := DefaultResolver()
	rec := record.Record{
		"product_category":  record.Record{"name": "eggs", "measurement_unit": "liters"},
		"product_grade":     record.Record{"name": "grade_a"},
		"production_method": record.Record{"method_name": "machine_milking"},
	}
	reconciled := resolver.ReconcileFrom(rec, "product_category.name")
	if got := record.GetString(reconciled, "product_category.measurement_unit"); got != "dozen" {
		t.Fatalf("unit should reset for eggs, got %q", got)
	}
	if got := record.GetString(reconciled, "product_grade.name"); got != "aa" {
		t.Fatalf("grade should reset for eggs, got %q", got)
	}
	if got := record.GetString(reconciled, "production_method.method_name"); got != "free_range" {
		t.Fatalf("method should reset for eggs, got %q", got)
	}
}

func TestTransitiveCascade(t *testing.T) {
	regions := Table{"north": {"wet"}, "south": {"dry"}}
	soils := Table{"wet": {"clay"}, "dry": {"sand"}}
	resolver, err := NewResolver(
		CascadeRule{Trigger: "region", Dependent: "climate", Table: regions},
		CascadeRule{Trigger: "climate", Dependent: "soil", Table: soils},
	)
	if err != nil {
		t.Fatalf("build resolver: %v", err)
	}

	rec := record.Record{"region": "south", "climate": "wet", "soil": "clay"}
	reconciled := resolver.ReconcileFrom(rec, "region")
	if got := record.GetString(reconciled, "climate"); got != "dry" {
		t.Fatalf("climate should reset for south, got %q", got)
	}
	if got := record.GetString(reconciled, "soil"); got != "sand" {
		t.Fatalf("soil should cascade from the reset climate, got %q", got)
	}
}

func TestReconcileNormalizesWholeRecord(t *testing.T) {
	resolver := DefaultResolver()
	rec := record.Record{"animal_type": "sheep", "breed": "Angus"}
	reconciled := resolver.Reconcile(rec)
	if got := record.GetString(reconciled, "breed"); got != "Merino" {
		t.Fatalf("full reconcile should repair stale breed, got %q", got)
	}
}

func TestCascadeConsistencyProperty(t *testing.T) {
	resolver := DefaultResolver()
	records := []record.Record{
		{"animal_type": "cattle", "breed": "Leghorn"},
		{"animal_type": "pig", "breed": "Suffolk"},
		{"animal_type": "goat", "breed": ""},
		{"product_category": record.Record{"name": "wool", "measurement_unit": "dozen"}},
	}
	for _, rec := range records {
		reconciled := resolver.Reconcile(rec)
		for _, rule := range resolver.Rules() {
			dependent := record.GetString(reconciled, rule.Dependent)
			if dependent == "" {
				continue
			}
			options := OptionsFor(rule.Table, record.GetString(reconciled, rule.Trigger))
			legal := false
			for _, option := range options {
				if option == dependent {
					legal = true
					break
				}
			}
			if !legal {
				t.Fatalf("dependent %s=%q illegal after reconcile of %v", rule.Dependent, dependent, rec)
			}
		}
	}
}

func TestNewResolverRejectsCycle(t *testing.T) {
	table := Table{"x": {"y"}}
	_, err := NewResolver(
		CascadeRule{Trigger: "a", Dependent: "b", Table: table},
		CascadeRule{Trigger: "b", Dependent: "c", Table: table},
		CascadeRule{Trigger: "c", Dependent: "a", Table: table},
	)
	var cfgErr ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError for cyclic cascade, got %v", err)
	}
}

func TestNewResolverRejectsSelfDependency(t *testing.T) {
	_, err := NewResolver(CascadeRule{Trigger: "a", Dependent: "a", Table: Table{}})
	var cfgErr ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError for self dependency, got %v", err)
	}
}

func TestNewResolverRejectsMissingTable(t *testing.T) {
	_, err := NewResolver(CascadeRule{Trigger: "a", Dependent: "b"})
	var cfgErr ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError for missing table, got %v", err)
	}
}
