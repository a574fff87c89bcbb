package core

import (
	"context"
	"errors"
	"testing"

	"farmcore/pkg/domain"
	"farmcore/pkg/record"
)

func createBlocked(t *testing.T, entity domain.EntityType, fields record.Record) domain.ValidationError {
	t.Helper()
	svc := NewInMemoryService(NewDefaultRulesEngine())
	_, _, err := svc.Create(context.Background(), entity, fields)
	var ve domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	return ve
}

func createAllowed(t *testing.T, entity domain.EntityType, fields record.Record) {
	t.Helper()
	svc := NewInMemoryService(NewDefaultRulesEngine())
	if _, _, err := svc.Create(context.Background(), entity, fields); err != nil {
		t.Fatalf("create %s: %v", entity, err)
	}
}

func TestRequiredFieldsRule(t *testing.T) {
	ve := createBlocked(t, domain.EntityAnimal, record.Record{"breed": ""})
	if _, ok := ve.Errors["name"]; !ok {
		t.Fatalf("missing name violation: %v", ve.Errors)
	}
	if _, ok := ve.Errors["animal_type"]; !ok {
		t.Fatalf("missing animal_type violation: %v", ve.Errors)
	}
}

func TestTaxonomyMembershipRule(t *testing.T) {
	ve := createBlocked(t, domain.EntityAnimal, record.Record{
		"name":        "Maverick",
		"animal_type": "poultry",
		"breed":       "Angus",
	})
	if _, ok := ve.Errors["breed"]; !ok {
		t.Fatalf("missing breed violation: %v", ve.Errors)
	}

	createAllowed(t, domain.EntityAnimal, record.Record{
		"name":        "Maverick",
		"animal_type": "poultry",
		"breed":       "Leghorn",
	})
}

func TestTaxonomyMembershipIgnoresEmptyDependent(t *testing.T) {
	createAllowed(t, domain.EntityAnimal, record.Record{
		"name":        "Unnamed breed",
		"animal_type": "pig",
	})
}

func TestNonNegativeDurationRule(t *testing.T) {
	ve := createBlocked(t, domain.EntityTask, record.Record{
		"title":    "milking",
		"duration": -60.0,
	})
	if _, ok := ve.Errors["duration"]; !ok {
		t.Fatalf("missing duration violation: %v", ve.Errors)
	}

	createAllowed(t, domain.EntityTask, record.Record{
		"title":    "milking",
		"duration": 90.0,
	})
}

func TestPositiveQuantityRule(t *testing.T) {
	ve := createBlocked(t, domain.EntityProductionRecord, record.Record{
		"product_category": map[string]any{"name": "milk"},
		"quantity":         "0",
	})
	if _, ok := ve.Errors["quantity"]; !ok {
		t.Fatalf("missing quantity violation: %v", ve.Errors)
	}

	createAllowed(t, domain.EntityProductionRecord, record.Record{
		"product_category": map[string]any{"name": "milk", "measurement_unit": "liters"},
		"quantity":         "12.5",
	})
}

func TestQuantityRuleScopedToProductionRecords(t *testing.T) {
	// Other buckets may carry a quantity field with different semantics.
	createAllowed(t, domain.EntitySupplier, record.Record{
		"name":     "Acme Feed",
		"quantity": "0",
	})
}
