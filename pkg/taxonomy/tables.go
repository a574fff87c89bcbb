package taxonomy

// Built-in option tables for the farm record forms. The data mirrors what the
// management screens present: picking an animal type constrains breeds, and
// picking a product category constrains the measurement unit, quality grade,
// and production method.

// AnimalBreeds maps animal type to its legal breeds.
var AnimalBreeds = Table{
	"cattle":  {"Angus", "Hereford", "Holstein", "Jersey"},
	"poultry": {"Leghorn", "Rhode Island Red", "Plymouth Rock"},
	"sheep":   {"Merino", "Suffolk", "Dorset"},
	"goat":    {"Boer", "Nubian", "Alpine"},
	"pig":     {"Yorkshire", "Berkshire", "Duroc"},
}

// ProductMeasurementUnits maps product category to its legal units.
var ProductMeasurementUnits = Table{
	"milk":  {"liters", "gallons"},
	"eggs":  {"dozen", "units"},
	"wool":  {"kg", "lb"},
	"meat":  {"kg", "lb"},
	"honey": {"kg", "jars"},
}

// ProductGrades maps product category to its legal quality grades.
var ProductGrades = Table{
	"milk":  {"grade_a", "grade_b"},
	"eggs":  {"aa", "a", "b"},
	"wool":  {"fine", "medium", "coarse"},
	"meat":  {"prime", "choice", "select"},
	"honey": {"raw", "filtered"},
}

// ProductionMethods maps product category to its legal production methods.
var ProductionMethods = Table{
	"milk":  {"machine_milking", "hand_milking"},
	"eggs":  {"free_range", "barn", "caged"},
	"wool":  {"machine_shearing", "hand_shearing"},
	"meat":  {"pasture_raised", "grain_finished"},
	"honey": {"extracted", "comb"},
}

// DefaultCascade returns the cascade rules the farm forms share: animal type
// constrains breed, and the product category constrains unit, grade, and
// method in one fan-out.
func DefaultCascade() []CascadeRule {
	return []CascadeRule{
		{Trigger: "animal_type", Dependent: "breed", Table: AnimalBreeds},
		{Trigger: "product_category.name", Dependent: "product_category.measurement_unit", Table: ProductMeasurementUnits},
		{Trigger: "product_category.name", Dependent: "product_grade.name", Table: ProductGrades},
		{Trigger: "product_category.name", Dependent: "production_method.method_name", Table: ProductionMethods},
	}
}

// DefaultResolver builds a resolver over DefaultCascade. The built-in rules
// are acyclic, so construction cannot fail.
func DefaultResolver() *Resolver {
	resolver, err := NewResolver(DefaultCascade()...)
	if err != nil {
		panic(err)
	}
	return resolver
}
