package intervention

import (
	"sort"

	"github.com/smehta/migraine-server/internal/covariates"
	"github.com/smehta/migraine-server/internal/filter"
	"github.com/smehta/migraine-server/internal/forecast"
)

// Archetype is one catalog entry: a named lifestyle change expressed
// as a modification template against the user's latest covariates.
// Either Delta shifts the current value or SetTo replaces it.
type Archetype struct {
	Type        string
	Field       string
	Delta       float64
	SetTo       *float64
	Description string
}

var zero = 0.0

// Catalog is the fixed, ordered intervention table. New archetypes are
// added here; nothing else branches on intervention type.
var Catalog = []Archetype{
	{Type: "increase_sleep", Field: "sleep_hours", Delta: 1.5,
		Description: "Increase sleep by 1.5 hours per night"},
	{Type: "improve_sleep_quality", Field: "sleep_quality", Delta: 2,
		Description: "Improve sleep quality by 2 points"},
	{Type: "reduce_stress", Field: "stress_level", Delta: -2,
		Description: "Reduce stress level by 2 points"},
	{Type: "increase_hydration", Field: "hydration_liters", Delta: 1.0,
		Description: "Drink 1.0 liter more water daily"},
	{Type: "eliminate_caffeine", Field: "caffeine_mg", SetTo: &zero,
		Description: "Eliminate caffeine intake"},
	{Type: "eliminate_alcohol", Field: "alcohol_units", SetTo: &zero,
		Description: "Eliminate alcohol consumption"},
	{Type: "add_exercise", Field: "exercise_minutes", Delta: 30,
		Description: "Add 30 minutes of moderate exercise"},
}

// Ranked is one scored catalog entry.
type Ranked struct {
	Type                   string
	Description            string
	PredictedRiskReduction float64
}

// Rank scores every catalog archetype for the user: one baseline
// simulation plus one per-archetype simulation from the same state,
// ranked by predicted risk reduction, descending, stable on ties.
// Adverse archetypes (negative reduction) stay in the list. A user
// with no logs is ranked against population defaults, so the result
// is never empty.
func Rank(state filter.State, threshold float64, latest *covariates.DailyLog) ([]Ranked, error) {
	baseline := covariates.DefaultLog()
	if latest != nil {
		baseline = *latest
	}

	base, err := forecast.Simulate(state, threshold, baseline, nil)
	if err != nil {
		return nil, err
	}

	ranked := make([]Ranked, 0, len(Catalog))
	for _, arch := range Catalog {
		target, err := arch.target(&baseline)
		if err != nil {
			return nil, err
		}
		modified, err := forecast.Simulate(state, threshold, baseline,
			map[string]float64{arch.Field: target})
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, Ranked{
			Type:                   arch.Type,
			Description:            arch.Description,
			PredictedRiskReduction: base.MigraineRisk - modified.MigraineRisk,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PredictedRiskReduction > ranked[j].PredictedRiskReduction
	})
	return ranked, nil
}

// target computes the modified covariate value, kept inside the
// feature's physical range.
func (a *Archetype) target(baseline *covariates.DailyLog) (float64, error) {
	idx, ok := covariates.FeatureIndex(a.Field)
	if !ok {
		// Catalog entries are static; an unknown field is a programming
		// error surfaced at first use.
		return 0, &badCatalogError{field: a.Field}
	}
	if a.SetTo != nil {
		return *a.SetTo, nil
	}
	min, max := covariates.FeatureRange(idx)
	value := covariates.Resolved(baseline, idx) + a.Delta
	if value < min {
		value = min
	}
	if value > max {
		value = max
	}
	return value, nil
}

type badCatalogError struct {
	field string
}

func (e *badCatalogError) Error() string {
	return "intervention catalog references unknown covariate " + e.field
}
