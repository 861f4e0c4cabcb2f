package covariates

import (
	"errors"
	"testing"

	"github.com/smehta/migraine-server/internal/apperr"
)

func TestNormalize_EmptyLogUsesDefaults(t *testing.T) {
	log := &DailyLog{}

	feats, flags, err := Normalize(log)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(flags) != 0 {
		t.Errorf("Expected no quality flags for defaults, got %v", flags)
	}

	want := DefaultFeatures()
	for i := 0; i < FeatureCount; i++ {
		if feats[i] != want[i] {
			t.Errorf("Feature %s: expected default %.4f, got %.4f",
				FeatureName(i), want[i], feats[i])
		}
	}
}

func TestNormalize_ScalesIntoUnitRange(t *testing.T) {
	log := &DailyLog{
		SleepHours:         Float64Ptr(6),
		SleepQuality:       Float64Ptr(5),
		StressLevel:        Float64Ptr(10),
		HydrationLiters:    Float64Ptr(2.5),
		CaffeineMg:         Float64Ptr(400),
		AlcoholUnits:       Float64Ptr(0),
		ExerciseMinutes:    Float64Ptr(90),
		WeatherPressureHPa: Float64Ptr(1000),
	}

	feats, flags, err := Normalize(log)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(flags) != 0 {
		t.Errorf("Expected no flags, got %v", flags)
	}

	checks := map[int]float64{
		FeatSleepHours:      0.5,
		FeatSleepQuality:    0.5,
		FeatStressLevel:     1.0,
		FeatHydrationLiters: 0.5,
		FeatCaffeineMg:      0.5,
		FeatAlcoholUnits:    0.0,
		FeatExerciseMinutes: 0.5,
		FeatPressureHPa:     0.5,
	}
	for idx, want := range checks {
		if diff := feats[idx] - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Feature %s: expected %.4f, got %.4f", FeatureName(idx), want, feats[idx])
		}
	}
}

func TestNormalize_ClampsOutOfRangeWithFlag(t *testing.T) {
	log := &DailyLog{
		SleepHours:         Float64Ptr(14),
		WeatherPressureHPa: Float64Ptr(900),
	}

	feats, flags, err := Normalize(log)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if feats[FeatSleepHours] != 1.0 {
		t.Errorf("Expected sleep clamped to 1.0, got %.4f", feats[FeatSleepHours])
	}
	if feats[FeatPressureHPa] != 0.0 {
		t.Errorf("Expected pressure clamped to 0.0, got %.4f", feats[FeatPressureHPa])
	}
	if len(flags) != 2 {
		t.Errorf("Expected 2 clamp flags, got %v", flags)
	}
}

func TestNormalize_RejectsNegativeCovariate(t *testing.T) {
	log := &DailyLog{HydrationLiters: Float64Ptr(-1)}

	_, _, err := Normalize(log)
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if verr.Field != "hydration_liters" {
		t.Errorf("Expected hydration_liters field, got %s", verr.Field)
	}
}

func TestNormalize_IntensityIgnoredWithoutOccurrence(t *testing.T) {
	log := &DailyLog{
		MigraineOccurred:  false,
		MigraineIntensity: Float64Ptr(25),
	}

	if _, _, err := Normalize(log); err != nil {
		t.Fatalf("Intensity must be ignored when no migraine occurred: %v", err)
	}
	if log.Intensity() != 0 {
		t.Errorf("Expected effective intensity 0, got %.2f", log.Intensity())
	}
}

func TestNormalize_IntensityBoundsCheckedOnOccurrence(t *testing.T) {
	log := &DailyLog{
		MigraineOccurred:  true,
		MigraineIntensity: Float64Ptr(12),
	}

	_, _, err := Normalize(log)
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError for intensity 12, got %v", err)
	}
}

func TestNormalize_CycleDayBounds(t *testing.T) {
	ok := &DailyLog{MenstrualCycleDay: IntPtr(14)}
	if _, _, err := Normalize(ok); err != nil {
		t.Fatalf("Cycle day 14 should be accepted: %v", err)
	}

	bad := &DailyLog{MenstrualCycleDay: IntPtr(36)}
	_, _, err := Normalize(bad)
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError for cycle day 36, got %v", err)
	}
}

func TestApplyOverrides_ReplacesOnlyGivenFields(t *testing.T) {
	baseline := DefaultLog()
	baseline.SleepHours = Float64Ptr(4)
	baseline.StressLevel = Float64Ptr(8)

	merged, err := ApplyOverrides(baseline, map[string]float64{"sleep_hours": 9})
	if err != nil {
		t.Fatalf("ApplyOverrides failed: %v", err)
	}
	if *merged.SleepHours != 9 {
		t.Errorf("Expected sleep override 9, got %.1f", *merged.SleepHours)
	}
	if *merged.StressLevel != 8 {
		t.Errorf("Stress should keep baseline 8, got %.1f", *merged.StressLevel)
	}
	if *baseline.SleepHours != 4 {
		t.Errorf("Baseline must not be mutated, got %.1f", *baseline.SleepHours)
	}
}

func TestApplyOverrides_UnknownFieldRejected(t *testing.T) {
	_, err := ApplyOverrides(DefaultLog(), map[string]float64{"mood_level": 3})
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError for unknown field, got %v", err)
	}
	if verr.Field != "mood_level" {
		t.Errorf("Expected mood_level field in error, got %s", verr.Field)
	}
}

func TestFeatureNameIndexRoundTrip(t *testing.T) {
	for i := 0; i < FeatureCount; i++ {
		idx, ok := FeatureIndex(FeatureName(i))
		if !ok || idx != i {
			t.Errorf("Feature %s did not round-trip: got index %d", FeatureName(i), idx)
		}
	}
	if _, ok := FeatureIndex("nonexistent"); ok {
		t.Error("Unknown feature name should not resolve")
	}
}
