package covariates

import (
	"fmt"

	"github.com/smehta/migraine-server/internal/apperr"
)

// Feature vector indices. The ordering is fixed and shared by the
// estimator update path and the simulator forward path.
const (
	FeatSleepHours = iota
	FeatSleepQuality
	FeatStressLevel
	FeatHydrationLiters
	FeatCaffeineMg
	FeatAlcoholUnits
	FeatExerciseMinutes
	FeatPressureHPa
	FeatureCount
)

// Features is a normalized observation: every entry scaled to [0,1]
// over its physical range.
type Features [FeatureCount]float64

type featureSpec struct {
	name   string
	min    float64
	max    float64
	defval float64
}

// featureTable defines physical ranges and population defaults, in
// vector order. Every covariate is physically non-negative, so a
// negative value is structural garbage rather than a clampable outlier.
var featureTable = [FeatureCount]featureSpec{
	{name: "sleep_hours", min: 0, max: 12, defval: 7.5},
	{name: "sleep_quality", min: 0, max: 10, defval: 6.0},
	{name: "stress_level", min: 0, max: 10, defval: 4.0},
	{name: "hydration_liters", min: 0, max: 5, defval: 2.0},
	{name: "caffeine_mg", min: 0, max: 800, defval: 100.0},
	{name: "alcohol_units", min: 0, max: 10, defval: 0.0},
	{name: "exercise_minutes", min: 0, max: 180, defval: 20.0},
	{name: "weather_pressure_hpa", min: 950, max: 1050, defval: 1013.25},
}

// FeatureName returns the JSON field name for a vector index.
func FeatureName(idx int) string {
	return featureTable[idx].name
}

// FeatureIndex resolves a JSON field name to its vector index.
func FeatureIndex(name string) (int, bool) {
	for i, spec := range featureTable {
		if spec.name == name {
			return i, true
		}
	}
	return 0, false
}

// FeatureRange returns the physical bounds for a vector index.
func FeatureRange(idx int) (min, max float64) {
	return featureTable[idx].min, featureTable[idx].max
}

// Resolved returns the reported value for a covariate, or its
// population default when the field was not reported.
func Resolved(log *DailyLog, idx int) float64 {
	raw := log.fieldPointers()
	if raw[idx] != nil {
		return *raw[idx]
	}
	return featureTable[idx].defval
}

// DefaultFeatures returns the normalized population-default vector,
// the comparison point for covariate drive.
func DefaultFeatures() Features {
	var f Features
	for i, spec := range featureTable {
		f[i] = scale(spec.defval, spec.min, spec.max)
	}
	return f
}

// DefaultLog returns a log populated with population defaults for
// every covariate. Used as the simulation baseline for users with no
// recorded history.
func DefaultLog() DailyLog {
	log := DailyLog{}
	log.SleepHours = Float64Ptr(featureTable[FeatSleepHours].defval)
	log.SleepQuality = Float64Ptr(featureTable[FeatSleepQuality].defval)
	log.StressLevel = Float64Ptr(featureTable[FeatStressLevel].defval)
	log.HydrationLiters = Float64Ptr(featureTable[FeatHydrationLiters].defval)
	log.CaffeineMg = Float64Ptr(featureTable[FeatCaffeineMg].defval)
	log.AlcoholUnits = Float64Ptr(featureTable[FeatAlcoholUnits].defval)
	log.ExerciseMinutes = Float64Ptr(featureTable[FeatExerciseMinutes].defval)
	log.WeatherPressureHPa = Float64Ptr(featureTable[FeatPressureHPa].defval)
	return log
}

// Normalize converts a raw log into the feature vector. Missing fields
// take population defaults. Out-of-range values are clamped and
// reported as data-quality flags, not errors. Structurally invalid
// input (negative where negativity is physically impossible, intensity
// out of bounds on an occurrence day) fails with a ValidationError.
func Normalize(log *DailyLog) (Features, []string, error) {
	var f Features
	var flags []string

	raw := log.fieldPointers()
	for i, spec := range featureTable {
		val := spec.defval
		if raw[i] != nil {
			val = *raw[i]
			if val < 0 {
				return f, nil, &apperr.ValidationError{
					Field:  spec.name,
					Reason: fmt.Sprintf("must not be negative, got %.2f", val),
				}
			}
			if val < spec.min || val > spec.max {
				flags = append(flags, fmt.Sprintf(
					"%s %.2f outside physical range [%.0f, %.0f], clamped",
					spec.name, val, spec.min, spec.max))
				val = clamp(val, spec.min, spec.max)
			}
		}
		f[i] = scale(val, spec.min, spec.max)
	}

	if log.MigraineOccurred && log.MigraineIntensity != nil {
		if *log.MigraineIntensity < 0 || *log.MigraineIntensity > 10 {
			return f, nil, &apperr.ValidationError{
				Field:  "migraine_intensity",
				Reason: fmt.Sprintf("must be within [0, 10], got %.2f", *log.MigraineIntensity),
			}
		}
	}
	if log.MenstrualCycleDay != nil {
		if *log.MenstrualCycleDay < 1 || *log.MenstrualCycleDay > 35 {
			return f, nil, &apperr.ValidationError{
				Field:  "menstrual_cycle_day",
				Reason: fmt.Sprintf("must be within [1, 35], got %d", *log.MenstrualCycleDay),
			}
		}
	}

	return f, flags, nil
}

// ApplyOverrides merges a partial covariate override onto a baseline
// log. Only overridden fields change; every other field holds the
// baseline value. Unknown field names fail with a ValidationError.
func ApplyOverrides(baseline DailyLog, overrides map[string]float64) (DailyLog, error) {
	merged := baseline
	for name, val := range overrides {
		idx, ok := FeatureIndex(name)
		if !ok {
			return baseline, &apperr.ValidationError{
				Field:  name,
				Reason: "unknown covariate field for hypothetical modification",
			}
		}
		v := val
		switch idx {
		case FeatSleepHours:
			merged.SleepHours = &v
		case FeatSleepQuality:
			merged.SleepQuality = &v
		case FeatStressLevel:
			merged.StressLevel = &v
		case FeatHydrationLiters:
			merged.HydrationLiters = &v
		case FeatCaffeineMg:
			merged.CaffeineMg = &v
		case FeatAlcoholUnits:
			merged.AlcoholUnits = &v
		case FeatExerciseMinutes:
			merged.ExerciseMinutes = &v
		case FeatPressureHPa:
			merged.WeatherPressureHPa = &v
		}
	}
	return merged, nil
}

// fieldPointers lists covariate fields in vector order.
func (l *DailyLog) fieldPointers() [FeatureCount]*float64 {
	return [FeatureCount]*float64{
		l.SleepHours,
		l.SleepQuality,
		l.StressLevel,
		l.HydrationLiters,
		l.CaffeineMg,
		l.AlcoholUnits,
		l.ExerciseMinutes,
		l.WeatherPressureHPa,
	}
}

func scale(v, min, max float64) float64 {
	return (v - min) / (max - min)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
