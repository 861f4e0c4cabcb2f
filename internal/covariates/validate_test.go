package covariates

import (
	"errors"
	"testing"

	"github.com/smehta/migraine-server/internal/apperr"
)

func TestValidateProfile_AcceptsDefaults(t *testing.T) {
	p := &UserProfile{
		Age:               DefaultAge,
		Sex:               DefaultSex,
		PersonalThreshold: DefaultThreshold,
	}
	if err := ValidateProfile(p); err != nil {
		t.Fatalf("Default profile should validate: %v", err)
	}
}

func TestValidateProfile_Bounds(t *testing.T) {
	cases := []struct {
		name    string
		profile UserProfile
		field   string
	}{
		{"age too high", UserProfile{Age: 130, Sex: SexOther, PersonalThreshold: 0.5}, "age"},
		{"negative age", UserProfile{Age: -1, Sex: SexOther, PersonalThreshold: 0.5}, "age"},
		{"bad sex", UserProfile{Age: 30, Sex: "unknown", PersonalThreshold: 0.5}, "sex"},
		{"negative history", UserProfile{Age: 30, Sex: SexMale, MigraineHistoryYears: -2, PersonalThreshold: 0.5}, "migraine_history_years"},
		{"negative frequency", UserProfile{Age: 30, Sex: SexMale, AverageMigraineFrequency: -1, PersonalThreshold: 0.5}, "average_migraine_frequency"},
		{"threshold above one", UserProfile{Age: 30, Sex: SexMale, PersonalThreshold: 1.2}, "personal_threshold"},
	}

	for _, tc := range cases {
		err := ValidateProfile(&tc.profile)
		var verr *apperr.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
			continue
		}
		if verr.Field != tc.field {
			t.Errorf("%s: expected field %s, got %s", tc.name, tc.field, verr.Field)
		}
	}
}

func TestQualityWarnings_FlagsConcerningValues(t *testing.T) {
	log := &DailyLog{
		SleepHours:       Float64Ptr(2),
		StressLevel:      Float64Ptr(9),
		HydrationLiters:  Float64Ptr(0.2),
		CaffeineMg:       Float64Ptr(700),
		AlcoholUnits:     Float64Ptr(8),
		MigraineOccurred: true,
	}

	warnings := QualityWarnings(log)
	if len(warnings) != 6 {
		t.Errorf("Expected 6 warnings, got %d: %v", len(warnings), warnings)
	}
}

func TestQualityWarnings_QuietForTypicalDay(t *testing.T) {
	log := DefaultLog()
	if warnings := QualityWarnings(&log); len(warnings) != 0 {
		t.Errorf("Expected no warnings for a typical day, got %v", warnings)
	}
}
