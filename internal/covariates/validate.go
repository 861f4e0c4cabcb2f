package covariates

import (
	"fmt"

	"github.com/smehta/migraine-server/internal/apperr"
)

// ValidateProfile checks the structural bounds on profile covariates.
func ValidateProfile(p *UserProfile) error {
	if p.Age < 0 || p.Age > 120 {
		return &apperr.ValidationError{
			Field:  "age",
			Reason: fmt.Sprintf("must be within [0, 120], got %d", p.Age),
		}
	}
	switch p.Sex {
	case SexMale, SexFemale, SexOther:
	default:
		return &apperr.ValidationError{
			Field:  "sex",
			Reason: fmt.Sprintf("must be one of male, female, other; got %q", p.Sex),
		}
	}
	if p.MigraineHistoryYears < 0 {
		return &apperr.ValidationError{
			Field:  "migraine_history_years",
			Reason: "must not be negative",
		}
	}
	if p.AverageMigraineFrequency < 0 {
		return &apperr.ValidationError{
			Field:  "average_migraine_frequency",
			Reason: "must not be negative",
		}
	}
	if p.PersonalThreshold < 0 || p.PersonalThreshold > 1 {
		return &apperr.ValidationError{
			Field:  "personal_threshold",
			Reason: fmt.Sprintf("must be within [0, 1], got %.3f", p.PersonalThreshold),
		}
	}
	return nil
}

// QualityWarnings inspects a log for values worth flagging for review.
// Warnings never block ingestion or the filter update.
func QualityWarnings(log *DailyLog) []string {
	var warnings []string
	if log.SleepHours != nil && *log.SleepHours < 4 {
		warnings = append(warnings, "very low sleep duration reported")
	}
	if log.StressLevel != nil && *log.StressLevel >= 9 {
		warnings = append(warnings, "extreme stress level reported")
	}
	if log.HydrationLiters != nil && *log.HydrationLiters < 0.5 {
		warnings = append(warnings, "very low hydration reported")
	}
	if log.CaffeineMg != nil && *log.CaffeineMg > 600 {
		warnings = append(warnings, "very high caffeine intake reported")
	}
	if log.AlcoholUnits != nil && *log.AlcoholUnits > 6 {
		warnings = append(warnings, "very high alcohol intake reported")
	}
	if log.MigraineOccurred && log.Intensity() == 0 {
		warnings = append(warnings, "migraine reported without intensity")
	}
	return warnings
}
