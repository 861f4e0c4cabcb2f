package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/smehta/migraine-server/internal/covariates"
)

// Anonymizer produces stable pseudonyms for identifying fields. The
// same salt always yields the same pseudonym for a user, so exports
// taken at different times still join on the pseudonym.
type Anonymizer struct {
	salt string
}

// NewAnonymizer creates an anonymizer with the given salt
func NewAnonymizer(salt string) *Anonymizer {
	return &Anonymizer{salt: salt}
}

// Pseudonym derives a stable 12-character token from a value
func (a *Anonymizer) Pseudonym(value string) string {
	sum := sha256.Sum256([]byte(a.salt + ":" + value))
	return hex.EncodeToString(sum[:])[:12]
}

// AnonymizedLog is one exported observation. The user id is replaced
// by a pseudonym and the cycle day by a salted token; behavioral
// covariates pass through unchanged.
type AnonymizedLog struct {
	Pseudonym          string   `json:"pseudonym"`
	Date               string   `json:"date"`
	SleepHours         *float64 `json:"sleep_hours"`
	SleepQuality       *float64 `json:"sleep_quality"`
	StressLevel        *float64 `json:"stress_level"`
	HydrationLiters    *float64 `json:"hydration_liters"`
	CaffeineMg         *float64 `json:"caffeine_mg"`
	AlcoholUnits       *float64 `json:"alcohol_units"`
	ExerciseMinutes    *float64 `json:"exercise_minutes"`
	WeatherPressureHPa *float64 `json:"weather_pressure_hpa"`
	CycleToken         string   `json:"cycle_token,omitempty"`
	MigraineOccurred   bool     `json:"migraine_occurred"`
	MigraineIntensity  *float64 `json:"migraine_intensity"`
}

// AnonymizeLogs converts a user's logs to their exportable form
func (a *Anonymizer) AnonymizeLogs(userID string, logs []covariates.DailyLog) []AnonymizedLog {
	pseudonym := a.Pseudonym(userID)

	out := make([]AnonymizedLog, 0, len(logs))
	for i := range logs {
		log := &logs[i]

		cycleToken := ""
		if log.MenstrualCycleDay != nil {
			cycleToken = a.Pseudonym(fmt.Sprintf("%s/cycle/%d", userID, *log.MenstrualCycleDay))
		}

		out = append(out, AnonymizedLog{
			Pseudonym:          pseudonym,
			Date:               log.Date.Format("2006-01-02"),
			SleepHours:         log.SleepHours,
			SleepQuality:       log.SleepQuality,
			StressLevel:        log.StressLevel,
			HydrationLiters:    log.HydrationLiters,
			CaffeineMg:         log.CaffeineMg,
			AlcoholUnits:       log.AlcoholUnits,
			ExerciseMinutes:    log.ExerciseMinutes,
			WeatherPressureHPa: log.WeatherPressureHPa,
			CycleToken:         cycleToken,
			MigraineOccurred:   log.MigraineOccurred,
			MigraineIntensity:  log.MigraineIntensity,
		})
	}

	return out
}
