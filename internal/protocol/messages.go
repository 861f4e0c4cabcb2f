package protocol

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smehta/migraine-server/internal/apperr"
	"github.com/smehta/migraine-server/internal/covariates"
)

// DateFormat is the calendar-date layout used on every wire surface.
const DateFormat = "2006-01-02"

// ParseUserID validates the path form of a user id.
func ParseUserID(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", &apperr.ValidationError{
			Field:  "user_id",
			Reason: fmt.Sprintf("must be a valid UUID, got %q", raw),
		}
	}
	return id.String(), nil
}

// CreateUserRequest registers a profile. Omitted fields take
// population defaults; an omitted user_id is generated server-side.
type CreateUserRequest struct {
	UserID                   string   `json:"user_id"`
	Age                      *int     `json:"age"`
	Sex                      *string  `json:"sex"`
	MigraineHistoryYears     *float64 `json:"migraine_history_years"`
	AverageMigraineFrequency *float64 `json:"average_migraine_frequency"`
	PersonalThreshold        *float64 `json:"personal_threshold"`
}

// UpdateUserRequest is a partial profile update: only present fields
// change. Profile updates never touch the latent state.
type UpdateUserRequest struct {
	Age                      *int     `json:"age"`
	Sex                      *string  `json:"sex"`
	MigraineHistoryYears     *float64 `json:"migraine_history_years"`
	AverageMigraineFrequency *float64 `json:"average_migraine_frequency"`
	PersonalThreshold        *float64 `json:"personal_threshold"`
}

// UserResponse is the wire form of a profile.
type UserResponse struct {
	UserID                   string    `json:"user_id"`
	Age                      int       `json:"age"`
	Sex                      string    `json:"sex"`
	MigraineHistoryYears     float64   `json:"migraine_history_years"`
	AverageMigraineFrequency float64   `json:"average_migraine_frequency"`
	PersonalThreshold        float64   `json:"personal_threshold"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// NewUserResponse converts a profile to its wire form.
func NewUserResponse(p *covariates.UserProfile) *UserResponse {
	return &UserResponse{
		UserID:                   p.UserID,
		Age:                      p.Age,
		Sex:                      p.Sex,
		MigraineHistoryYears:     p.MigraineHistoryYears,
		AverageMigraineFrequency: p.AverageMigraineFrequency,
		PersonalThreshold:        p.PersonalThreshold,
		CreatedAt:                p.CreatedAt,
		UpdatedAt:                p.UpdatedAt,
	}
}

// LogSubmission is one raw daily observation as submitted.
type LogSubmission struct {
	Date               string   `json:"date"`
	SleepHours         *float64 `json:"sleep_hours"`
	SleepQuality       *float64 `json:"sleep_quality"`
	StressLevel        *float64 `json:"stress_level"`
	HydrationLiters    *float64 `json:"hydration_liters"`
	CaffeineMg         *float64 `json:"caffeine_mg"`
	AlcoholUnits       *float64 `json:"alcohol_units"`
	ExerciseMinutes    *float64 `json:"exercise_minutes"`
	WeatherPressureHPa *float64 `json:"weather_pressure_hpa"`
	MenstrualCycleDay  *int     `json:"menstrual_cycle_day"`
	MigraineOccurred   bool     `json:"migraine_occurred"`
	MigraineIntensity  *float64 `json:"migraine_intensity"`
}

// ToDailyLog converts a submission for ingestion. The date is
// required and must be a calendar date.
func (s *LogSubmission) ToDailyLog(userID string) (*covariates.DailyLog, error) {
	if s.Date == "" {
		return nil, &apperr.ValidationError{Field: "date", Reason: "date is required"}
	}
	date, err := time.Parse(DateFormat, s.Date)
	if err != nil {
		return nil, &apperr.ValidationError{
			Field:  "date",
			Reason: fmt.Sprintf("must be formatted %s, got %q", DateFormat, s.Date),
		}
	}
	log := s.toLog(userID)
	log.Date = date
	return log, nil
}

// ToBaselineLog converts a simulation baseline entry. The date is
// optional there; an empty date sorts before any dated entry.
func (s *LogSubmission) ToBaselineLog() (*covariates.DailyLog, error) {
	log := s.toLog("")
	if s.Date != "" {
		date, err := time.Parse(DateFormat, s.Date)
		if err != nil {
			return nil, &apperr.ValidationError{
				Field:  "date",
				Reason: fmt.Sprintf("must be formatted %s, got %q", DateFormat, s.Date),
			}
		}
		log.Date = date
	}
	return log, nil
}

func (s *LogSubmission) toLog(userID string) *covariates.DailyLog {
	return &covariates.DailyLog{
		UserID:             userID,
		SleepHours:         s.SleepHours,
		SleepQuality:       s.SleepQuality,
		StressLevel:        s.StressLevel,
		HydrationLiters:    s.HydrationLiters,
		CaffeineMg:         s.CaffeineMg,
		AlcoholUnits:       s.AlcoholUnits,
		ExerciseMinutes:    s.ExerciseMinutes,
		WeatherPressureHPa: s.WeatherPressureHPa,
		MenstrualCycleDay:  s.MenstrualCycleDay,
		MigraineOccurred:   s.MigraineOccurred,
		MigraineIntensity:  s.MigraineIntensity,
	}
}

// LogResponse is the wire form of a stored observation.
type LogResponse struct {
	Date               string   `json:"date"`
	SleepHours         *float64 `json:"sleep_hours"`
	SleepQuality       *float64 `json:"sleep_quality"`
	StressLevel        *float64 `json:"stress_level"`
	HydrationLiters    *float64 `json:"hydration_liters"`
	CaffeineMg         *float64 `json:"caffeine_mg"`
	AlcoholUnits       *float64 `json:"alcohol_units"`
	ExerciseMinutes    *float64 `json:"exercise_minutes"`
	WeatherPressureHPa *float64 `json:"weather_pressure_hpa"`
	MenstrualCycleDay  *int     `json:"menstrual_cycle_day"`
	MigraineOccurred   bool     `json:"migraine_occurred"`
	MigraineIntensity  *float64 `json:"migraine_intensity"`
}

// NewLogResponse converts a stored log to its wire form.
func NewLogResponse(log *covariates.DailyLog) *LogResponse {
	return &LogResponse{
		Date:               log.Date.Format(DateFormat),
		SleepHours:         log.SleepHours,
		SleepQuality:       log.SleepQuality,
		StressLevel:        log.StressLevel,
		HydrationLiters:    log.HydrationLiters,
		CaffeineMg:         log.CaffeineMg,
		AlcoholUnits:       log.AlcoholUnits,
		ExerciseMinutes:    log.ExerciseMinutes,
		WeatherPressureHPa: log.WeatherPressureHPa,
		MenstrualCycleDay:  log.MenstrualCycleDay,
		MigraineOccurred:   log.MigraineOccurred,
		MigraineIntensity:  log.MigraineIntensity,
	}
}

// LogAccepted is returned after a successful ingestion: the refreshed
// estimate plus any data-quality warnings.
type LogAccepted struct {
	Date               string   `json:"date"`
	VulnerabilityScore float64  `json:"vulnerability_score"`
	Confidence         float64  `json:"confidence"`
	Warnings           []string `json:"warnings,omitempty"`
}

// VulnerabilityResponse is the on-demand estimate for a user.
type VulnerabilityResponse struct {
	VulnerabilityScore float64 `json:"vulnerability_score"`
	Confidence         float64 `json:"confidence"`
}

// SimulationRequest asks a what-if question: optional explicit
// baseline logs plus a partial covariate override applied to every
// simulated day.
type SimulationRequest struct {
	BaselineLogs              []LogSubmission    `json:"baseline_logs"`
	HypotheticalModifications map[string]float64 `json:"hypothetical_modifications"`
}

// SimulationResponse is a 7-day trajectory with its aggregate
// uncertainty.
type SimulationResponse struct {
	MigraineRisk float64   `json:"migraine_risk"`
	Uncertainty  float64   `json:"uncertainty"`
	Trajectory   []float64 `json:"trajectory"`
}

// InterventionResponse is one ranked catalog entry.
type InterventionResponse struct {
	InterventionType       string  `json:"intervention_type"`
	Description            string  `json:"description"`
	PredictedRiskReduction float64 `json:"predicted_risk_reduction"`
}

// RiskHistoryPoint is one persisted estimate in a history response.
type RiskHistoryPoint struct {
	Date       string  `json:"date"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}
