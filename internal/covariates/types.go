package covariates

import (
	"time"
)

// Sex categories accepted on a user profile.
const (
	SexMale   = "male"
	SexFemale = "female"
	SexOther  = "other"
)

// Population defaults applied at registration when a field is omitted.
const (
	DefaultAge       = 35
	DefaultSex       = SexOther
	DefaultThreshold = 0.5
)

// UserProfile holds the static and slow-changing covariates for one
// user. PersonalThreshold is in latent-state units and stays at the
// population default until explicitly overridden.
type UserProfile struct {
	UserID                   string
	Age                      int
	Sex                      string
	MigraineHistoryYears     float64
	AverageMigraineFrequency float64
	PersonalThreshold        float64
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// DailyLog is one self-reported observation for a calendar date. Nil
// covariate fields were not reported and take population defaults
// during normalization. MigraineIntensity is meaningful only when
// MigraineOccurred is true.
type DailyLog struct {
	UserID             string
	Date               time.Time
	SleepHours         *float64
	SleepQuality       *float64
	StressLevel        *float64
	HydrationLiters    *float64
	CaffeineMg         *float64
	AlcoholUnits       *float64
	ExerciseMinutes    *float64
	WeatherPressureHPa *float64
	MenstrualCycleDay  *int
	MigraineOccurred   bool
	MigraineIntensity  *float64
}

// Intensity returns the reported migraine intensity, treating a
// non-occurrence day as zero regardless of what was supplied.
func (l *DailyLog) Intensity() float64 {
	if !l.MigraineOccurred || l.MigraineIntensity == nil {
		return 0
	}
	return *l.MigraineIntensity
}

// Float64Ptr returns a pointer to v. Convenience for building logs.
func Float64Ptr(v float64) *float64 { return &v }

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
