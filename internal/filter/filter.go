package filter

import (
	"fmt"
	"math"
	"time"

	"github.com/smehta/migraine-server/internal/apperr"
	"github.com/smehta/migraine-server/internal/covariates"
	"github.com/smehta/migraine-server/internal/risk"
)

// Model constants. The latent state is a single accumulated
// vulnerability scalar in [0,1] with an estimation variance.
const (
	// phi is day-to-day persistence of accumulated vulnerability.
	phi = 0.82
	// restingPoint is where the state settles under neutral covariates.
	restingPoint = 0.35
	// driveGain scales the covariate drive into the transition.
	driveGain = 0.22
	// processNoise is added to the variance every transition.
	processNoise = 0.018

	// intensityGain scales reported intensity into the occurrence
	// pseudo-measurement.
	intensityGain = 0.25
	// occurrenceNoise is the measurement noise on an occurrence day.
	occurrenceNoise = 0.12
	// quietMeasurement is the weak recovery pull on a quiet day.
	quietMeasurement = 0.30
	// quietNoise keeps the recovery pull gentle.
	quietNoise = 0.85

	// initialVariance is the no-history prior variance.
	initialVariance = 0.40
	// historyVarianceShrink reduces prior variance for users with a
	// long self-reported history.
	historyVarianceShrink = 0.35
	// historyHalfSaturation: history weight = years/(years+this).
	historyHalfSaturation = 4.0

	minVariance = 1e-6
)

// State is the per-user latent vulnerability estimate. It is a pure
// fold over the user's ordered log history from the profile prior:
// replaying the same logs from the same prior always reproduces it.
type State struct {
	Mean        float64
	Variance    float64
	LogsCount   int
	LastLogDate time.Time
}

type driveKind int

const (
	driveProtective driveKind = iota
	driveAggravating
	driveDeviation
)

// driveTable assigns each covariate a direction and weight relative to
// its population default. Protective covariates lower vulnerability as
// they rise; aggravating covariates raise it; deviation covariates
// matter in either direction (pressure swings).
var driveTable = [covariates.FeatureCount]struct {
	kind   driveKind
	weight float64
}{
	covariates.FeatSleepHours:      {driveProtective, 0.90},
	covariates.FeatSleepQuality:    {driveProtective, 0.35},
	covariates.FeatStressLevel:     {driveAggravating, 0.80},
	covariates.FeatHydrationLiters: {driveProtective, 0.45},
	covariates.FeatCaffeineMg:      {driveAggravating, 0.30},
	covariates.FeatAlcoholUnits:    {driveAggravating, 0.40},
	covariates.FeatExerciseMinutes: {driveProtective, 0.20},
	covariates.FeatPressureHPa:     {driveDeviation, 0.35},
}

// Drive collapses a normalized observation into a signed scalar: how
// hard today's covariates push vulnerability up (positive) or down
// (negative) relative to population-default living.
func Drive(f covariates.Features) float64 {
	base := covariates.DefaultFeatures()
	var d float64
	for i, spec := range driveTable {
		switch spec.kind {
		case driveProtective:
			d += spec.weight * (base[i] - f[i])
		case driveAggravating:
			d += spec.weight * (f[i] - base[i])
		case driveDeviation:
			d += spec.weight * math.Abs(f[i]-base[i])
		}
	}
	return d
}

// NewPrior builds the initial state for a user from profile
// covariates. Users with a long self-reported history start nearer
// the stationary point implied by their attack frequency, with a
// tighter variance; users with no history start at the population
// midpoint.
func NewPrior(p *covariates.UserProfile) State {
	w := p.MigraineHistoryYears / (p.MigraineHistoryYears + historyHalfSaturation)

	// Stationary point implied by the reported attack rate: the mean
	// whose threshold-crossing probability matches attacks-per-day.
	ratio := clampFloat(p.AverageMigraineFrequency/30.0, 0.02, 0.98)
	freqMean := covariates.DefaultThreshold + risk.Tau*risk.Logit(ratio)

	mean := (1-w)*covariates.DefaultThreshold + w*freqMean
	if p.Sex == covariates.SexFemale {
		mean += 0.02
	}
	if p.Age >= 50 {
		mean -= 0.02
	}
	mean = clampFloat(mean, 0.05, 0.95)

	return State{
		Mean:     mean,
		Variance: initialVariance * (1 - historyVarianceShrink*w),
	}
}

// Transition propagates the state one day forward under the given
// covariates, without any occurrence evidence. Shared by the update
// path and the forward simulation path.
func Transition(s State, f covariates.Features) (State, error) {
	next := s
	next.Mean = phi*s.Mean + (1-phi)*restingPoint + driveGain*Drive(f)
	next.Variance = phi*phi*s.Variance + processNoise
	if err := checkFinite("transition", next); err != nil {
		return State{}, err
	}
	next.Mean = clampFloat(next.Mean, 0, 1)
	if next.Variance < minVariance {
		next.Variance = minVariance
	}
	return next, nil
}

// Update advances the state with one observed log: transition under
// the day's covariates, then a Kalman-style measurement step. An
// occurrence is one-sided evidence of elevated vulnerability near the
// personal threshold; a quiet day is weak evidence of recovery. The
// step is deterministic, so replays reproduce states exactly.
func Update(s State, threshold float64, log *covariates.DailyLog, f covariates.Features) (State, error) {
	pred, err := Transition(s, f)
	if err != nil {
		return State{}, err
	}

	var z, noise float64
	if log.MigraineOccurred {
		z = threshold + intensityGain*(log.Intensity()/10.0)
		noise = occurrenceNoise
	} else {
		z = quietMeasurement
		noise = quietNoise
	}

	innovation := z - pred.Mean
	if log.MigraineOccurred && innovation < 0 {
		// An attack never argues the state down.
		innovation = 0
	}

	gain := pred.Variance / (pred.Variance + noise)
	next := pred
	next.Mean = pred.Mean + gain*innovation
	next.Variance = (1 - gain) * pred.Variance
	if err := checkFinite("update", next); err != nil {
		return State{}, err
	}
	next.Mean = clampFloat(next.Mean, 0, 1)
	if next.Variance < minVariance {
		next.Variance = minVariance
	}

	next.LogsCount = s.LogsCount + 1
	next.LastLogDate = log.Date
	return next, nil
}

// Replay refolds the state from the profile prior through the given
// logs, which must be ordered ascending by date. Used for repair and
// audit; the result matches the incrementally maintained state.
func Replay(p *covariates.UserProfile, logs []covariates.DailyLog) (State, error) {
	state := NewPrior(p)
	for i := range logs {
		f, _, err := covariates.Normalize(&logs[i])
		if err != nil {
			return State{}, fmt.Errorf("failed to normalize log for %s: %w",
				logs[i].Date.Format("2006-01-02"), err)
		}
		state, err = Update(state, p.PersonalThreshold, &logs[i], f)
		if err != nil {
			return State{}, err
		}
	}
	return state, nil
}

func checkFinite(op string, s State) error {
	if math.IsNaN(s.Mean) || math.IsInf(s.Mean, 0) {
		return &apperr.ComputationError{Op: op, Detail: "state mean is not finite"}
	}
	if math.IsNaN(s.Variance) || math.IsInf(s.Variance, 0) || s.Variance < 0 {
		return &apperr.ComputationError{Op: op, Detail: fmt.Sprintf("invalid variance %v", s.Variance)}
	}
	return nil
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
