package forecast

import (
	"github.com/smehta/migraine-server/internal/apperr"
	"github.com/smehta/migraine-server/internal/covariates"
	"github.com/smehta/migraine-server/internal/filter"
	"github.com/smehta/migraine-server/internal/risk"
)

// Horizon is the fixed forecast length in days.
const Horizon = 7

// Result is one trajectory simulation. MigraineRisk is the projected
// risk at the end of the horizon; Uncertainty aggregates how much
// confidence the projection sheds over the horizon.
type Result struct {
	MigraineRisk float64
	Uncertainty  float64
	Trajectory   []float64
}

// ResolveBaseline picks the covariates a simulation holds constant:
// the most recent of the explicitly supplied logs, else the user's
// persisted latest log, else population defaults.
func ResolveBaseline(explicit []covariates.DailyLog, persisted *covariates.DailyLog) covariates.DailyLog {
	if len(explicit) > 0 {
		latest := explicit[0]
		for _, log := range explicit[1:] {
			if !log.Date.Before(latest.Date) {
				latest = log
			}
		}
		return latest
	}
	if persisted != nil {
		return *persisted
	}
	return covariates.DefaultLog()
}

// Simulate forward-propagates the state for the standard horizon under
// the baseline covariates with the given overrides applied to every
// simulated day.
func Simulate(state filter.State, threshold float64, baseline covariates.DailyLog, overrides map[string]float64) (*Result, error) {
	return SimulateHorizon(state, threshold, baseline, overrides, Horizon)
}

// SimulateHorizon is Simulate with an explicit horizon length. The
// transition model runs without any occurrence measurement, since
// future occurrences are unknown. Deterministic: identical inputs
// produce identical trajectories.
func SimulateHorizon(state filter.State, threshold float64, baseline covariates.DailyLog, overrides map[string]float64, horizon int) (*Result, error) {
	if horizon < 1 {
		return nil, &apperr.ValidationError{
			Field:  "horizon",
			Reason: "must be at least 1 day",
		}
	}

	merged, err := covariates.ApplyOverrides(baseline, overrides)
	if err != nil {
		return nil, err
	}
	feats, _, err := covariates.Normalize(&merged)
	if err != nil {
		return nil, err
	}

	trajectory := make([]float64, 0, horizon)
	confidence := 1.0
	current := state
	for day := 0; day < horizon; day++ {
		current, err = filter.Transition(current, feats)
		if err != nil {
			return nil, err
		}
		est := risk.Project(current.Mean, current.Variance, threshold)
		trajectory = append(trajectory, est.Score)
		confidence *= est.Confidence
	}

	return &Result{
		MigraineRisk: trajectory[horizon-1],
		Uncertainty:  1 - confidence,
		Trajectory:   trajectory,
	}, nil
}
