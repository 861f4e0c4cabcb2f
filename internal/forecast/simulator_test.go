package forecast

import (
	"errors"
	"testing"
	"time"

	"github.com/smehta/migraine-server/internal/apperr"
	"github.com/smehta/migraine-server/internal/covariates"
	"github.com/smehta/migraine-server/internal/filter"
)

func testState() filter.State {
	return filter.State{Mean: 0.55, Variance: 0.12, LogsCount: 10}
}

func sleepDeprivedBaseline() covariates.DailyLog {
	baseline := covariates.DefaultLog()
	baseline.SleepHours = covariates.Float64Ptr(4)
	baseline.StressLevel = covariates.Float64Ptr(7)
	return baseline
}

func TestSimulate_TrajectoryShape(t *testing.T) {
	res, err := Simulate(testState(), 0.5, covariates.DefaultLog(), nil)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if len(res.Trajectory) != Horizon {
		t.Fatalf("Expected %d-day trajectory, got %d", Horizon, len(res.Trajectory))
	}
	for i, score := range res.Trajectory {
		if score < 0 || score > 1 {
			t.Errorf("Day %d risk out of [0,1]: %v", i, score)
		}
	}
	if res.MigraineRisk != res.Trajectory[Horizon-1] {
		t.Errorf("MigraineRisk should be the final day's risk: %v vs %v",
			res.MigraineRisk, res.Trajectory[Horizon-1])
	}
	if res.Uncertainty < 0 || res.Uncertainty > 1 {
		t.Errorf("Uncertainty out of [0,1]: %v", res.Uncertainty)
	}
}

func TestSimulate_Deterministic(t *testing.T) {
	mods := map[string]float64{"sleep_hours": 9, "caffeine_mg": 0}

	first, err := Simulate(testState(), 0.5, sleepDeprivedBaseline(), mods)
	if err != nil {
		t.Fatalf("First simulation failed: %v", err)
	}
	second, err := Simulate(testState(), 0.5, sleepDeprivedBaseline(), mods)
	if err != nil {
		t.Fatalf("Second simulation failed: %v", err)
	}

	if first.MigraineRisk != second.MigraineRisk || first.Uncertainty != second.Uncertainty {
		t.Errorf("Simulations diverged: %+v vs %+v", first, second)
	}
	for i := range first.Trajectory {
		if first.Trajectory[i] != second.Trajectory[i] {
			t.Errorf("Trajectory day %d diverged: %v vs %v", i, first.Trajectory[i], second.Trajectory[i])
		}
	}
}

func TestSimulate_UncertaintyMonotoneInHorizon(t *testing.T) {
	prev := -1.0
	for horizon := 1; horizon <= 14; horizon++ {
		res, err := SimulateHorizon(testState(), 0.5, covariates.DefaultLog(), nil, horizon)
		if err != nil {
			t.Fatalf("Horizon %d failed: %v", horizon, err)
		}
		if res.Uncertainty < prev {
			t.Fatalf("Uncertainty decreased at horizon %d: %v < %v", horizon, res.Uncertainty, prev)
		}
		prev = res.Uncertainty
	}
}

func TestSimulate_MoreSleepNeverHurts(t *testing.T) {
	baseline, err := Simulate(testState(), 0.5, sleepDeprivedBaseline(), nil)
	if err != nil {
		t.Fatalf("Baseline simulation failed: %v", err)
	}
	improved, err := Simulate(testState(), 0.5, sleepDeprivedBaseline(),
		map[string]float64{"sleep_hours": 9})
	if err != nil {
		t.Fatalf("Modified simulation failed: %v", err)
	}
	if improved.MigraineRisk > baseline.MigraineRisk {
		t.Errorf("Nine hours of sleep should not raise risk: %v > %v",
			improved.MigraineRisk, baseline.MigraineRisk)
	}
}

func TestSimulate_UnknownOverrideRejected(t *testing.T) {
	_, err := Simulate(testState(), 0.5, covariates.DefaultLog(),
		map[string]float64{"screen_time_hours": 6})
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}

func TestSimulate_RejectsZeroHorizon(t *testing.T) {
	_, err := SimulateHorizon(testState(), 0.5, covariates.DefaultLog(), nil, 0)
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError for horizon 0, got %v", err)
	}
}

func TestResolveBaseline_Precedence(t *testing.T) {
	older := covariates.DefaultLog()
	older.Date = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	older.SleepHours = covariates.Float64Ptr(5)

	newer := covariates.DefaultLog()
	newer.Date = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	newer.SleepHours = covariates.Float64Ptr(6)

	persisted := covariates.DefaultLog()
	persisted.SleepHours = covariates.Float64Ptr(7)

	got := ResolveBaseline([]covariates.DailyLog{newer, older}, &persisted)
	if *got.SleepHours != 6 {
		t.Errorf("Expected most recent explicit baseline (sleep 6), got %.1f", *got.SleepHours)
	}

	got = ResolveBaseline(nil, &persisted)
	if *got.SleepHours != 7 {
		t.Errorf("Expected persisted fallback (sleep 7), got %.1f", *got.SleepHours)
	}

	got = ResolveBaseline(nil, nil)
	if *got.SleepHours != 7.5 {
		t.Errorf("Expected population default (sleep 7.5), got %.1f", *got.SleepHours)
	}
}
