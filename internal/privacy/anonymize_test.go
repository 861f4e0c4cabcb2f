package privacy

import (
	"strings"
	"testing"
	"time"

	"github.com/smehta/migraine-server/internal/covariates"
)

func TestPseudonym_StableAndSaltDependent(t *testing.T) {
	a := NewAnonymizer("salt-one")

	p1 := a.Pseudonym("user-123")
	p2 := a.Pseudonym("user-123")
	if p1 != p2 {
		t.Errorf("Pseudonym not stable: %s vs %s", p1, p2)
	}
	if len(p1) != 12 {
		t.Errorf("Expected 12-character pseudonym, got %d: %s", len(p1), p1)
	}
	if strings.Contains(p1, "user-123") {
		t.Errorf("Pseudonym leaks the input: %s", p1)
	}

	other := NewAnonymizer("salt-two")
	if other.Pseudonym("user-123") == p1 {
		t.Error("Different salts produced the same pseudonym")
	}
}

func TestAnonymizeLogs_ReplacesIdentifiers(t *testing.T) {
	a := NewAnonymizer("test-salt")
	userID := "3f2b8c14-9f2a-4a7e-b1d4-2f6c8a9e0d11"

	logs := []covariates.DailyLog{
		{
			UserID:            userID,
			Date:              time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			SleepHours:        covariates.Float64Ptr(6.5),
			MenstrualCycleDay: covariates.IntPtr(14),
			MigraineOccurred:  true,
			MigraineIntensity: covariates.Float64Ptr(7),
		},
		{
			UserID: userID,
			Date:   time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	out := a.AnonymizeLogs(userID, logs)
	if len(out) != 2 {
		t.Fatalf("Expected 2 exported logs, got %d", len(out))
	}

	for i, entry := range out {
		if strings.Contains(entry.Pseudonym, userID) || entry.Pseudonym == userID {
			t.Errorf("Entry %d leaks the user id: %s", i, entry.Pseudonym)
		}
	}
	if out[0].Pseudonym != out[1].Pseudonym {
		t.Error("Pseudonym differs across one user's logs")
	}

	if out[0].Date != "2026-04-01" {
		t.Errorf("Unexpected date: %s", out[0].Date)
	}
	if out[0].SleepHours == nil || *out[0].SleepHours != 6.5 {
		t.Error("Covariate did not pass through")
	}
	if !out[0].MigraineOccurred || out[0].MigraineIntensity == nil {
		t.Error("Outcome fields did not pass through")
	}

	if out[0].CycleToken == "" || len(out[0].CycleToken) != 12 {
		t.Errorf("Expected 12-character cycle token, got %q", out[0].CycleToken)
	}
	if out[0].CycleToken == out[0].Pseudonym {
		t.Error("Cycle token should not equal the user pseudonym")
	}
	if out[1].CycleToken != "" {
		t.Errorf("Log without cycle day should have empty token, got %q", out[1].CycleToken)
	}
}

func TestAnonymizeLogs_SameCycleDaySameToken(t *testing.T) {
	a := NewAnonymizer("test-salt")
	userID := "user-a"

	logs := []covariates.DailyLog{
		{UserID: userID, Date: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), MenstrualCycleDay: covariates.IntPtr(3)},
		{UserID: userID, Date: time.Date(2026, 4, 29, 0, 0, 0, 0, time.UTC), MenstrualCycleDay: covariates.IntPtr(3)},
		{UserID: userID, Date: time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC), MenstrualCycleDay: covariates.IntPtr(4)},
	}

	out := a.AnonymizeLogs(userID, logs)
	if out[0].CycleToken != out[1].CycleToken {
		t.Error("Same cycle day should map to the same token")
	}
	if out[0].CycleToken == out[2].CycleToken {
		t.Error("Different cycle days should map to different tokens")
	}
}
