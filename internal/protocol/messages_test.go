package protocol

import (
	"errors"
	"testing"
	"time"

	"github.com/smehta/migraine-server/internal/apperr"
)

func TestParseUserID_Valid(t *testing.T) {
	id, err := ParseUserID("0b06ba2a-5bd5-4f5a-b35a-66c60d9a2c3f")
	if err != nil {
		t.Fatalf("ParseUserID failed: %v", err)
	}
	if id != "0b06ba2a-5bd5-4f5a-b35a-66c60d9a2c3f" {
		t.Errorf("Expected canonical id back, got %q", id)
	}
}

func TestParseUserID_Invalid(t *testing.T) {
	_, err := ParseUserID("not-a-uuid")
	if err == nil {
		t.Fatal("Expected error for malformed id")
	}

	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %T", err)
	}
	if verr.Field != "user_id" {
		t.Errorf("Expected field user_id, got %q", verr.Field)
	}
}

func TestLogSubmission_ToDailyLog(t *testing.T) {
	sleep := 7.5
	intensity := 6.0
	sub := &LogSubmission{
		Date:              "2025-03-14",
		SleepHours:        &sleep,
		MigraineOccurred:  true,
		MigraineIntensity: &intensity,
	}

	log, err := sub.ToDailyLog("user-1")
	if err != nil {
		t.Fatalf("ToDailyLog failed: %v", err)
	}

	if log.UserID != "user-1" {
		t.Errorf("Expected user-1, got %q", log.UserID)
	}
	want := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	if !log.Date.Equal(want) {
		t.Errorf("Expected date %v, got %v", want, log.Date)
	}
	if log.SleepHours == nil || *log.SleepHours != 7.5 {
		t.Errorf("Expected sleep hours 7.5, got %v", log.SleepHours)
	}
	if !log.MigraineOccurred {
		t.Error("Expected migraine occurrence to carry over")
	}
	if log.StressLevel != nil {
		t.Error("Expected omitted covariates to stay nil")
	}
}

func TestLogSubmission_ToDailyLogMissingDate(t *testing.T) {
	sub := &LogSubmission{}

	_, err := sub.ToDailyLog("user-1")
	if err == nil {
		t.Fatal("Expected error for missing date")
	}

	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %T", err)
	}
	if verr.Field != "date" {
		t.Errorf("Expected field date, got %q", verr.Field)
	}
}

func TestLogSubmission_ToDailyLogBadDate(t *testing.T) {
	for _, raw := range []string{"14-03-2025", "2025/03/14", "2025-3-14", "yesterday"} {
		sub := &LogSubmission{Date: raw}
		if _, err := sub.ToDailyLog("user-1"); err == nil {
			t.Errorf("Expected error for date %q", raw)
		}
	}
}

func TestLogSubmission_ToBaselineLogOptionalDate(t *testing.T) {
	stress := 4.0
	sub := &LogSubmission{StressLevel: &stress}

	log, err := sub.ToBaselineLog()
	if err != nil {
		t.Fatalf("ToBaselineLog failed: %v", err)
	}
	if !log.Date.IsZero() {
		t.Errorf("Expected zero date for undated baseline entry, got %v", log.Date)
	}
	if log.UserID != "" {
		t.Errorf("Baseline entries carry no user id, got %q", log.UserID)
	}

	sub.Date = "bad"
	if _, err := sub.ToBaselineLog(); err == nil {
		t.Error("Expected error for malformed baseline date")
	}
}

func TestEstimateEvent_RoundTrip(t *testing.T) {
	logDate := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	event := NewEstimateEvent("user-1", logDate, 0.72, 0.88, 0.61, 0.03, true)

	data, err := EncodeEstimateEvent(event)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := DecodeEstimateEvent(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.UserID != "user-1" || decoded.Score != 0.72 || decoded.LogDate != "2025-03-14" {
		t.Errorf("Round trip mangled event: %+v", decoded)
	}
	if decoded.EventID == "" {
		t.Error("Expected generated event id")
	}

	parsed, err := decoded.ParsedLogDate()
	if err != nil {
		t.Fatalf("ParsedLogDate failed: %v", err)
	}
	if !parsed.Equal(logDate) {
		t.Errorf("Expected %v, got %v", logDate, parsed)
	}
}
