package aggregation

import (
	"testing"
	"time"

	"github.com/smehta/migraine-server/internal/logger"
)

func TestMonthlyAggregator_CalculateNextRunTime(t *testing.T) {
	m := NewMonthlyAggregator(nil, logger.NewNop())

	next, err := m.CalculateNextRunTime("00:15")
	if err != nil {
		t.Fatalf("CalculateNextRunTime failed: %v", err)
	}

	if next.Day() != 1 {
		t.Errorf("Expected run on the first of the month, got day %d", next.Day())
	}
	if next.Hour() != 0 || next.Minute() != 15 {
		t.Errorf("Expected 00:15, got %02d:%02d", next.Hour(), next.Minute())
	}
	if !next.After(time.Now()) {
		t.Errorf("Next run %v is not in the future", next)
	}
	if next.Sub(time.Now()) > 32*24*time.Hour {
		t.Errorf("Next run %v is more than a month away", next)
	}
}

func TestMonthlyAggregator_CalculateNextRunTimeBadFormat(t *testing.T) {
	m := NewMonthlyAggregator(nil, logger.NewNop())

	if _, err := m.CalculateNextRunTime("midnight"); err == nil {
		t.Error("Expected error for a malformed time of day")
	}
}
