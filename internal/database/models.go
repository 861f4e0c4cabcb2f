package database

import (
	"time"
)

// LatentStateRecord is the persisted filter state for one user.
type LatentStateRecord struct {
	UserID      string
	Mean        float64
	Variance    float64
	LogsCount   int
	LastLogDate *time.Time
	UpdatedAt   time.Time
}

// RiskHistoryEntry is one appended risk estimate, written by the
// history writer from estimate events.
type RiskHistoryEntry struct {
	ID            int64
	UserID        string
	LogDate       time.Time
	Score         float64
	Confidence    float64
	StateMean     float64
	StateVariance float64
	CreatedAt     time.Time
}

// AlertRule is a user's alerting configuration.
type AlertRule struct {
	ID                  int
	UserID              string
	Margin              float64
	ConsecutiveRequired int
	NotifyEmail         string
	Enabled             bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// MonthlySummary is one user-month aggregate over logs and risk
// history.
type MonthlySummary struct {
	ID            int64
	UserID        string
	Month         time.Time
	LogsCount     int
	MigraineDays  int
	AvgRisk       *float64
	MaxRisk       *float64
	AvgSleepHours *float64
	AvgStress     *float64
	CreatedAt     time.Time
}
