package aggregation

import (
	"fmt"
	"time"

	"github.com/smehta/migraine-server/internal/database"
	"github.com/smehta/migraine-server/internal/logger"
)

// Profiles need at least this many logs in the window before the
// observed frequency replaces the self-reported one.
const minLogsForRefresh = 14

// FrequencyRefresher recomputes each profile's average migraine
// frequency from the observed attack rate in a trailing window,
// expressed as attacks per 30 days.
type FrequencyRefresher struct {
	db         *database.DB
	log        *logger.Logger
	windowDays int
}

// NewFrequencyRefresher creates a new frequency refresher
func NewFrequencyRefresher(db *database.DB, log *logger.Logger, windowDays int) *FrequencyRefresher {
	if windowDays <= 0 {
		windowDays = 90
	}
	return &FrequencyRefresher{db: db, log: log, windowDays: windowDays}
}

// Refresh updates the profiles of users with enough recent logs
func (f *FrequencyRefresher) Refresh() error {
	f.log.Info("refreshing observed migraine frequencies", "window_days", f.windowDays)

	query := `
		UPDATE user_profiles p
		SET
			average_migraine_frequency = sub.freq,
			updated_at = CURRENT_TIMESTAMP
		FROM (
			SELECT
				user_id,
				COUNT(*) FILTER (WHERE migraine_occurred) * 30.0 / $1 AS freq
			FROM
				daily_logs
			WHERE
				log_date >= CURRENT_DATE - $1::integer
			GROUP BY
				user_id
			HAVING
				COUNT(*) >= $2
		) sub
		WHERE p.user_id = sub.user_id
	`

	result, err := f.db.Exec(query, f.windowDays, minLogsForRefresh)
	if err != nil {
		return fmt.Errorf("failed to refresh migraine frequencies: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	f.log.Info("frequency refresh completed", "profiles", rowsAffected)

	return nil
}

// CalculateNextRunTime calculates when the refresh should next run.
// It runs at a specific time each day (e.g., "01:00").
func (f *FrequencyRefresher) CalculateNextRunTime(timeOfDay string) (time.Time, error) {
	now := time.Now()

	var hour, minute int
	if _, err := fmt.Sscanf(timeOfDay, "%d:%d", &hour, &minute); err != nil {
		return time.Time{}, fmt.Errorf("invalid time format: %s (expected HH:MM)", timeOfDay)
	}

	todayRun := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())

	// If we're past today's run time, schedule for tomorrow
	if now.After(todayRun) {
		return todayRun.AddDate(0, 0, 1), nil
	}

	return todayRun, nil
}
