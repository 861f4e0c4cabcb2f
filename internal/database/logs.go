package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/smehta/migraine-server/internal/apperr"
	"github.com/smehta/migraine-server/internal/covariates"
)

// InsertDailyLog appends one observation. A second log for the same
// (user, date) violates the unique index and surfaces as a
// ConflictError.
func (db *DB) InsertDailyLog(log *covariates.DailyLog) error {
	query := `
		INSERT INTO daily_logs (
			user_id, log_date, sleep_hours, sleep_quality, stress_level,
			hydration_liters, caffeine_mg, alcohol_units, exercise_minutes,
			weather_pressure_hpa, menstrual_cycle_day,
			migraine_occurred, migraine_intensity
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := db.Exec(
		query,
		log.UserID,
		log.Date,
		log.SleepHours,
		log.SleepQuality,
		log.StressLevel,
		log.HydrationLiters,
		log.CaffeineMg,
		log.AlcoholUnits,
		log.ExerciseMinutes,
		log.WeatherPressureHPa,
		log.MenstrualCycleDay,
		log.MigraineOccurred,
		log.MigraineIntensity,
	)

	if isUniqueViolation(err) {
		return &apperr.ConflictError{
			Resource: "daily_log",
			Detail: fmt.Sprintf("log already recorded for %s on %s",
				log.UserID, log.Date.Format("2006-01-02")),
		}
	}
	if err != nil {
		return fmt.Errorf("failed to insert daily log: %w", err)
	}
	return nil
}

const dailyLogColumns = `
	user_id, log_date, sleep_hours, sleep_quality, stress_level,
	hydration_liters, caffeine_mg, alcohol_units, exercise_minutes,
	weather_pressure_hpa, menstrual_cycle_day,
	migraine_occurred, migraine_intensity
`

func scanDailyLog(row interface{ Scan(...interface{}) error }) (*covariates.DailyLog, error) {
	var log covariates.DailyLog
	err := row.Scan(
		&log.UserID,
		&log.Date,
		&log.SleepHours,
		&log.SleepQuality,
		&log.StressLevel,
		&log.HydrationLiters,
		&log.CaffeineMg,
		&log.AlcoholUnits,
		&log.ExerciseMinutes,
		&log.WeatherPressureHPa,
		&log.MenstrualCycleDay,
		&log.MigraineOccurred,
		&log.MigraineIntensity,
	)
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// ListRecentLogs returns up to limit logs, newest first.
func (db *DB) ListRecentLogs(userID string, limit int) ([]covariates.DailyLog, error) {
	query := `
		SELECT ` + dailyLogColumns + `
		FROM daily_logs
		WHERE user_id = $1
		ORDER BY log_date DESC
		LIMIT $2
	`

	rows, err := db.Query(query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []covariates.DailyLog
	for rows.Next() {
		log, err := scanDailyLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *log)
	}

	return logs, rows.Err()
}

// ListLogsAscending returns a user's full log history in chronological
// order, the shape a state replay consumes.
func (db *DB) ListLogsAscending(userID string) ([]covariates.DailyLog, error) {
	query := `
		SELECT ` + dailyLogColumns + `
		FROM daily_logs
		WHERE user_id = $1
		ORDER BY log_date ASC
	`

	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []covariates.DailyLog
	for rows.Next() {
		log, err := scanDailyLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *log)
	}

	return logs, rows.Err()
}

// LatestLog returns the most recent log for a user, or nil when the
// user has never logged.
func (db *DB) LatestLog(userID string) (*covariates.DailyLog, error) {
	query := `
		SELECT ` + dailyLogColumns + `
		FROM daily_logs
		WHERE user_id = $1
		ORDER BY log_date DESC
		LIMIT 1
	`

	log, err := scanDailyLog(db.QueryRow(query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return log, nil
}

// InsertRiskHistoryBatch appends a batch of risk estimates in one
// multi-row insert. Duplicate (user, date) rows from replayed events
// are dropped silently.
func (db *DB) InsertRiskHistoryBatch(entries []*RiskHistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO risk_history (
			user_id, log_date, score, confidence, state_mean, state_variance
		) VALUES `)

	args := make([]interface{}, 0, len(entries)*6)
	for i, e := range entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 6
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args, e.UserID, e.LogDate, e.Score, e.Confidence, e.StateMean, e.StateVariance)
	}
	sb.WriteString(" ON CONFLICT (user_id, log_date) DO NOTHING")

	if _, err := db.Exec(sb.String(), args...); err != nil {
		return fmt.Errorf("failed to insert risk history batch: %w", err)
	}
	return nil
}

// ListRiskHistory returns the persisted estimates for the trailing
// window, oldest first.
func (db *DB) ListRiskHistory(userID string, days int) ([]*RiskHistoryEntry, error) {
	query := `
		SELECT id, user_id, log_date, score, confidence,
		       state_mean, state_variance, created_at
		FROM risk_history
		WHERE user_id = $1 AND log_date >= $2
		ORDER BY log_date ASC
	`

	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := db.Query(query, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*RiskHistoryEntry
	for rows.Next() {
		var e RiskHistoryEntry
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.LogDate,
			&e.Score,
			&e.Confidence,
			&e.StateMean,
			&e.StateVariance,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}
