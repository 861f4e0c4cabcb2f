package aggregation

import (
	"fmt"
	"time"

	"github.com/smehta/migraine-server/internal/database"
	"github.com/smehta/migraine-server/internal/logger"
)

// MonthlyAggregator rolls daily logs and persisted estimates up into
// per-user monthly summaries
type MonthlyAggregator struct {
	db  *database.DB
	log *logger.Logger
}

// NewMonthlyAggregator creates a new monthly aggregator
func NewMonthlyAggregator(db *database.DB, log *logger.Logger) *MonthlyAggregator {
	return &MonthlyAggregator{db: db, log: log}
}

// Aggregate builds the summaries for the month containing targetDate
func (m *MonthlyAggregator) Aggregate(targetDate time.Time) error {
	monthStart := time.Date(targetDate.Year(), targetDate.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)

	m.log.Info("running monthly aggregation", "month", monthStart.Format("2006-01"))

	query := `
		INSERT INTO monthly_summaries (
			user_id, month, logs_count, migraine_days,
			avg_risk, max_risk, avg_sleep_hours, avg_stress
		)
		SELECT
			l.user_id,
			$1::date AS month,
			COUNT(*) AS logs_count,
			COUNT(*) FILTER (WHERE l.migraine_occurred) AS migraine_days,
			AVG(r.score) AS avg_risk,
			MAX(r.score) AS max_risk,
			AVG(l.sleep_hours) AS avg_sleep_hours,
			AVG(l.stress_level) AS avg_stress
		FROM
			daily_logs l
			LEFT JOIN risk_history r
				ON r.user_id = l.user_id AND r.log_date = l.log_date
		WHERE
			l.log_date >= $1::date AND l.log_date < $2::date
		GROUP BY
			l.user_id
		ON CONFLICT (user_id, month) DO UPDATE
		SET
			logs_count = EXCLUDED.logs_count,
			migraine_days = EXCLUDED.migraine_days,
			avg_risk = EXCLUDED.avg_risk,
			max_risk = EXCLUDED.max_risk,
			avg_sleep_hours = EXCLUDED.avg_sleep_hours,
			avg_stress = EXCLUDED.avg_stress
	`

	result, err := m.db.Exec(query, monthStart, nextMonth)
	if err != nil {
		return fmt.Errorf("failed to aggregate monthly data: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	m.log.Info("monthly aggregation completed", "month", monthStart.Format("2006-01"), "users", rowsAffected)

	return nil
}

// AggregatePreviousMonth aggregates the previous full month
func (m *MonthlyAggregator) AggregatePreviousMonth() error {
	now := time.Now().UTC()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return m.Aggregate(firstOfMonth.AddDate(0, -1, 0))
}

// AggregateCurrentMonth refreshes the running month's summaries
func (m *MonthlyAggregator) AggregateCurrentMonth() error {
	return m.Aggregate(time.Now().UTC())
}

// CalculateNextRunTime calculates when the monthly aggregation should
// next run. It runs on the first of each month at the given time
// (format: "HH:MM").
func (m *MonthlyAggregator) CalculateNextRunTime(timeOfDay string) (time.Time, error) {
	now := time.Now()

	var hour, minute int
	if _, err := fmt.Sscanf(timeOfDay, "%d:%d", &hour, &minute); err != nil {
		return time.Time{}, fmt.Errorf("invalid time format: %s (expected HH:MM)", timeOfDay)
	}

	thisMonthRun := time.Date(now.Year(), now.Month(), 1, hour, minute, 0, 0, now.Location())
	if now.After(thisMonthRun) {
		return thisMonthRun.AddDate(0, 1, 0), nil
	}

	return thisMonthRun, nil
}
