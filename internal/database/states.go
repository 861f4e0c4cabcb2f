package database

import (
	"database/sql"
	"fmt"
)

// UpsertLatentState writes the filter state for a user, replacing any
// previous record. The caller has already validated the state is
// finite and in bounds.
func (db *DB) UpsertLatentState(rec *LatentStateRecord) error {
	query := `
		INSERT INTO latent_states (
			user_id, mean, variance, logs_count, last_log_date
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET mean = EXCLUDED.mean,
		    variance = EXCLUDED.variance,
		    logs_count = EXCLUDED.logs_count,
		    last_log_date = EXCLUDED.last_log_date,
		    updated_at = CURRENT_TIMESTAMP
	`

	_, err := db.Exec(
		query,
		rec.UserID,
		rec.Mean,
		rec.Variance,
		rec.LogsCount,
		rec.LastLogDate,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert latent state: %w", err)
	}
	return nil
}

// GetLatentState retrieves the persisted filter state for a user.
// Returns nil when the user has no state row yet.
func (db *DB) GetLatentState(userID string) (*LatentStateRecord, error) {
	query := `
		SELECT user_id, mean, variance, logs_count, last_log_date, updated_at
		FROM latent_states
		WHERE user_id = $1
	`

	var rec LatentStateRecord
	err := db.QueryRow(query, userID).Scan(
		&rec.UserID,
		&rec.Mean,
		&rec.Variance,
		&rec.LogsCount,
		&rec.LastLogDate,
		&rec.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}
