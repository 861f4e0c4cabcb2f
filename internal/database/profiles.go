package database

import (
	"database/sql"
	"fmt"

	"github.com/smehta/migraine-server/internal/apperr"
	"github.com/smehta/migraine-server/internal/covariates"
)

// CreateUserProfile inserts a new profile. A duplicate user id is a
// ConflictError, never an overwrite.
func (db *DB) CreateUserProfile(p *covariates.UserProfile) error {
	query := `
		INSERT INTO user_profiles (
			user_id, age, sex, migraine_history_years,
			average_migraine_frequency, personal_threshold
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := db.QueryRow(
		query,
		p.UserID,
		p.Age,
		p.Sex,
		p.MigraineHistoryYears,
		p.AverageMigraineFrequency,
		p.PersonalThreshold,
	).Scan(&p.CreatedAt, &p.UpdatedAt)

	if isUniqueViolation(err) {
		return &apperr.ConflictError{Resource: "user", Detail: fmt.Sprintf("user %s already exists", p.UserID)}
	}
	if err != nil {
		return fmt.Errorf("failed to insert user profile: %w", err)
	}
	return nil
}

// GetUserProfile retrieves a profile by user id. Returns nil when the
// user does not exist.
func (db *DB) GetUserProfile(userID string) (*covariates.UserProfile, error) {
	query := `
		SELECT user_id, age, sex, migraine_history_years,
		       average_migraine_frequency, personal_threshold,
		       created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`

	var p covariates.UserProfile
	err := db.QueryRow(query, userID).Scan(
		&p.UserID,
		&p.Age,
		&p.Sex,
		&p.MigraineHistoryYears,
		&p.AverageMigraineFrequency,
		&p.PersonalThreshold,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// UpdateUserProfile persists the full set of mutable profile fields.
// Callers merge partial updates onto the loaded profile first.
func (db *DB) UpdateUserProfile(p *covariates.UserProfile) error {
	query := `
		UPDATE user_profiles
		SET age = $1,
		    sex = $2,
		    migraine_history_years = $3,
		    average_migraine_frequency = $4,
		    personal_threshold = $5,
		    updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $6
		RETURNING updated_at
	`

	err := db.QueryRow(
		query,
		p.Age,
		p.Sex,
		p.MigraineHistoryYears,
		p.AverageMigraineFrequency,
		p.PersonalThreshold,
		p.UserID,
	).Scan(&p.UpdatedAt)

	if err == sql.ErrNoRows {
		return &apperr.NotFoundError{Resource: "user", ID: p.UserID}
	}
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return nil
}

// CreateDefaultAlertRule seeds a user's alerting configuration at
// registration. Safe to call twice.
func (db *DB) CreateDefaultAlertRule(userID string, margin float64, consecutive int) error {
	query := `
		INSERT INTO alert_rules (user_id, margin, consecutive_required, notify_email, enabled)
		VALUES ($1, $2, $3, '', true)
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err := db.Exec(query, userID, margin, consecutive)
	if err != nil {
		return fmt.Errorf("failed to seed alert rule: %w", err)
	}
	return nil
}

// GetAlertRule retrieves a user's alerting configuration. Returns nil
// when none exists.
func (db *DB) GetAlertRule(userID string) (*AlertRule, error) {
	query := `
		SELECT id, user_id, margin, consecutive_required, notify_email,
		       enabled, created_at, updated_at
		FROM alert_rules
		WHERE user_id = $1
	`

	var r AlertRule
	err := db.QueryRow(query, userID).Scan(
		&r.ID,
		&r.UserID,
		&r.Margin,
		&r.ConsecutiveRequired,
		&r.NotifyEmail,
		&r.Enabled,
		&r.CreatedAt,
		&r.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &r, nil
}
