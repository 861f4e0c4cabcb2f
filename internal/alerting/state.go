package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AlertState is the per-user alert state machine, persisted in Redis
// between estimates. LastLogDate makes redelivered estimates no-ops,
// and LastTriggeredAt survives a clear so the cooldown holds.
type AlertState struct {
	Status              string    `json:"status"` // CLEAR, PENDING_ALERT, ALERTING
	ConsecutiveBreaches int       `json:"consecutive_breaches"`
	BreachStartTime     time.Time `json:"breach_start_time,omitempty"`
	LastScore           float64   `json:"last_score"`
	LastLogDate         string    `json:"last_log_date,omitempty"`
	LastChecked         time.Time `json:"last_checked"`
	LastTriggeredAt     time.Time `json:"last_triggered_at,omitempty"`
}

const (
	AlertStateClear   = "CLEAR"
	AlertStatePending = "PENDING_ALERT"
	AlertStateActive  = "ALERTING"
)

// StateManager manages alert states in Redis
type StateManager struct {
	redis *redis.Client
}

// NewStateManager creates a new state manager
func NewStateManager(redisClient *redis.Client) *StateManager {
	return &StateManager{redis: redisClient}
}

func stateKey(userID string) string {
	return fmt.Sprintf("alert_state:%s", userID)
}

// GetState retrieves the alert state for a user
func (sm *StateManager) GetState(ctx context.Context, userID string) (*AlertState, error) {
	data, err := sm.redis.Get(ctx, stateKey(userID)).Result()
	if err == redis.Nil {
		// No state exists, return CLEAR state
		return &AlertState{
			Status: AlertStateClear,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state from Redis: %w", err)
	}

	var state AlertState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return &state, nil
}

// SetState saves the alert state for a user
func (sm *StateManager) SetState(ctx context.Context, userID string, state *AlertState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Expire stale machines; a week with no estimates means CLEAR anyway
	if err := sm.redis.Set(ctx, stateKey(userID), data, 7*24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to set state in Redis: %w", err)
	}

	return nil
}

// DeleteState removes the alert state (returns to CLEAR)
func (sm *StateManager) DeleteState(ctx context.Context, userID string) error {
	return sm.redis.Del(ctx, stateKey(userID)).Err()
}
