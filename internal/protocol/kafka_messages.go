package protocol

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EstimateEvent is the internal message format for the estimates
// topic, published after every accepted daily log. Messages are keyed
// by user id so one user's estimates stay ordered within a partition.
type EstimateEvent struct {
	EventID          string    `json:"event_id"`
	UserID           string    `json:"user_id"`
	LogDate          string    `json:"log_date"`
	Score            float64   `json:"score"`
	Confidence       float64   `json:"confidence"`
	StateMean        float64   `json:"state_mean"`
	StateVariance    float64   `json:"state_variance"`
	MigraineOccurred bool      `json:"migraine_occurred"`
	ProducedAt       time.Time `json:"produced_at"`
}

// NewEstimateEvent builds an estimate event with a fresh event id.
func NewEstimateEvent(userID string, logDate time.Time, score, confidence, mean, variance float64, occurred bool) *EstimateEvent {
	return &EstimateEvent{
		EventID:          uuid.New().String(),
		UserID:           userID,
		LogDate:          logDate.Format(DateFormat),
		Score:            score,
		Confidence:       confidence,
		StateMean:        mean,
		StateVariance:    variance,
		MigraineOccurred: occurred,
		ProducedAt:       time.Now().UTC(),
	}
}

// ParsedLogDate returns the event's log date as a time value.
func (e *EstimateEvent) ParsedLogDate() (time.Time, error) {
	return time.Parse(DateFormat, e.LogDate)
}

// AlertEvent is the message format for alert notifications, published
// when a user's alert state machine fires or clears.
type AlertEvent struct {
	EventID     string    `json:"event_id"`
	Type        string    `json:"type"` // ALERT_TRIGGERED, ALERT_CLEARED
	UserID      string    `json:"user_id"`
	Score       float64   `json:"score"`
	Threshold   float64   `json:"threshold"`
	Margin      float64   `json:"margin"`
	Consecutive int       `json:"consecutive"`
	NotifyEmail string    `json:"notify_email,omitempty"`
	TriggeredAt time.Time `json:"triggered_at"`
}

const (
	AlertTypeTriggered = "ALERT_TRIGGERED"
	AlertTypeCleared   = "ALERT_CLEARED"
)

// NewAlertEvent builds an alert event with a fresh event id.
func NewAlertEvent(eventType, userID string, score, threshold, margin float64, consecutive int, notifyEmail string) *AlertEvent {
	return &AlertEvent{
		EventID:     uuid.New().String(),
		Type:        eventType,
		UserID:      userID,
		Score:       score,
		Threshold:   threshold,
		Margin:      margin,
		Consecutive: consecutive,
		NotifyEmail: notifyEmail,
		TriggeredAt: time.Now().UTC(),
	}
}

// EncodeEstimateEvent encodes an EstimateEvent to JSON
func EncodeEstimateEvent(event *EstimateEvent) ([]byte, error) {
	return json.Marshal(event)
}

// DecodeEstimateEvent decodes JSON to EstimateEvent
func DecodeEstimateEvent(data []byte) (*EstimateEvent, error) {
	var event EstimateEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// EncodeAlertEvent encodes an AlertEvent to JSON
func EncodeAlertEvent(event *AlertEvent) ([]byte, error) {
	return json.Marshal(event)
}

// DecodeAlertEvent decodes JSON to AlertEvent
func DecodeAlertEvent(data []byte) (*AlertEvent, error) {
	var event AlertEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
