package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smehta/migraine-server/internal/database"
	"github.com/smehta/migraine-server/internal/logger"
	"github.com/smehta/migraine-server/internal/metrics"
	"github.com/smehta/migraine-server/internal/protocol"
	"github.com/smehta/migraine-server/internal/queue"
)

// A score of 0.5 means the state sits exactly at the personal
// threshold, so breach = 0.5 + margin.
const scoreMidpoint = 0.5

// Action is what the state machine decided for one estimate
type Action int

const (
	ActionNone Action = iota
	ActionTrigger
	ActionClear
)

// Advance folds one estimate into the state machine and reports what
// fired. Mutates state in place; persistence and notification are the
// caller's job.
func Advance(state *AlertState, breached bool, consecutiveRequired int, cooldown time.Duration, now time.Time) Action {
	if consecutiveRequired < 1 {
		consecutiveRequired = 1
	}
	state.LastChecked = now

	switch state.Status {
	case AlertStateClear:
		if !breached {
			return ActionNone
		}
		// Re-triggering is suppressed inside the cooldown window
		if !state.LastTriggeredAt.IsZero() && now.Sub(state.LastTriggeredAt) < cooldown {
			return ActionNone
		}
		state.Status = AlertStatePending
		state.ConsecutiveBreaches = 1
		state.BreachStartTime = now
		if state.ConsecutiveBreaches >= consecutiveRequired {
			state.Status = AlertStateActive
			state.LastTriggeredAt = now
			return ActionTrigger
		}
		return ActionNone

	case AlertStatePending:
		if !breached {
			// Streak broken before the alert fired
			state.Status = AlertStateClear
			state.ConsecutiveBreaches = 0
			return ActionNone
		}
		state.ConsecutiveBreaches++
		if state.ConsecutiveBreaches >= consecutiveRequired {
			state.Status = AlertStateActive
			state.LastTriggeredAt = now
			return ActionTrigger
		}
		return ActionNone

	case AlertStateActive:
		if breached {
			return ActionNone
		}
		state.Status = AlertStateClear
		state.ConsecutiveBreaches = 0
		return ActionClear
	}

	return ActionNone
}

// Evaluator evaluates estimate events against per-user alert rules
// and drives the alert state machines
type Evaluator struct {
	db            *database.DB
	stateManager  *StateManager
	alertProducer *queue.Producer
	metrics       *metrics.Metrics
	log           *logger.Logger

	defaultMargin      float64
	defaultConsecutive int
	cooldown           time.Duration

	mu            sync.Mutex
	ruleCache     map[string]*database.AlertRule
	lastCacheLoad time.Time
	cacheValidity time.Duration
}

// NewEvaluator creates a new alert evaluator
func NewEvaluator(
	db *database.DB,
	stateManager *StateManager,
	alertProducer *queue.Producer,
	m *metrics.Metrics,
	log *logger.Logger,
	defaultMargin float64,
	defaultConsecutive int,
	cooldown time.Duration,
) *Evaluator {
	return &Evaluator{
		db:                 db,
		stateManager:       stateManager,
		alertProducer:      alertProducer,
		metrics:            m,
		log:                log,
		defaultMargin:      defaultMargin,
		defaultConsecutive: defaultConsecutive,
		cooldown:           cooldown,
		ruleCache:          make(map[string]*database.AlertRule),
		cacheValidity:      5 * time.Minute,
	}
}

// EvaluateEstimate folds one estimate event into the user's alert
// state machine. Re-delivered and stale events are skipped.
func (e *Evaluator) EvaluateEstimate(ctx context.Context, event *protocol.EstimateEvent) error {
	rule, err := e.getRule(event.UserID)
	if err != nil {
		return fmt.Errorf("failed to get alert rule: %w", err)
	}

	margin := e.defaultMargin
	consecutiveRequired := e.defaultConsecutive
	notifyEmail := ""
	if rule != nil {
		if !rule.Enabled {
			return nil
		}
		margin = rule.Margin
		consecutiveRequired = rule.ConsecutiveRequired
		notifyEmail = rule.NotifyEmail
	}

	state, err := e.stateManager.GetState(ctx, event.UserID)
	if err != nil {
		return err
	}

	// ISO dates compare lexically; an already-seen date is a redelivery
	if state.LastLogDate != "" && event.LogDate <= state.LastLogDate {
		e.log.Debug("skipping stale estimate", "user_id", event.UserID, "log_date", event.LogDate)
		return nil
	}

	breachScore := scoreMidpoint + margin
	breached := event.Score >= breachScore

	now := time.Now()
	action := Advance(state, breached, consecutiveRequired, e.cooldown, now)
	state.LastScore = event.Score
	state.LastLogDate = event.LogDate

	if err := e.stateManager.SetState(ctx, event.UserID, state); err != nil {
		return err
	}

	switch action {
	case ActionTrigger:
		e.metrics.AlertsTriggered.Inc()
		e.log.Info("alert triggered",
			"user_id", event.UserID,
			"score", event.Score,
			"breach_score", breachScore,
			"consecutive", state.ConsecutiveBreaches,
		)
		return e.sendNotification(ctx, protocol.NewAlertEvent(
			protocol.AlertTypeTriggered, event.UserID, event.Score, breachScore, margin,
			state.ConsecutiveBreaches, notifyEmail,
		))

	case ActionClear:
		e.metrics.AlertsCleared.Inc()
		e.log.Info("alert cleared", "user_id", event.UserID, "score", event.Score)
		return e.sendNotification(ctx, protocol.NewAlertEvent(
			protocol.AlertTypeCleared, event.UserID, event.Score, breachScore, margin,
			0, notifyEmail,
		))
	}

	return nil
}

func (e *Evaluator) sendNotification(ctx context.Context, event *protocol.AlertEvent) error {
	data, err := protocol.EncodeAlertEvent(event)
	if err != nil {
		return fmt.Errorf("failed to encode alert event: %w", err)
	}
	return e.alertProducer.Publish(ctx, event.UserID, data)
}

// getRule returns the user's alert rule through a short-lived cache.
// A nil rule means the user has none; the config defaults apply.
func (e *Evaluator) getRule(userID string) (*database.AlertRule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if time.Since(e.lastCacheLoad) > e.cacheValidity {
		e.ruleCache = make(map[string]*database.AlertRule)
		e.lastCacheLoad = time.Now()
	}

	if rule, ok := e.ruleCache[userID]; ok {
		return rule, nil
	}

	rule, err := e.db.GetAlertRule(userID)
	if err != nil {
		return nil, err
	}

	e.ruleCache[userID] = rule
	return rule, nil
}
