package alerting

import (
	"testing"
	"time"
)

var fsmBase = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func clearState() *AlertState {
	return &AlertState{Status: AlertStateClear}
}

func TestAdvance_BelowBreachStaysClear(t *testing.T) {
	state := clearState()

	action := Advance(state, false, 2, 24*time.Hour, fsmBase)
	if action != ActionNone {
		t.Errorf("Expected no action, got %v", action)
	}
	if state.Status != AlertStateClear {
		t.Errorf("Expected CLEAR, got %s", state.Status)
	}
	if state.LastChecked != fsmBase {
		t.Error("LastChecked was not updated")
	}
}

func TestAdvance_FirstBreachGoesPending(t *testing.T) {
	state := clearState()

	action := Advance(state, true, 2, 24*time.Hour, fsmBase)
	if action != ActionNone {
		t.Errorf("Expected no action on first breach, got %v", action)
	}
	if state.Status != AlertStatePending {
		t.Errorf("Expected PENDING_ALERT, got %s", state.Status)
	}
	if state.ConsecutiveBreaches != 1 {
		t.Errorf("Expected 1 consecutive breach, got %d", state.ConsecutiveBreaches)
	}
	if state.BreachStartTime != fsmBase {
		t.Error("BreachStartTime was not set")
	}
}

func TestAdvance_SecondConsecutiveBreachTriggers(t *testing.T) {
	state := clearState()

	Advance(state, true, 2, 24*time.Hour, fsmBase)
	action := Advance(state, true, 2, 24*time.Hour, fsmBase.Add(24*time.Hour))

	if action != ActionTrigger {
		t.Fatalf("Expected trigger on second breach, got %v", action)
	}
	if state.Status != AlertStateActive {
		t.Errorf("Expected ALERTING, got %s", state.Status)
	}
	if state.ConsecutiveBreaches != 2 {
		t.Errorf("Expected 2 consecutive breaches, got %d", state.ConsecutiveBreaches)
	}
	if state.LastTriggeredAt.IsZero() {
		t.Error("LastTriggeredAt was not set on trigger")
	}
}

func TestAdvance_BrokenStreakResets(t *testing.T) {
	state := clearState()

	Advance(state, true, 3, 24*time.Hour, fsmBase)
	Advance(state, true, 3, 24*time.Hour, fsmBase.Add(24*time.Hour))

	// A calm day breaks the streak before the third breach
	action := Advance(state, false, 3, 24*time.Hour, fsmBase.Add(48*time.Hour))
	if action != ActionNone {
		t.Errorf("Expected no action, got %v", action)
	}
	if state.Status != AlertStateClear {
		t.Errorf("Expected CLEAR after broken streak, got %s", state.Status)
	}
	if state.ConsecutiveBreaches != 0 {
		t.Errorf("Expected streak reset, got %d", state.ConsecutiveBreaches)
	}

	// The count starts over on the next breach
	Advance(state, true, 3, 24*time.Hour, fsmBase.Add(72*time.Hour))
	if state.ConsecutiveBreaches != 1 {
		t.Errorf("Expected streak restarted at 1, got %d", state.ConsecutiveBreaches)
	}
}

func TestAdvance_RequiredOneTriggersImmediately(t *testing.T) {
	state := clearState()

	action := Advance(state, true, 1, 24*time.Hour, fsmBase)
	if action != ActionTrigger {
		t.Errorf("Expected immediate trigger with required=1, got %v", action)
	}
	if state.Status != AlertStateActive {
		t.Errorf("Expected ALERTING, got %s", state.Status)
	}
}

func TestAdvance_ActiveHoldsUntilRecovery(t *testing.T) {
	state := clearState()
	Advance(state, true, 1, 24*time.Hour, fsmBase)

	// Still breached: active, no repeated trigger
	action := Advance(state, true, 1, 24*time.Hour, fsmBase.Add(24*time.Hour))
	if action != ActionNone {
		t.Errorf("Expected no action while active, got %v", action)
	}
	if state.Status != AlertStateActive {
		t.Errorf("Expected ALERTING, got %s", state.Status)
	}

	// Recovery clears
	action = Advance(state, false, 1, 24*time.Hour, fsmBase.Add(48*time.Hour))
	if action != ActionClear {
		t.Errorf("Expected clear action, got %v", action)
	}
	if state.Status != AlertStateClear {
		t.Errorf("Expected CLEAR, got %s", state.Status)
	}
}

func TestAdvance_CooldownSuppressesRetrigger(t *testing.T) {
	state := clearState()
	cooldown := 24 * time.Hour

	// Trigger and clear
	Advance(state, true, 1, cooldown, fsmBase)
	Advance(state, false, 1, cooldown, fsmBase.Add(2*time.Hour))

	// Breach again inside the cooldown window: suppressed
	action := Advance(state, true, 1, cooldown, fsmBase.Add(12*time.Hour))
	if action != ActionNone {
		t.Errorf("Expected suppression inside cooldown, got %v", action)
	}
	if state.Status != AlertStateClear {
		t.Errorf("Expected CLEAR during cooldown, got %s", state.Status)
	}

	// After the cooldown the machine arms again
	action = Advance(state, true, 1, cooldown, fsmBase.Add(25*time.Hour))
	if action != ActionTrigger {
		t.Errorf("Expected trigger after cooldown, got %v", action)
	}
}

func TestAdvance_ZeroRequiredBehavesAsOne(t *testing.T) {
	state := clearState()

	action := Advance(state, true, 0, 24*time.Hour, fsmBase)
	if action != ActionTrigger {
		t.Errorf("Expected trigger with required=0, got %v", action)
	}
}
