package orchestration

import (
	"testing"

	"github.com/DXC-Lab-Linkage/ai-agent-sample-hub/core/events"
)

func TestTurnLifecycle(t *testing.T) {
	tracker := newTurnTracker(func(events.Event) {})

	if tracker.State() != TurnIdle {
		t.Fatalf("expected idle start, got %s", tracker.State())
	}

	tracker.speechStarted()
	if tracker.State() != TurnUserSpeaking {
		t.Fatalf("expected user_speaking, got %s", tracker.State())
	}

	tracker.speechStopped()
	if tracker.State() != TurnCommitPending {
		t.Fatalf("expected commit_pending, got %s", tracker.State())
	}

	tracker.committed()
	if tracker.State() != TurnAssistantGenerating {
		t.Fatalf("expected assistant_generating, got %s", tracker.State())
	}

	tracker.outputDelta()
	if tracker.State() != TurnAssistantSpeaking {
		t.Fatalf("expected assistant_speaking, got %s", tracker.State())
	}

	tracker.turnComplete()
	if tracker.State() != TurnIdle {
		t.Fatalf("expected idle after turn complete, got %s", tracker.State())
	}
}

func TestBargeInFromAssistantStates(t *testing.T) {
	for _, state := range []TurnState{TurnAssistantGenerating, TurnAssistantSpeaking} {
		tracker := newTurnTracker(func(events.Event) {})
		tracker.transition(state)

		if bargeIn := tracker.speechStarted(); !bargeIn {
			t.Fatalf("expected barge-in from %s", state)
		}
		if tracker.State() != TurnUserSpeaking {
			t.Fatalf("expected user_speaking after barge-in, got %s", tracker.State())
		}
	}
}

func TestSpeechStartFromIdleIsNotBargeIn(t *testing.T) {
	tracker := newTurnTracker(func(events.Event) {})
	if bargeIn := tracker.speechStarted(); bargeIn {
		t.Fatalf("speech from idle must not count as barge-in")
	}
}

func TestStaleResponseDoneDoesNotClobberUserTurn(t *testing.T) {
	tracker := newTurnTracker(func(events.Event) {})
	tracker.transition(TurnAssistantSpeaking)

	if bargeIn := tracker.speechStarted(); !bargeIn {
		t.Fatalf("expected barge-in from assistant_speaking")
	}

	// The cancelled response's trailing done arrives after the barge-in.
	tracker.turnComplete()
	if tracker.State() != TurnUserSpeaking {
		t.Fatalf("stale response.done clobbered user_speaking: state is %s", tracker.State())
	}

	// The interrupted user's turn still progresses normally.
	tracker.speechStopped()
	if tracker.State() != TurnCommitPending {
		t.Fatalf("expected commit_pending after interrupted turn, got %s", tracker.State())
	}
	tracker.committed()
	if tracker.State() != TurnAssistantGenerating {
		t.Fatalf("expected assistant_generating, got %s", tracker.State())
	}
}

func TestGuardedTransitionsIgnoreWrongSourceState(t *testing.T) {
	tracker := newTurnTracker(func(events.Event) {})

	tracker.speechStopped()
	if tracker.State() != TurnIdle {
		t.Fatalf("speech stop from idle should be ignored, got %s", tracker.State())
	}

	tracker.committed()
	if tracker.State() != TurnIdle {
		t.Fatalf("commit from idle should be ignored, got %s", tracker.State())
	}

	tracker.outputDelta()
	if tracker.State() != TurnIdle {
		t.Fatalf("output delta from idle should be ignored, got %s", tracker.State())
	}
}

func TestTransitionsEmitStateChanges(t *testing.T) {
	var emitted []events.Event
	tracker := newTurnTracker(func(event events.Event) { emitted = append(emitted, event) })

	tracker.speechStarted()
	tracker.speechStopped()

	if len(emitted) != 2 {
		t.Fatalf("expected 2 events, got %d", len(emitted))
	}
	change, ok := emitted[0].(events.TurnStateChanged)
	if !ok || change.To != string(TurnUserSpeaking) {
		t.Fatalf("unexpected first event: %+v", emitted[0])
	}
}
