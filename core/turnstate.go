package orchestration

import (
	"sync"

	"github.com/DXC-Lab-Linkage/ai-agent-sample-hub/core/events"
)

// TurnState is the conversational turn-taking state derived from
// voice-activity and generation events.
type TurnState string

const (
	TurnIdle                TurnState = "idle"
	TurnUserSpeaking        TurnState = "user_speaking"
	TurnCommitPending       TurnState = "commit_pending"
	TurnAssistantGenerating TurnState = "assistant_generating"
	TurnAssistantSpeaking   TurnState = "assistant_speaking"
)

// turnTracker is the turn-taking state machine. Transitions come from the
// dispatcher only; the mutex exists because accessors may run on other
// goroutines.
type turnTracker struct {
	mu    sync.Mutex
	state TurnState
	emit  func(events.Event)
}

func newTurnTracker(emit func(events.Event)) *turnTracker {
	return &turnTracker{state: TurnIdle, emit: emit}
}

func (t *turnTracker) State() TurnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// speechStarted handles a voice-activity-start signal and reports whether it
// interrupted in-flight assistant output (barge-in).
func (t *turnTracker) speechStarted() (bargeIn bool) {
	t.mu.Lock()
	from := t.state
	bargeIn = from == TurnAssistantGenerating || from == TurnAssistantSpeaking
	t.state = TurnUserSpeaking
	t.mu.Unlock()

	if from != TurnUserSpeaking {
		t.emit(events.NewTurnStateChanged(string(from), string(TurnUserSpeaking)))
	}
	if bargeIn {
		t.emit(events.NewBargeIn(string(from)))
	}
	return bargeIn
}

// speechStopped handles the configured-silence signal: the user stopped
// speaking and the input buffer is about to be committed.
func (t *turnTracker) speechStopped() {
	t.transitionFrom(TurnUserSpeaking, TurnCommitPending)
}

// committed handles the commit acknowledgement that triggers generation.
func (t *turnTracker) committed() {
	t.transitionFrom(TurnCommitPending, TurnAssistantGenerating)
}

// responseStarted handles the peer accepting a generation request.
func (t *turnTracker) responseStarted() {
	t.transition(TurnAssistantGenerating)
}

// outputDelta handles the first audio/text delta of a response; later deltas
// are no-ops.
func (t *turnTracker) outputDelta() {
	t.transitionFrom(TurnAssistantGenerating, TurnAssistantSpeaking)
}

// turnComplete handles the end of a response and returns to idle. A cancelled
// response still gets a trailing done from the peer; after a barge-in has
// already moved the machine to UserSpeaking, that stale done must not reset
// the user's turn.
func (t *turnTracker) turnComplete() {
	t.transitionFrom(TurnAssistantGenerating, TurnIdle)
	t.transitionFrom(TurnAssistantSpeaking, TurnIdle)
}

func (t *turnTracker) transition(to TurnState) {
	t.mu.Lock()
	from := t.state
	t.state = to
	t.mu.Unlock()

	if from != to {
		t.emit(events.NewTurnStateChanged(string(from), string(to)))
	}
}

func (t *turnTracker) transitionFrom(from, to TurnState) {
	t.mu.Lock()
	if t.state != from {
		t.mu.Unlock()
		return
	}
	t.state = to
	t.mu.Unlock()

	t.emit(events.NewTurnStateChanged(string(from), string(to)))
}
