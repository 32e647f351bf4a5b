package events

const (
	// KindTurnStateChanged identifies a turn-taking state transition.
	KindTurnStateChanged Kind = "turn.state_changed"
	// KindBargeIn identifies a user interruption of assistant output.
	KindBargeIn Kind = "turn.barge_in"
)

// TurnStateChanged marks a transition of the turn-taking state machine.
type TurnStateChanged struct {
	Base
	From string
	To   string
}

func NewTurnStateChanged(from, to string) TurnStateChanged {
	return TurnStateChanged{Base: NewBase(KindTurnStateChanged), From: from, To: to}
}

// BargeIn marks user speech cancelling in-flight assistant output. The
// cancellation is local to the conversational turn; tool calls keep running.
type BargeIn struct {
	Base
	Interrupted string
}

func NewBargeIn(interruptedState string) BargeIn {
	return BargeIn{Base: NewBase(KindBargeIn), Interrupted: interruptedState}
}
