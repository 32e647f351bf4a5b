package events

const (
	// KindToolCallStarted identifies the start of tool execution.
	KindToolCallStarted Kind = "tool_call.started"
	// KindToolCallCompleted identifies successful tool completion.
	KindToolCallCompleted Kind = "tool_call.completed"
	// KindToolCallFailed identifies tool failure, including validation
	// rejections and timeouts.
	KindToolCallFailed Kind = "tool_call.failed"
)

// ToolCallStarted marks a call transitioning to running.
type ToolCallStarted struct {
	Base
	CallID    string
	Name      string
	Arguments string
}

func NewToolCallStarted(callID, name, arguments string) ToolCallStarted {
	return ToolCallStarted{Base: NewBase(KindToolCallStarted), CallID: callID, Name: name, Arguments: arguments}
}

// ToolCallCompleted marks a call reaching its completed terminal status.
type ToolCallCompleted struct {
	Base
	CallID string
	Name   string
	Result string
}

func NewToolCallCompleted(callID, name, result string) ToolCallCompleted {
	return ToolCallCompleted{Base: NewBase(KindToolCallCompleted), CallID: callID, Name: name, Result: result}
}

// ToolCallFailed marks a call reaching its failed terminal status.
type ToolCallFailed struct {
	Base
	CallID string
	Name   string
	Error  string
}

func NewToolCallFailed(callID, name, errText string) ToolCallFailed {
	return ToolCallFailed{Base: NewBase(KindToolCallFailed), CallID: callID, Name: name, Error: errText}
}
