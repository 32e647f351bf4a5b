package tools

import "fmt"

// UnknownToolError reports a tool-call request naming a tool that is not in
// the registry. It is non-fatal: the orchestrator reports it back to the
// peer as a tool error item.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// InvalidArgumentsError reports arguments that do not satisfy a registered
// tool's schema. Non-fatal, reported back to the peer like UnknownToolError.
type InvalidArgumentsError struct {
	Name   string
	Reason string
	Err    error
}

func (e *InvalidArgumentsError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid arguments for tool %q: %s: %v", e.Name, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid arguments for tool %q: %s", e.Name, e.Reason)
}

func (e *InvalidArgumentsError) Unwrap() error { return e.Err }
