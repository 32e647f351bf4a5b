package orchestration

import (
	"fmt"
	"time"
)

// ToolExecutionError reports a tool handler failing or panicking. It is
// captured per call and never propagates past the call's terminal status.
type ToolExecutionError struct {
	CallID string
	Name   string
	Err    error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q call %s failed: %v", e.Name, e.CallID, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// ToolTimeoutError reports a tool handler exceeding its bounded execution
// time.
type ToolTimeoutError struct {
	CallID  string
	Name    string
	Timeout time.Duration
}

func (e *ToolTimeoutError) Error() string {
	return fmt.Sprintf("tool %q call %s timed out after %s", e.Name, e.CallID, e.Timeout)
}
