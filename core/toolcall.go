package orchestration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/DXC-Lab-Linkage/ai-agent-sample-hub/core/events"
	"github.com/DXC-Lab-Linkage/ai-agent-sample-hub/core/realtime"
)

// CallStatus is the lifecycle status of one tool call.
type CallStatus string

const (
	CallPending   CallStatus = "pending"
	CallRunning   CallStatus = "running"
	CallCompleted CallStatus = "completed"
	CallFailed    CallStatus = "failed"
)

// IsTerminal reports whether the status is completed or failed.
func (s CallStatus) IsTerminal() bool {
	return s == CallCompleted || s == CallFailed
}

// ToolCallRequest tracks one tool invocation requested by the peer. It is
// mutated only by the orchestrator and reaches exactly one terminal status.
type ToolCallRequest struct {
	CallID    string
	Name      string
	Arguments string
	Status    CallStatus
	Result    string
	Err       error
	CreatedAt time.Time

	reported bool
}

// execute runs one tool call to its terminal status on its own goroutine.
// Nothing here may block the dispatcher; failures stay local to the call.
func (o *Orchestrator) execute(call *ToolCallRequest) {
	defer o.wg.Done()

	baseCtx := o.callsCtx
	if o.shutdownPolicy == DetachInFlight {
		// Detached calls outlive Close; only the per-call timeout bounds
		// them.
		baseCtx = context.Background()
	}

	ctx, span := tracer.Start(baseCtx, "execute tool call")
	defer span.End()
	span.SetAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("tool.call_id", call.CallID),
	)

	arguments := json.RawMessage(call.Arguments)
	if err := o.registry.Validate(call.Name, arguments); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.fail(ctx, call, err)
		return
	}
	spec, _ := o.registry.Lookup(call.Name)

	o.setRunning(call)

	callCtx, cancel := context.WithTimeout(ctx, o.toolTimeout)
	defer cancel()

	result, err := func() (result string, err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				err = fmt.Errorf("handler panicked: %v", recovered)
			}
		}()
		return spec.Call(callCtx, arguments)
	}()

	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = &ToolTimeoutError{CallID: call.CallID, Name: call.Name, Timeout: o.toolTimeout}
		} else {
			err = &ToolExecutionError{CallID: call.CallID, Name: call.Name, Err: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.fail(ctx, call, err)
		return
	}

	o.complete(ctx, call, result)
}

func (o *Orchestrator) setRunning(call *ToolCallRequest) {
	o.mu.Lock()
	call.Status = CallRunning
	o.mu.Unlock()

	o.emit(events.NewToolCallStarted(call.CallID, call.Name, call.Arguments))
}

func (o *Orchestrator) complete(ctx context.Context, call *ToolCallRequest, result string) {
	o.mu.Lock()
	if call.Status.IsTerminal() {
		o.mu.Unlock()
		return
	}
	call.Status = CallCompleted
	call.Result = result
	o.mu.Unlock()

	o.emit(events.NewToolCallCompleted(call.CallID, call.Name, result))
	o.report(ctx, call, result)
}

func (o *Orchestrator) fail(ctx context.Context, call *ToolCallRequest, callErr error) {
	o.mu.Lock()
	if call.Status.IsTerminal() {
		o.mu.Unlock()
		return
	}
	call.Status = CallFailed
	call.Err = callErr
	o.mu.Unlock()

	o.emit(events.NewToolCallFailed(call.CallID, call.Name, callErr.Error()))

	// Validation and execution failures go back to the peer as a tool error
	// item so generation can continue; they never crash the session.
	output, err := json.Marshal(map[string]string{"error": callErr.Error()})
	if err != nil {
		output = []byte(`{"error":"tool call failed"}`)
	}
	o.report(ctx, call, string(output))
}

// report injects the call's result item into the session exactly once and
// asks the peer to continue generating. Calls that finish after the session
// closed stay terminal; the undeliverable result is logged and dropped.
func (o *Orchestrator) report(ctx context.Context, call *ToolCallRequest, output string) {
	o.mu.Lock()
	if call.reported {
		o.mu.Unlock()
		return
	}
	call.reported = true
	delete(o.calls, call.CallID)
	o.archive[call.CallID] = *call
	o.mu.Unlock()

	item := realtime.NewToolOutputItem(call.CallID, output)
	if err := o.session.Send(ctx, realtime.ConversationItemCreateEvent{Item: item}); err != nil {
		logger.Warn("dropping tool result, session unavailable",
			"call_id", call.CallID, "tool", call.Name, "error", err)
		return
	}

	if o.generating.CompareAndSwap(false, true) {
		if err := o.session.Send(ctx, realtime.ResponseCreateEvent{}); err != nil {
			o.generating.Store(false)
			logger.Warn("failed to request response after tool result",
				"call_id", call.CallID, "error", err)
		}
	}
}

// Call returns a snapshot of the call, whether in flight or archived.
func (o *Orchestrator) Call(callID string) (ToolCallRequest, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if call, ok := o.calls[callID]; ok {
		return *call, true
	}
	call, ok := o.archive[callID]
	return call, ok
}
