package orchestration

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/DXC-Lab-Linkage/ai-agent-sample-hub/core/realtime"
)

// dispatch routes one inbound event to exactly one handler class and
// returns without waiting on handler completion. Tool work is only enqueued
// here; the spawned task owns the rest of the call lifecycle.
func (o *Orchestrator) dispatch(ctx context.Context, event realtime.ServerEvent) {
	switch event.Type {
	case realtime.TypeResponseTextDelta:
		o.textLocked.Store(true)
		if event.Delta != "" {
			o.sink.AppendText(RoleAssistant, event.Delta)
		}
		o.turns.outputDelta()

	case realtime.TypeAudioTranscriptDelta:
		// Fallback transcript of spoken output; skipped once real text
		// deltas are streaming.
		if !o.textLocked.Load() && event.Delta != "" {
			o.sink.AppendText(RoleAssistant, event.Delta)
		}
		o.turns.outputDelta()

	case realtime.TypeResponseAudioDelta:
		if audio, err := base64.StdEncoding.DecodeString(event.Delta); err == nil && len(audio) > 0 {
			o.sink.AppendAudioChunk(audio)
		} else if err != nil {
			logger.Warn("discarding undecodable audio delta", "error", err)
		}
		o.turns.outputDelta()

	case realtime.TypeInputTranscriptDelta:
		if event.Delta != "" {
			o.sink.AppendText(RoleUser, event.Delta)
		}

	case realtime.TypeInputTranscriptDone:
		// Streaming deltas already carried the transcript; nothing to flush.

	case realtime.TypeInputTranscriptFailed:
		o.sink.SetStatus("transcription failed")

	case realtime.TypeSpeechStarted:
		if bargeIn := o.turns.speechStarted(); bargeIn {
			o.handleBargeIn(ctx)
		}

	case realtime.TypeSpeechStopped:
		o.turns.speechStopped()

	case realtime.TypeInputAudioCommitted:
		o.turns.committed()

	case realtime.TypeResponseCreated:
		o.generating.Store(true)
		o.textLocked.Store(false)
		o.turns.responseStarted()

	case realtime.TypeResponseDone:
		o.generating.Store(false)
		o.textLocked.Store(false)
		o.turns.turnComplete()

	case realtime.TypeFunctionCallArgsDelta:
		o.appendCallArguments(event.CallID, event.Delta)

	case realtime.TypeFunctionCallArgsDone:
		o.enqueueToolCall(event)

	case realtime.TypeError:
		o.generating.Store(false)
		o.textLocked.Store(false)
		message := "peer error"
		if event.Error != nil {
			message = event.Error.Message
		}
		logger.Error("peer reported error", "message", message)
		o.sink.SetStatus("error: " + message)
	}
}

// handleBargeIn cancels the in-flight assistant output. The cancellation is
// local to the conversational turn: in-flight tool calls are decoupled tasks
// and keep running.
func (o *Orchestrator) handleBargeIn(ctx context.Context) {
	if err := o.session.Send(ctx, realtime.ResponseCancelEvent{}); err != nil {
		logger.Warn("failed to cancel response on barge-in", "error", err)
	}
	o.sink.Interrupt()
	o.generating.Store(false)
	o.textLocked.Store(false)
}

func (o *Orchestrator) appendCallArguments(callID, delta string) {
	if callID == "" || delta == "" {
		return
	}

	o.mu.Lock()
	builder, ok := o.pendingArgs[callID]
	if !ok {
		builder = &strings.Builder{}
		o.pendingArgs[callID] = builder
	}
	builder.WriteString(delta)
	o.mu.Unlock()
}

// enqueueToolCall creates the pending call and hands it to its own task.
// The dispatcher returns immediately; a slow tool never delays the stream.
func (o *Orchestrator) enqueueToolCall(event realtime.ServerEvent) {
	if event.CallID == "" {
		return
	}

	arguments := event.Arguments
	o.mu.Lock()
	if builder, ok := o.pendingArgs[event.CallID]; ok {
		if arguments == "" {
			arguments = builder.String()
		}
		delete(o.pendingArgs, event.CallID)
	}

	_, inFlight := o.calls[event.CallID]
	_, archived := o.archive[event.CallID]
	if inFlight || archived {
		o.mu.Unlock()
		logger.Warn("duplicate tool call ignored", "call_id", event.CallID)
		return
	}
	call := &ToolCallRequest{
		CallID:    event.CallID,
		Name:      event.Name,
		Arguments: arguments,
		Status:    CallPending,
		CreatedAt: time.Now(),
	}
	o.calls[event.CallID] = call
	o.mu.Unlock()

	o.wg.Add(1)
	go o.execute(call)
}
