package orchestration

import (
	"time"

	"github.com/DXC-Lab-Linkage/ai-agent-sample-hub/core/events"
)

type Option func(*Orchestrator)

// WithSink routes conversation output to the given sink.
func WithSink(sink Sink) Option {
	return func(o *Orchestrator) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithEventListener registers a callback for lifecycle events (tool call
// transitions, turn state changes, barge-ins). The callback runs inline on
// the dispatch path and should not block.
func WithEventListener(listener func(events.Event)) Option {
	return func(o *Orchestrator) {
		if listener != nil {
			o.emit = listener
		}
	}
}

// WithToolTimeout bounds every tool handler's execution time.
func WithToolTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.toolTimeout = timeout
		}
	}
}

// WithShutdownPolicy selects what Close does with in-flight tool calls.
func WithShutdownPolicy(policy ShutdownPolicy) Option {
	return func(o *Orchestrator) { o.shutdownPolicy = policy }
}
