// Package orchestration runs the session event pipeline: a single ordered
// dispatcher over the inbound event stream, an orchestrator that executes
// tool calls as isolated concurrent tasks, and a turn-taking state machine
// driven by voice-activity and generation events.
package orchestration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DXC-Lab-Linkage/ai-agent-sample-hub/core/events"
	"github.com/DXC-Lab-Linkage/ai-agent-sample-hub/core/realtime"
	"github.com/DXC-Lab-Linkage/ai-agent-sample-hub/core/tools"
)

// SessionConnection is the duplex channel the orchestrator drives. Satisfied
// by *realtime.Session.
type SessionConnection interface {
	Receive(ctx context.Context) (realtime.ServerEvent, error)
	Send(ctx context.Context, event realtime.ClientEvent) error
	Close() error
}

// ShutdownPolicy decides what happens to in-flight tool calls when the
// orchestrator closes.
type ShutdownPolicy int

const (
	// CancelInFlight cancels running handlers and waits for every call to
	// reach a terminal status before the session is released.
	CancelInFlight ShutdownPolicy = iota
	// DetachInFlight lets running handlers finish on their own; results that
	// complete after the session closed are dropped, but every call still
	// reaches a terminal status.
	DetachInFlight
)

const defaultToolTimeout = 30 * time.Second

// Orchestrator consumes the inbound event stream of one session and
// coordinates tool execution around it.
type Orchestrator struct {
	session  SessionConnection
	registry *tools.Registry
	sink     Sink
	emit     func(events.Event)
	turns    *turnTracker

	toolTimeout    time.Duration
	shutdownPolicy ShutdownPolicy

	mu          sync.Mutex
	calls       map[string]*ToolCallRequest
	archive     map[string]ToolCallRequest
	pendingArgs map[string]*strings.Builder

	// generating mirrors whether the peer is currently producing a response,
	// to avoid stacking response.create requests from completing calls.
	generating atomic.Bool
	// textLocked is set once proper text deltas arrive so the audio
	// transcript fallback does not duplicate output.
	textLocked atomic.Bool

	callsCtx    context.Context
	cancelCalls context.CancelFunc
	wg          sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// New builds an orchestrator over an open session and a validated registry.
func New(session SessionConnection, registry *tools.Registry, opts ...Option) *Orchestrator {
	callsCtx, cancelCalls := context.WithCancel(context.Background())

	o := &Orchestrator{
		session:     session,
		registry:    registry,
		sink:        NopSink{},
		emit:        func(events.Event) {},
		toolTimeout: defaultToolTimeout,
		calls:       map[string]*ToolCallRequest{},
		archive:     map[string]ToolCallRequest{},
		pendingArgs: map[string]*strings.Builder{},
		callsCtx:    callsCtx,
		cancelCalls: cancelCalls,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.turns = newTurnTracker(o.emit)
	return o
}

// TurnState returns the current turn-taking state.
func (o *Orchestrator) TurnState() TurnState { return o.turns.State() }

// Run consumes inbound events in strict arrival order until ctx is done or
// the stream ends. Routing never waits on tool or job latency. Only
// connection-level failures are returned; everything else is localized.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		event, err := o.session.Receive(ctx)
		if err != nil {
			if errors.Is(err, realtime.ErrSessionClosed) ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		o.dispatch(ctx, event)
	}
}

// SendText injects a typed user message and requests a response, cancelling
// any in-flight assistant output first.
func (o *Orchestrator) SendText(ctx context.Context, text string) error {
	if o.generating.Load() {
		if err := o.session.Send(ctx, realtime.ResponseCancelEvent{}); err == nil {
			o.sink.Interrupt()
			o.generating.Store(false)
			o.textLocked.Store(false)
		}
	}

	item := realtime.NewUserTextItem(text)
	if err := o.session.Send(ctx, realtime.ConversationItemCreateEvent{Item: item}); err != nil {
		return err
	}
	if err := o.session.Send(ctx, realtime.ResponseCreateEvent{}); err != nil {
		return err
	}
	o.generating.Store(true)
	return nil
}

// Close shuts the orchestrator down according to its shutdown policy and
// releases the session. Idempotent.
func (o *Orchestrator) Close() error {
	o.closeOnce.Do(func() {
		if o.shutdownPolicy == CancelInFlight {
			o.cancelCalls()
			o.wg.Wait()
		} else {
			// Detached calls keep their own background contexts; cancelling
			// callsCtx here would be a no-op for them, but release it anyway.
			o.cancelCalls()
		}
		o.closeErr = o.session.Close()
	})
	return o.closeErr
}
