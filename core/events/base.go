// Package events defines the lifecycle events emitted by the orchestration
// core and the research supervisor. Consumers subscribe through the
// respective WithEventListener options.
package events

import "time"

// Kind discriminates event types.
type Kind string

// Event is implemented by every emitted event.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base carries the kind and emission time shared by all events.
type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind { return b.kind }

func (b Base) Timestamp() time.Time { return b.timestamp }
