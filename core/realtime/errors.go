package realtime

import (
	"errors"
	"fmt"
)

// ErrSessionClosed reports an operation on a session after Close.
var ErrSessionClosed = errors.New("session closed")

// ConnectionError is a connection-level failure: dial, auth, or transport
// breakage. It is fatal to the session and never retried internally; the
// caller decides whether to reconnect.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("realtime connection %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
