// Package session provides the remote command channel to a monitored switch.
// The engine only sees the Session interface; the concrete transport (SSH) and
// its prompt handling live here.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout indicates the device did not produce a complete response
// within the allotted time. The session itself may still be usable.
var ErrTimeout = errors.New("command timed out")

// TransportError indicates session-level breakage (connection reset, write
// failure). The session should be considered dead once one is observed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConnectError indicates session establishment failed. No report can be
// produced when connecting fails.
type ConnectError struct {
	Host string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Host, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Session is a live command/response channel to one device. Implementations
// are not safe for concurrent Send calls; the engine issues commands strictly
// in order.
type Session interface {
	// Send issues one command and returns the raw text the device produced
	// up to (and excluding) the next prompt. Returns ErrTimeout when no
	// complete response arrived in time, or a *TransportError when the
	// channel broke.
	Send(ctx context.Context, command string, timeout time.Duration) (string, error)

	// Alive reports whether the session is still believed usable. It turns
	// false after any transport failure or after Close.
	Alive() bool

	// Close releases the underlying connection. Safe to call more than once.
	Close() error
}
