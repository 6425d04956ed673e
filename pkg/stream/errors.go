package stream

import (
	"errors"
	"fmt"
)

// ErrAlreadyStarted is returned by Start when the session has already left
// Idle. A Session drives exactly one exchange; construct a new Session to
// reconnect. Silently reconnecting here would hide a real caller bug.
var ErrAlreadyStarted = errors.New("stream: session already started")

// ErrorKind distinguishes where a transport failure occurred. Callers that
// retry typically treat a request that never connected differently from a
// stream that dropped after delivering events.
type ErrorKind int

const (
	// KindConnect covers failures before the stream delivered any data:
	// request construction, dialing, TLS, and non-2xx responses.
	KindConnect ErrorKind = iota

	// KindStream covers failures after streaming began, including a stream
	// that ended without the terminal sentinel.
	KindStream
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnect:
		return "connect"
	case KindStream:
		return "stream"
	default:
		return "unknown"
	}
}

// Error is the failure delivered to a session's error callback.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("stream: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
