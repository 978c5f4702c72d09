package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrRegistryClosed is returned when registering against a draining registry.
	ErrRegistryClosed = errors.New("registry: closed")

	// ErrAuthRejected is returned when a handshake fails identity verification.
	ErrAuthRejected = errors.New("registry: connection refused")

	// ErrAuthTimeout marks a handshake that never completed authentication
	// within the configured window.
	ErrAuthTimeout = errors.New("registry: authentication timed out")

	// ErrSendBufferFull is returned by a transport whose outbound buffer is
	// saturated; the registry treats it as a dead connection.
	ErrSendBufferFull = errors.New("registry: send buffer full")

	// ErrConnClosed is returned when pushing to a transport that is already
	// closed.
	ErrConnClosed = errors.New("registry: connection closed")
)

// InvalidTransitionError reports a lifecycle edge that is not allowed.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("registry: invalid transition %s -> %s", e.From, e.To)
}
