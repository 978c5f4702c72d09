package dispatch

import "errors"

var (
	// ErrPersistenceFailure marks a dispatch that failed before any delivery
	// channel was attempted. The only fatal error in the delivery path.
	ErrPersistenceFailure = errors.New("dispatch: persistence failure")
)
