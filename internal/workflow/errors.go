package workflow

import "errors"

// Error kinds returned by engine operations. Callers match with errors.Is
// and decide presentation; the engine never returns display strings.
var (
	// ErrInvalidTransition means the operation's precondition is not met
	// given the current appointment state. Recoverable: re-read and retry.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInvalidInput means a supplied argument is out of domain
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound means a referenced entity did not resolve. Only used
	// during side-effect dispatch; never fails a transition.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized means the acting role may not perform the transition
	ErrUnauthorized = errors.New("unauthorized")
)
