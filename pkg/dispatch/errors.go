package dispatch

import "errors"

// Common errors returned by the dispatch package.
var (
	// ErrNilPublisher is returned by New when no publisher is given.
	ErrNilPublisher = errors.New("dispatch: nil publisher")

	// ErrInvalidPolicy is returned by New for an unknown removal policy.
	ErrInvalidPolicy = errors.New("dispatch: invalid policy")

	// ErrAlreadyRunning is returned when Run is called while another Run
	// is active.
	ErrAlreadyRunning = errors.New("dispatch: loop already running")

	// ErrPublishTimeout wraps publish attempts that exceeded PublishTimeout.
	ErrPublishTimeout = errors.New("dispatch: publish timed out")
)
