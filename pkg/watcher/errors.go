package watcher

import "errors"

// Common errors returned by the watcher.
var (
	// ErrWatcherClosed is returned when attempting to use a closed watcher.
	ErrWatcherClosed = errors.New("watcher is closed")

	// ErrAlreadyStarted is returned when Start is called on a running watcher.
	ErrAlreadyStarted = errors.New("watcher already started")

	// ErrNotStarted is returned when Stop is called on a non-running watcher.
	ErrNotStarted = errors.New("watcher not started")

	// ErrInvalidPath is returned when the watch root is missing or not a directory.
	ErrInvalidPath = errors.New("invalid watch path")

	// ErrOverflow wraps kernel queue overflows reported to Handler.OnError.
	// Some changes were dropped before they could be observed.
	ErrOverflow = errors.New("event queue overflow")
)
