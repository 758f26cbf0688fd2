package service

import "errors"

var (
	// ErrServiceClosed is returned when operations are attempted on a closed service.
	ErrServiceClosed = errors.New("service is closed")

	// ErrServiceRunning is returned when trying to start an already running service.
	ErrServiceRunning = errors.New("service is already running")

	// ErrServiceNotRunning is returned when trying to stop a non-running service.
	ErrServiceNotRunning = errors.New("service is not running")

	// ErrNoWatchRoot is returned when the configuration names no watch root.
	ErrNoWatchRoot = errors.New("no watch root configured")

	// ErrInvalidRoot is returned when the watch root is missing or not a directory.
	ErrInvalidRoot = errors.New("invalid watch root")

	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid service configuration")
)
