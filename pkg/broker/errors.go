package broker

import "errors"

// Common errors returned by the broker package.
var (
	// ErrNoURL is returned when no broker URL is configured.
	ErrNoURL = errors.New("broker: url is required")

	// ErrNoQueue is returned when no queue name is configured.
	ErrNoQueue = errors.New("broker: queue is required")

	// ErrConnect wraps failures to dial the broker or open a channel.
	ErrConnect = errors.New("broker: connect failed")

	// ErrDeclare wraps queue declaration failures.
	ErrDeclare = errors.New("broker: queue declare failed")

	// ErrPublish wraps failures returned by the broker for a publish.
	ErrPublish = errors.New("broker: publish failed")

	// ErrNotConfirmed is returned when the broker nacks a message or the
	// confirm does not arrive in time.
	ErrNotConfirmed = errors.New("broker: publish not confirmed")

	// ErrUnroutable is returned when the broker returns a mandatory message
	// that no queue accepted.
	ErrUnroutable = errors.New("broker: message unroutable")

	// ErrPublisherClosed is returned by Publish after Close.
	ErrPublisherClosed = errors.New("broker: publisher closed")
)
