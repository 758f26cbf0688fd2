package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrInvalidIgnorePattern is returned when an ignore pattern does not compile.
	ErrInvalidIgnorePattern = errors.New("invalid ignore pattern")

	// ErrInvalidRenameWindow is returned when rename window is <= 0.
	ErrInvalidRenameWindow = errors.New("invalid rename window: must be > 0")

	// ErrInvalidInterval is returned when dispatch interval is <= 0.
	ErrInvalidInterval = errors.New("invalid dispatch interval: must be > 0")

	// ErrInvalidPublishTimeout is returned when publish timeout is <= 0.
	ErrInvalidPublishTimeout = errors.New("invalid publish timeout: must be > 0")

	// ErrInvalidDrainTimeout is returned when drain timeout is <= 0.
	ErrInvalidDrainTimeout = errors.New("invalid drain timeout: must be > 0")

	// ErrInvalidPolicy is returned when dispatch policy is not recognized.
	ErrInvalidPolicy = errors.New("invalid dispatch policy: must be remove-after-publish or claim-before-publish")

	// ErrInvalidRateLimit is returned when rate limit or burst is negative.
	ErrInvalidRateLimit = errors.New("invalid rate limit: rate_limit and burst must be >= 0")

	// ErrNoBrokerURL is returned when no broker URL is configured.
	ErrNoBrokerURL = errors.New("no broker url specified")

	// ErrNoQueue is returned when no queue name is configured.
	ErrNoQueue = errors.New("no broker queue specified")

	// ErrInvalidDialTimeout is returned when dial timeout is <= 0.
	ErrInvalidDialTimeout = errors.New("invalid dial timeout: must be > 0")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text, json, or auto")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
