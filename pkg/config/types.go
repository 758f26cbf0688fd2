// Package config provides configuration management for nfs-watcher.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority, applied by the caller)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Watching: %s\n", cfg.Watch.Root)
package config

import (
	"fmt"
	"time"

	"github.com/0xmhha/nfs-watcher/pkg/classifier"
	"github.com/0xmhha/nfs-watcher/pkg/dispatch"
)

// Config represents the complete application configuration.
//
// Invariants:
// - Every ignore pattern compiles
// - Durations are > 0
// - RateLimit and Burst are >= 0
// - Broker URL and queue are set unless DryRun.
type Config struct {
	// Watched tree and noise filtering
	Watch WatchConfig `yaml:"watch"`

	// Drain loop settings
	Dispatch DispatchConfig `yaml:"dispatch"`

	// Message broker settings
	Broker BrokerConfig `yaml:"broker"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// WatchConfig contains settings for the watched tree.
type WatchConfig struct {
	// Root directory watched recursively
	Root string `yaml:"root"`

	// Case-insensitive regular expressions matched against file names.
	// Absent means the built-in defaults; an empty list ignores nothing.
	IgnorePatterns []string `yaml:"ignore_patterns"`

	// How long a rename source waits for its destination
	RenameWindow time.Duration `yaml:"rename_window"`

	// Queue every existing file at startup
	SeedOnStart bool `yaml:"seed_on_start"`

	// Drop attribute-only changes instead of publishing them
	IgnoreChmod bool `yaml:"ignore_chmod"`
}

// DispatchConfig contains drain loop settings.
type DispatchConfig struct {
	// Pause between drain cycles
	Interval time.Duration `yaml:"interval"`

	// Upper bound for one publish
	PublishTimeout time.Duration `yaml:"publish_timeout"`

	// remove-after-publish or claim-before-publish
	Policy string `yaml:"policy"`

	// Keep draining after a stop signal
	DrainOnShutdown bool `yaml:"drain_on_shutdown"`

	// Upper bound for the shutdown drain
	DrainTimeout time.Duration `yaml:"drain_timeout"`

	// Messages per second, 0 for unlimited
	RateLimit float64 `yaml:"rate_limit"`

	// Limiter burst size
	Burst int `yaml:"burst"`
}

// BrokerConfig contains RabbitMQ settings.
type BrokerConfig struct {
	// AMQP URI
	URL string `yaml:"url"`

	// Target queue, also the routing key
	Queue string `yaml:"queue"`

	// Exchange name, empty for the default exchange
	Exchange string `yaml:"exchange"`

	// Declare a durable queue and send persistent messages
	Durable bool `yaml:"durable"`

	// Connection establishment timeout
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// Log messages instead of publishing them
	DryRun bool `yaml:"dry_run"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json, auto)
	Format string `yaml:"format"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	if _, err := classifier.New(c.Watch.IgnorePatterns); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidIgnorePattern, err)
	}
	if c.Watch.RenameWindow <= 0 {
		return ErrInvalidRenameWindow
	}

	// Validate dispatch config
	if c.Dispatch.Interval <= 0 {
		return ErrInvalidInterval
	}
	if c.Dispatch.PublishTimeout <= 0 {
		return ErrInvalidPublishTimeout
	}
	if c.Dispatch.DrainTimeout <= 0 {
		return ErrInvalidDrainTimeout
	}
	switch dispatch.Policy(c.Dispatch.Policy) {
	case dispatch.PolicyRemoveAfterPublish, dispatch.PolicyClaimBeforePublish:
	default:
		return ErrInvalidPolicy
	}
	if c.Dispatch.RateLimit < 0 || c.Dispatch.Burst < 0 {
		return ErrInvalidRateLimit
	}

	// Validate broker config
	if !c.Broker.DryRun {
		if c.Broker.URL == "" {
			return ErrNoBrokerURL
		}
		if c.Broker.Queue == "" {
			return ErrNoQueue
		}
	}
	if c.Broker.DialTimeout <= 0 {
		return ErrInvalidDialTimeout
	}

	// Validate logging config
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
		"auto": true,
	}
	if !validFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Watch: WatchConfig{
			IgnorePatterns: classifier.DefaultPatterns(),
			RenameWindow:   time.Second,
		},
		Dispatch: DispatchConfig{
			Interval:       dispatch.DefaultInterval,
			PublishTimeout: dispatch.DefaultPublishTimeout,
			Policy:         string(dispatch.PolicyRemoveAfterPublish),
			DrainTimeout:   dispatch.DefaultDrainTimeout,
		},
		Broker: BrokerConfig{
			URL:         defaultBrokerURL,
			Queue:       defaultQueue,
			DialTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "auto",
		},
	}
}
