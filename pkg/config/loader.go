package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables recognised by the loader.
const (
	EnvConfig         = "NFS_WATCHER_CONFIG"
	EnvRoot           = "NFS_WATCHER_ROOT"
	EnvIgnorePatterns = "NFS_WATCHER_IGNORE_PATTERNS"
	EnvAMQPURL        = "NFS_WATCHER_AMQP_URL"
	EnvQueue          = "NFS_WATCHER_QUEUE"
	EnvLogLevel       = "NFS_WATCHER_LOG_LEVEL"
)

// Loader provides methods for loading configuration from various sources.
type Loader interface {
	// Load loads configuration with the following precedence:
	// 1. Environment variables
	// 2. Configuration file
	// 3. Default values
	//
	// Returns the merged configuration or an error if validation fails.
	Load() (*Config, error)

	// LoadFromFile loads configuration from a specific file.
	LoadFromFile(path string) (*Config, error)

	// Path returns the config file Load reads, or "" when none is found.
	Path() string
}

// loader implements the Loader interface.
type loader struct {
	configPath string
}

// NewLoader creates a new configuration loader.
//
// If configPath is empty, searches for a config file in:
// 1. $NFS_WATCHER_CONFIG
// 2. ./config.yaml (current directory)
// 3. ~/.config/nfs-watcher/config.yaml
// 4. /etc/nfs-watcher/config.yaml.
func NewLoader(configPath string) Loader {
	return &loader{
		configPath: configPath,
	}
}

// Load implements Loader.Load.
func (l *loader) Load() (*Config, error) {
	cfg := Default()

	configPath := l.Path()
	explicit := l.configPath != "" || os.Getenv(EnvConfig) != ""

	if configPath != "" {
		fileCfg, err := l.LoadFromFile(configPath)
		if err != nil {
			// An explicitly named file must load.
			if explicit {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
		} else {
			cfg = l.mergeConfigs(cfg, fileCfg)
		}
	}

	cfg = l.applyEnvVars(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile implements Loader.LoadFromFile.
func (l *loader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return &cfg, nil
}

// Path implements Loader.Path.
func (l *loader) Path() string {
	if l.configPath != "" {
		return l.configPath
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	return l.findConfigFile()
}

// findConfigFile searches for a config file in standard locations.
//
// Returns empty string if no config file is found.
func (l *loader) findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		DefaultConfigPath(),
		systemConfigPath,
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// mergeConfigs merges file configuration into default configuration.
//
// File values override defaults, but only if they are non-zero.
func (l *loader) mergeConfigs(base, override *Config) *Config {
	result := *base

	// Merge watch config
	if override.Watch.Root != "" {
		result.Watch.Root = override.Watch.Root
	}
	// A present but empty list disables filtering; only absence keeps defaults.
	if override.Watch.IgnorePatterns != nil {
		result.Watch.IgnorePatterns = override.Watch.IgnorePatterns
	}
	if override.Watch.RenameWindow > 0 {
		result.Watch.RenameWindow = override.Watch.RenameWindow
	}
	result.Watch.SeedOnStart = override.Watch.SeedOnStart
	result.Watch.IgnoreChmod = override.Watch.IgnoreChmod

	// Merge dispatch config
	if override.Dispatch.Interval > 0 {
		result.Dispatch.Interval = override.Dispatch.Interval
	}
	if override.Dispatch.PublishTimeout > 0 {
		result.Dispatch.PublishTimeout = override.Dispatch.PublishTimeout
	}
	if override.Dispatch.Policy != "" {
		result.Dispatch.Policy = override.Dispatch.Policy
	}
	result.Dispatch.DrainOnShutdown = override.Dispatch.DrainOnShutdown
	if override.Dispatch.DrainTimeout > 0 {
		result.Dispatch.DrainTimeout = override.Dispatch.DrainTimeout
	}
	if override.Dispatch.RateLimit != 0 {
		result.Dispatch.RateLimit = override.Dispatch.RateLimit
	}
	if override.Dispatch.Burst != 0 {
		result.Dispatch.Burst = override.Dispatch.Burst
	}

	// Merge broker config
	if override.Broker.URL != "" {
		result.Broker.URL = override.Broker.URL
	}
	if override.Broker.Queue != "" {
		result.Broker.Queue = override.Broker.Queue
	}
	if override.Broker.Exchange != "" {
		result.Broker.Exchange = override.Broker.Exchange
	}
	result.Broker.Durable = override.Broker.Durable
	if override.Broker.DialTimeout > 0 {
		result.Broker.DialTimeout = override.Broker.DialTimeout
	}
	result.Broker.DryRun = override.Broker.DryRun

	// Merge logging config
	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Output != "" {
		result.Logging.Output = override.Logging.Output
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}

	return &result
}

// applyEnvVars applies environment variable overrides to the configuration.
//
// Supported environment variables:
//   - NFS_WATCHER_ROOT: Watched directory
//   - NFS_WATCHER_IGNORE_PATTERNS: Comma-separated ignore patterns
//   - NFS_WATCHER_AMQP_URL: Broker URL
//   - NFS_WATCHER_QUEUE: Broker queue
//   - NFS_WATCHER_LOG_LEVEL: Log level
func (l *loader) applyEnvVars(cfg *Config) *Config {
	result := *cfg

	if root := os.Getenv(EnvRoot); root != "" {
		result.Watch.Root = root
	}

	// NFS_WATCHER_IGNORE_PATTERNS: comma-separated patterns
	if envPatterns := os.Getenv(EnvIgnorePatterns); envPatterns != "" {
		var patterns []string
		for _, p := range strings.Split(envPatterns, ",") {
			if p = strings.TrimSpace(p); p != "" {
				patterns = append(patterns, p)
			}
		}
		result.Watch.IgnorePatterns = patterns
	}

	if url := os.Getenv(EnvAMQPURL); url != "" {
		result.Broker.URL = url
	}

	if queue := os.Getenv(EnvQueue); queue != "" {
		result.Broker.Queue = queue
	}

	if logLevel := os.Getenv(EnvLogLevel); logLevel != "" {
		result.Logging.Level = strings.ToLower(logLevel)
	}

	return &result
}

// Load is a convenience function that creates a loader and loads configuration.
//
// Equivalent to:
//
//	loader := NewLoader("")
//	return loader.Load()
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// LoadFromFile is a convenience function that loads configuration from a file.
//
// Equivalent to:
//
//	loader := NewLoader(path)
//	return loader.Load()
func LoadFromFile(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Save writes the configuration to a YAML file.
//
// Creates parent directories if they don't exist.
// File is created with 0600 permissions (read/write for owner only).
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
