package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/0xmhha/nfs-watcher/pkg/broker"
	"github.com/0xmhha/nfs-watcher/pkg/classifier"
	"github.com/0xmhha/nfs-watcher/pkg/config"
	"github.com/0xmhha/nfs-watcher/pkg/dispatch"
	"github.com/0xmhha/nfs-watcher/pkg/display"
	"github.com/0xmhha/nfs-watcher/pkg/logger"
	"github.com/0xmhha/nfs-watcher/pkg/service"
)

// runCommand watches a directory and publishes changes.
type runCommand struct {
	configPath string
	root       string
	dryRun     bool
	status     time.Duration
	format     string
	out        io.Writer
}

// Execute runs the service until SIGINT or SIGTERM.
func (c *runCommand) Execute() error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Output: cfg.Logging.Output,
		Format: cfg.Logging.Format,
	})

	pub, err := newPublisher(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}
	defer func() {
		if err := pub.Close(); err != nil {
			log.Warn("failed to close publisher", "error", err)
		}
	}()

	svc, err := service.New(cfg, pub, log, service.WithStatusInterval(c.status))
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warn("failed to close service", "error", err)
		}
	}()

	if c.status > 0 {
		go c.printStatus(svc.Updates())
	}

	// Setup signal handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Run(ctx); err != nil {
		return fmt.Errorf("service error: %w", err)
	}
	return nil
}

// loadConfig loads configuration and applies command-line overrides.
func (c *runCommand) loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader(c.configPath).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if c.root != "" {
		cfg.Watch.Root = c.root
	}
	if c.dryRun {
		cfg.Broker.DryRun = true
	}

	if cfg.Watch.Root == "" {
		return nil, fmt.Errorf("no directory to watch: set watch.root, %s or -root", config.EnvRoot)
	}

	return cfg, nil
}

// printStatus renders status updates until the channel is closed.
func (c *runCommand) printStatus(updates <-chan service.Status) {
	format, _ := displayFormat(c.format)
	f := display.New(display.Config{
		Format:         format,
		ShowTimestamps: true,
		Compact:        true,
	})

	for st := range updates {
		_ = f.FormatStatus(c.out, st)
	}
}

// closingPublisher is a publisher the command owns and closes.
type closingPublisher interface {
	dispatch.Publisher
	Close() error
}

// newPublisher returns the broker publisher, or a logging one for dry runs.
func newPublisher(cfg *config.Config, log logger.Logger) (closingPublisher, error) {
	if cfg.Broker.DryRun {
		log.Info("dry run: messages are logged, not published")
		return broker.NewLogPublisher(log), nil
	}

	pub, err := broker.NewRabbitPublisher(broker.Config{
		URL:         cfg.Broker.URL,
		Queue:       cfg.Broker.Queue,
		Exchange:    cfg.Broker.Exchange,
		Durable:     cfg.Broker.Durable,
		DialTimeout: cfg.Broker.DialTimeout,
	}, log)
	if err != nil {
		return nil, err
	}
	return pub, nil
}

// checkCommand classifies paths with the configured ignore patterns.
type checkCommand struct {
	configPath string
	format     string
	compact    bool
	paths      []string
	out        io.Writer
}

// Execute prints one result per path.
func (c *checkCommand) Execute() error {
	if len(c.paths) == 0 {
		return fmt.Errorf("check requires at least one path")
	}

	cfg, err := config.NewLoader(c.configPath).Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cls, err := classifier.New(cfg.Watch.IgnorePatterns)
	if err != nil {
		return fmt.Errorf("failed to build classifier: %w", err)
	}

	format, err := displayFormat(c.format)
	if err != nil {
		return err
	}

	f := display.New(display.Config{
		Format:  format,
		Compact: c.compact,
	})
	return f.FormatCheck(c.out, classify(cls, c.paths))
}

// classify returns the classifier verdict for every path.
func classify(cls *classifier.Classifier, paths []string) []display.CheckResult {
	results := make([]display.CheckResult, len(paths))
	for i, p := range paths {
		pattern, ignored := cls.Match(p)
		results[i] = display.CheckResult{
			Path:    p,
			Name:    classifier.FileName(p),
			Ignored: ignored,
			Pattern: pattern,
		}
	}
	return results
}

// displayFormat validates a -format value.
func displayFormat(s string) (display.Format, error) {
	f, err := display.ParseFormat(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, s)
	}
	return f, nil
}
