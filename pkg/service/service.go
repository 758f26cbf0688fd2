package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/0xmhha/nfs-watcher/pkg/capture"
	"github.com/0xmhha/nfs-watcher/pkg/classifier"
	"github.com/0xmhha/nfs-watcher/pkg/config"
	"github.com/0xmhha/nfs-watcher/pkg/dispatch"
	"github.com/0xmhha/nfs-watcher/pkg/logger"
	"github.com/0xmhha/nfs-watcher/pkg/pending"
	"github.com/0xmhha/nfs-watcher/pkg/scan"
	"github.com/0xmhha/nfs-watcher/pkg/watcher"
	"golang.org/x/sync/errgroup"
)

// Service owns one watch root and its publishing pipeline.
type Service struct {
	config     *config.Config
	logger     logger.Logger
	set        *pending.Set
	adapter    *capture.Adapter
	watcher    watcher.Watcher
	dispatcher *dispatch.Dispatcher

	statusInterval time.Duration

	mu        sync.RWMutex
	running   bool
	closed    bool
	root      string
	startedAt time.Time
	cancel    context.CancelFunc
	group     *errgroup.Group

	// Update channel for consumers
	updates chan Status
}

// New builds the pipeline described by cfg. An ignore pattern that does
// not compile is an error here, before anything is watched.
func New(cfg *config.Config, publisher dispatch.Publisher, log logger.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if cfg.Watch.Root == "" {
		return nil, ErrNoWatchRoot
	}

	cls, err := classifier.New(cfg.Watch.IgnorePatterns)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	set := pending.New()
	adapter := capture.New(cls, set, log)

	d, err := dispatch.New(dispatch.Config{
		Interval:        cfg.Dispatch.Interval,
		PublishTimeout:  cfg.Dispatch.PublishTimeout,
		Policy:          dispatch.Policy(cfg.Dispatch.Policy),
		DrainOnShutdown: cfg.Dispatch.DrainOnShutdown,
		DrainTimeout:    cfg.Dispatch.DrainTimeout,
		RateLimit:       cfg.Dispatch.RateLimit,
		Burst:           cfg.Dispatch.Burst,
	}, set, publisher, log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	w, err := watcher.New(watcher.Config{
		RenameWindow: cfg.Watch.RenameWindow,
		IgnoreChmod:  cfg.Watch.IgnoreChmod,
	}, adapter, log.With("component", "watcher"))
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	s := &Service{
		config:     cfg,
		logger:     log.With("component", "service"),
		set:        set,
		adapter:    adapter,
		watcher:    w,
		dispatcher: d,
		updates:    make(chan Status, 10),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.Info("service created",
		"root", cfg.Watch.Root,
		"ignore_patterns", len(cls.Patterns()),
		"seed_on_start", cfg.Watch.SeedOnStart)

	return s, nil
}

// Start begins watching and dispatching. ctx bounds the watcher; the
// dispatcher runs until Stop so that intake always ends first.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServiceClosed
	}
	if s.running {
		return ErrServiceRunning
	}

	root, err := scan.Resolve(scan.ExpandHome(s.config.Watch.Root))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRoot, err)
	}

	if err := s.watcher.Start(ctx, root); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	// Seed after the watches exist so nothing written in between is lost;
	// duplicates coalesce in the set.
	if s.config.Watch.SeedOnStart {
		s.seed(root)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return s.dispatcher.Run(gctx)
	})
	if s.statusInterval > 0 {
		g.Go(func() error {
			s.periodicUpdates(gctx)
			return nil
		})
	}

	s.root = root
	s.startedAt = time.Now()
	s.cancel = cancel
	s.group = g
	s.running = true

	s.logger.Info("service started", "root", root, "watched_dirs", s.watcher.WatchCount())
	return nil
}

// seed queues every existing file below root.
func (s *Service) seed(root string) {
	res, err := scan.Walk(root, s.logger)
	if err != nil {
		s.logger.Warn("failed to seed pending set", "root", root, "error", err)
		return
	}

	for _, path := range res.Files {
		s.adapter.OnCreated(path)
	}

	s.logger.Info("pending set seeded",
		"files", len(res.Files),
		"pending", s.set.Len(),
		"skipped", res.Skipped)
}

// Stop ends intake, then lets the dispatcher finish its pass (and drain
// when configured) before returning.
func (s *Service) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServiceClosed
	}
	if !s.running {
		s.mu.Unlock()
		return ErrServiceNotRunning
	}
	s.running = false
	cancel, group := s.cancel, s.group
	s.mu.Unlock()

	if err := s.watcher.Stop(); err != nil {
		s.logger.Warn("failed to stop watcher", "error", err)
	}

	cancel()
	err := group.Wait()

	s.logger.Info("service stopped", "pending", s.set.Len())
	if err != nil {
		return fmt.Errorf("dispatcher exited with error: %w", err)
	}
	return nil
}

// Run starts the service, blocks until ctx is done and then stops it.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	s.logger.Info("shutdown requested", "pending", s.set.Len())

	return s.Stop()
}

// Status returns a snapshot of the service state.
func (s *Service) Status() Status {
	s.mu.RLock()
	running, root, startedAt := s.running, s.root, s.startedAt
	s.mu.RUnlock()

	now := time.Now()
	st := Status{
		Timestamp: now,
		Root:      root,
		Running:   running,
		Pending:   s.set.Len(),
		Capture:   s.adapter.Stats(),
		Dispatch:  s.dispatcher.Stats(),
	}
	if running {
		st.Uptime = now.Sub(startedAt)
		st.Watched = s.watcher.WatchCount()
	}
	return st
}

// Updates returns a channel receiving periodic status snapshots. It is only
// fed when WithStatusInterval is set and is closed by Close.
func (s *Service) Updates() <-chan Status {
	return s.updates
}

// Pending returns the sorted paths awaiting publication.
func (s *Service) Pending() []string {
	return s.set.Snapshot()
}

// periodicUpdates logs and emits status until ctx is done.
func (s *Service) periodicUpdates(ctx context.Context) {
	ticker := time.NewTicker(s.statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			st := s.Status()
			s.logger.Info("status",
				"pending", st.Pending,
				"queued", st.Capture.Queued,
				"ignored", st.Capture.Ignored,
				"published", st.Dispatch.Published,
				"failed", st.Dispatch.Failed)

			// Send update (non-blocking)
			select {
			case s.updates <- st:
			default:
				s.logger.Debug("updates channel full, dropping status")
			}
		}
	}
}

// Close stops the service if needed and releases the watcher.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	running := s.running
	s.mu.Unlock()

	var stopErr error
	if running {
		stopErr = s.Stop()
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	close(s.updates)

	if err := s.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	s.logger.Info("service closed")
	return stopErr
}
