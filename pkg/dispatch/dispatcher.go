package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xmhha/nfs-watcher/pkg/logger"
	"golang.org/x/time/rate"
)

// messagePrefix is prepended to the absolute path in every message.
const messagePrefix = "Event: "

// FormatMessage returns the outbound message for path.
func FormatMessage(path string) string {
	return messagePrefix + path
}

// Dispatcher is the single drain worker.
type Dispatcher struct {
	config    Config
	set       Set
	publisher Publisher
	limiter   *rate.Limiter
	logger    logger.Logger

	running atomic.Bool

	// cycleMu keeps RunCycle calls from overlapping.
	cycleMu sync.Mutex

	// abandoned holds paths whose timed-out publish has not returned yet.
	abandonedMu sync.Mutex
	abandoned   map[string]struct{}

	cycles    atomic.Uint64
	published atomic.Uint64
	failed    atomic.Uint64
	skipped   atomic.Uint64
	requeued  atomic.Uint64
	lastCycle atomic.Int64
}

// New creates a dispatcher draining set into publisher.
func New(cfg Config, set Set, publisher Publisher, log logger.Logger) (*Dispatcher, error) {
	if publisher == nil {
		return nil, ErrNilPublisher
	}

	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyRemoveAfterPublish
	}
	if cfg.Policy != PolicyRemoveAfterPublish && cfg.Policy != PolicyClaimBeforePublish {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPolicy, cfg.Policy)
	}

	d := &Dispatcher{
		config:    cfg,
		set:       set,
		publisher: publisher,
		logger:    log.With("component", "dispatch"),
		abandoned: make(map[string]struct{}),
	}

	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	d.logger.Info("dispatcher created",
		"interval", cfg.Interval,
		"publish_timeout", cfg.PublishTimeout,
		"policy", cfg.Policy,
		"drain_on_shutdown", cfg.DrainOnShutdown,
		"rate_limit", cfg.RateLimit)

	return d, nil
}

// Run cycles until ctx is cancelled. The pass in progress when ctx is
// cancelled always completes; with DrainOnShutdown the loop then keeps
// cycling until the set is empty or DrainTimeout elapses.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer d.running.Store(false)

	d.logger.Info("dispatch loop started")

	for {
		d.RunCycle()

		timer := time.NewTimer(d.config.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			d.shutdown()
			return nil
		case <-timer.C:
		}
	}
}

// shutdown performs the optional final drain.
func (d *Dispatcher) shutdown() {
	if !d.config.DrainOnShutdown {
		d.logger.Info("dispatch loop stopped", "pending", d.set.Len())
		return
	}

	deadline := time.Now().Add(d.config.DrainTimeout)
	for d.set.Len() > 0 && time.Now().Before(deadline) {
		d.RunCycle()
		if d.set.Len() == 0 {
			break
		}

		wait := d.config.Interval
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
		if wait > 0 {
			time.Sleep(wait)
		}
	}

	if remaining := d.set.Len(); remaining > 0 {
		d.logger.Warn("shutdown drain incomplete",
			"pending", remaining,
			"drain_timeout", d.config.DrainTimeout)
		return
	}
	d.logger.Info("dispatch loop stopped", "pending", 0)
}

// RunCycle performs one drain pass over a snapshot of the set.
func (d *Dispatcher) RunCycle() CycleResult {
	d.cycleMu.Lock()
	defer d.cycleMu.Unlock()

	snapshot := d.set.Snapshot()
	res := CycleResult{Snapshot: len(snapshot)}

	for _, path := range snapshot {
		switch d.config.Policy {
		case PolicyClaimBeforePublish:
			d.claimThenPublish(path, &res)
		default:
			d.publishThenRemove(path, &res)
		}
	}

	d.cycles.Add(1)
	d.published.Add(uint64(res.Published))
	d.failed.Add(uint64(res.Failed))
	d.skipped.Add(uint64(res.Skipped))
	d.requeued.Add(uint64(res.Requeued))
	d.lastCycle.Store(time.Now().UnixNano())

	if res.Snapshot > 0 {
		d.logger.Debug("drain cycle complete",
			"snapshot", res.Snapshot,
			"published", res.Published,
			"failed", res.Failed,
			"skipped", res.Skipped,
			"requeued", res.Requeued)
	}

	return res
}

func (d *Dispatcher) publishThenRemove(path string, res *CycleResult) {
	if d.isAbandoned(path) {
		res.Skipped++
		return
	}

	gen, ok := d.set.Generation(path)
	if !ok {
		res.Skipped++
		return
	}

	if err := d.publish(path); err != nil {
		res.Failed++
		d.logger.Error("publish failed, path stays pending",
			"path", path,
			"error", err,
			"cause", logger.Chain(err))
		return
	}

	res.Published++
	if !d.set.RemoveIfUnchanged(path, gen) {
		// Changed again (or removed) while in flight; a later cycle
		// announces the newer change.
		res.Requeued++
		d.logger.Debug("path changed during publish", "path", path)
	}
}

func (d *Dispatcher) claimThenPublish(path string, res *CycleResult) {
	if d.isAbandoned(path) {
		res.Skipped++
		return
	}

	if !d.set.Remove(path) {
		res.Skipped++
		return
	}

	if err := d.publish(path); err != nil {
		res.Failed++
		d.logger.Error("publish failed, path dropped until it changes again",
			"path", path,
			"error", err,
			"cause", logger.Chain(err))
		return
	}
	res.Published++
}

// publish sends the message for path within PublishTimeout. The attempt is
// not tied to the Run context, so shutdown never cuts it short. A publisher
// that ignores its context is abandoned when the timeout fires, and path is
// skipped by later cycles until that call returns.
func (d *Dispatcher) publish(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.PublishTimeout)
	defer cancel()

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: waiting for rate limiter: %w", ErrPublishTimeout, err)
		}
	}

	result := make(chan error, 1)
	go func() {
		result <- d.publisher.Publish(ctx, FormatMessage(path))
	}()

	select {
	case err := <-result:
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s: %w", ErrPublishTimeout, d.config.PublishTimeout, err)
		}
		return err
	case <-ctx.Done():
		d.abandon(path, result)
		return fmt.Errorf("%w after %s: %w", ErrPublishTimeout, d.config.PublishTimeout, ctx.Err())
	}
}

// abandon marks path until the publish writing to result returns.
func (d *Dispatcher) abandon(path string, result <-chan error) {
	d.abandonedMu.Lock()
	d.abandoned[path] = struct{}{}
	d.abandonedMu.Unlock()

	go func() {
		err := <-result

		d.abandonedMu.Lock()
		delete(d.abandoned, path)
		d.abandonedMu.Unlock()

		d.logger.Debug("abandoned publish returned", "path", path, "error", err)
	}()
}

func (d *Dispatcher) isAbandoned(path string) bool {
	d.abandonedMu.Lock()
	defer d.abandonedMu.Unlock()
	_, ok := d.abandoned[path]
	return ok
}

// Stats returns cumulative counters.
func (d *Dispatcher) Stats() Stats {
	st := Stats{
		Cycles:    d.cycles.Load(),
		Published: d.published.Load(),
		Failed:    d.failed.Load(),
		Skipped:   d.skipped.Load(),
		Requeued:  d.requeued.Load(),
	}
	if ns := d.lastCycle.Load(); ns > 0 {
		st.LastCycle = time.Unix(0, ns)
	}
	return st
}

// Config returns the effective configuration after defaults.
func (d *Dispatcher) Config() Config {
	return d.config
}
