// Package capture bridges file notifications to the pending set.
//
// The Adapter implements watcher.Handler. Its callbacks are safe to call
// from any number of goroutines: the classifier is immutable and the pending
// set does its own locking, so the adapter itself holds no locks.
package capture

import (
	"errors"
	"sync/atomic"

	"github.com/0xmhha/nfs-watcher/pkg/logger"
	"github.com/0xmhha/nfs-watcher/pkg/watcher"
)

// Classifier decides whether a path is noise.
type Classifier interface {
	IsIgnored(path string) bool
}

// Set is the subset of the pending set the adapter writes to.
type Set interface {
	Add(path string) bool
}

// Stats counts what the adapter did with the notifications it received.
type Stats struct {
	// Queued is the number of paths newly inserted into the pending set.
	Queued uint64 `json:"queued"`

	// Coalesced is the number of notifications for paths already pending.
	Coalesced uint64 `json:"coalesced"`

	// Ignored is the number of notifications dropped by the classifier.
	Ignored uint64 `json:"ignored"`

	// Errors is the number of errors reported by the notification source.
	Errors uint64 `json:"errors"`

	// Overflows is the subset of Errors that signalled lost events.
	Overflows uint64 `json:"overflows"`
}

// Adapter applies the classifier to notifications and records surviving
// paths in the pending set.
type Adapter struct {
	classifier Classifier
	set        Set
	logger     logger.Logger

	queued    atomic.Uint64
	coalesced atomic.Uint64
	ignored   atomic.Uint64
	errs      atomic.Uint64
	overflows atomic.Uint64
}

var _ watcher.Handler = (*Adapter)(nil)

// New creates an adapter feeding set.
func New(classifier Classifier, set Set, log logger.Logger) *Adapter {
	return &Adapter{
		classifier: classifier,
		set:        set,
		logger:     log.With("component", "capture"),
	}
}

// OnCreated records path unless it is ignored.
func (a *Adapter) OnCreated(path string) {
	a.record("created", path)
}

// OnChanged records path unless it is ignored.
func (a *Adapter) OnChanged(path string) {
	a.record("changed", path)
}

// OnRenamed records newPath unless either name is ignored. An entry already
// pending under oldPath is left alone.
func (a *Adapter) OnRenamed(oldPath, newPath string) {
	if a.classifier.IsIgnored(oldPath) || a.classifier.IsIgnored(newPath) {
		a.ignored.Add(1)
		a.logger.Debug("ignored rename", "old_path", oldPath, "path", newPath)
		return
	}
	a.add("renamed", newPath)
}

// OnError logs err with its full cause chain. Capture keeps running.
func (a *Adapter) OnError(err error) {
	if err == nil {
		return
	}
	a.errs.Add(1)

	if errors.Is(err, watcher.ErrOverflow) {
		a.overflows.Add(1)
		a.logger.Error("notification queue overflowed, changes may have been missed",
			"error", err,
			"cause", logger.Chain(err))
		return
	}

	a.logger.Error("notification source error",
		"error", err,
		"cause", logger.Chain(err))
}

// Stats returns a snapshot of the adapter counters.
func (a *Adapter) Stats() Stats {
	return Stats{
		Queued:    a.queued.Load(),
		Coalesced: a.coalesced.Load(),
		Ignored:   a.ignored.Load(),
		Errors:    a.errs.Load(),
		Overflows: a.overflows.Load(),
	}
}

func (a *Adapter) record(kind, path string) {
	if a.classifier.IsIgnored(path) {
		a.ignored.Add(1)
		a.logger.Debug("ignored "+kind, "path", path)
		return
	}
	a.add(kind, path)
}

func (a *Adapter) add(kind, path string) {
	if a.set.Add(path) {
		a.queued.Add(1)
		a.logger.Debug("path queued", "event", kind, "path", path)
		return
	}
	a.coalesced.Add(1)
}
