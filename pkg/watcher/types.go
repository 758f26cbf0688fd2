// Package watcher turns fsnotify events for a directory tree into
// created/changed/renamed/error callbacks.
//
// Every directory below the root is watched, including directories created
// after Start. fsnotify reports a rename as a RENAME on the old name followed
// by a CREATE on the new one; the watcher pairs the two when they arrive
// within Config.RenameWindow and reports a single OnRenamed. A rename source
// that is never paired was moved out of the tree and is dropped.
//
// Example usage:
//
//	w, err := watcher.New(watcher.Config{}, handler, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	if err := w.Start(ctx, "/mnt/share"); err != nil {
//	    log.Fatal(err)
//	}
package watcher

import (
	"context"
	"time"
)

// Handler receives file notifications. Directory events are not delivered.
type Handler interface {
	// OnCreated is called for a file that appeared in the tree.
	OnCreated(path string)

	// OnChanged is called for a file whose content or attributes changed.
	OnChanged(path string)

	// OnRenamed is called when a file was renamed within the tree.
	OnRenamed(oldPath, newPath string)

	// OnError is called for errors from the notification backend. The
	// watcher keeps running after reporting.
	OnError(err error)
}

// Watcher provides recursive file system monitoring.
type Watcher interface {
	// Start registers watches for root and every directory below it and
	// begins delivering callbacks. It returns once watching is set up.
	Start(ctx context.Context, root string) error

	// Stop halts event delivery and waits until no callback is running.
	Stop() error

	// Close stops the watcher if needed and releases resources.
	Close() error

	// WatchCount returns the number of directories currently watched.
	WatchCount() int
}

// Config contains watcher configuration.
type Config struct {
	// RenameWindow is how long a RENAME waits for its matching CREATE.
	// Default: 1s.
	RenameWindow time.Duration

	// IgnoreChmod drops attribute-only changes instead of reporting them
	// through OnChanged.
	IgnoreChmod bool
}

// DefaultRenameWindow is used when Config.RenameWindow is zero.
const DefaultRenameWindow = time.Second
