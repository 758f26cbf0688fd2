package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/0xmhha/nfs-watcher/pkg/logger"
	"github.com/0xmhha/nfs-watcher/pkg/scan"
	"github.com/fsnotify/fsnotify"
)

// renameSource is a RENAME waiting for its CREATE. id is the identity the
// path had before the rename, when known.
type renameSource struct {
	path string
	at   time.Time
	id   os.FileInfo
}

// watcher implements the Watcher interface using fsnotify.
type watcher struct {
	fsw     *fsnotify.Watcher
	handler Handler
	logger  logger.Logger
	config  Config

	mu       sync.Mutex
	running  bool
	closed   bool
	stopChan chan struct{}
	done     chan struct{}

	// Owned by the processing goroutine once started.
	rename *renameSource
	files  *identities
	dirs   map[string]os.FileInfo
	now    func() time.Time
}

// New creates a new file system watcher that reports to handler.
func New(cfg Config, handler Handler, log logger.Logger) (Watcher, error) {
	if handler == nil {
		return nil, errors.New("watcher: nil handler")
	}
	if cfg.RenameWindow <= 0 {
		cfg.RenameWindow = DefaultRenameWindow
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &watcher{
		fsw:     fsw,
		handler: handler,
		logger:  log,
		config:  cfg,
		files:   newIdentities(maxIdentities),
		dirs:    make(map[string]os.FileInfo),
		now:     time.Now,
	}

	log.Debug("file watcher created",
		"rename_window", cfg.RenameWindow,
		"ignore_chmod", cfg.IgnoreChmod)

	return w, nil
}

// Start implements Watcher.Start.
func (w *watcher) Start(ctx context.Context, root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if w.running {
		return ErrAlreadyStarted
	}

	res, err := scan.Walk(root, w.logger)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	if err := w.fsw.Add(res.Root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", res.Root, err)
	}
	w.rememberDir(res.Root)
	for _, dir := range res.Dirs {
		if dir != res.Root {
			w.addDir(dir)
		}
	}

	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})
	w.running = true

	w.logger.Info("watcher started",
		"root", res.Root,
		"directories", len(w.fsw.WatchList()))

	go w.processEvents(ctx, w.stopChan, w.done)

	return nil
}

// Stop implements Watcher.Stop.
func (w *watcher) Stop() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	if !w.running {
		w.mu.Unlock()
		return ErrNotStarted
	}
	done := w.halt()
	w.mu.Unlock()

	<-done
	w.logger.Info("watcher stopped")
	return nil
}

// halt signals the processing goroutine. Callers hold w.mu.
func (w *watcher) halt() chan struct{} {
	close(w.stopChan)
	w.running = false
	return w.done
}

// Close implements Watcher.Close.
func (w *watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true

	var done chan struct{}
	if w.running {
		done = w.halt()
	}
	w.mu.Unlock()

	if done != nil {
		<-done
	}

	if err := w.fsw.Close(); err != nil {
		w.logger.Error("failed to close fsnotify watcher", "error", err)
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.logger.Debug("watcher closed")
	return nil
}

// WatchCount implements Watcher.WatchCount.
func (w *watcher) WatchCount() int {
	return len(w.fsw.WatchList())
}

// processEvents handles events from fsnotify until stopped.
func (w *watcher) processEvents(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("event processing stopped", "reason", "context cancelled")
			return

		case <-stop:
			w.logger.Debug("event processing stopped", "reason", "stop signal")
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				w.logger.Warn("fsnotify events channel closed")
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.logger.Warn("fsnotify errors channel closed")
				return
			}
			w.handleError(err)
		}
	}
}

// handleEvent translates one fsnotify event into handler callbacks.
//
// A RENAME is paired only with the event that immediately follows it, and
// only when that event is a CREATE of the same file inside RenameWindow.
// Anything else means the source left the tree.
func (w *watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	now := w.now()

	source := w.rename
	w.rename = nil
	if source != nil && now.Sub(source.at) > w.config.RenameWindow {
		w.logger.Debug("rename source left the tree", "path", source.path)
		source = nil
	}

	switch {
	case event.Has(fsnotify.Rename):
		if source != nil {
			w.logger.Debug("rename source left the tree", "path", source.path)
		}
		w.rename = &renameSource{path: path, at: now, id: w.forget(path)}

	case event.Has(fsnotify.Remove):
		w.forget(path)

	case event.Has(fsnotify.Create):
		info, err := os.Lstat(path)
		if err != nil {
			// Gone again before we looked; nothing left to report.
			w.logger.Debug("created path vanished", "path", path, "error", err)
			return
		}

		renamed := source != nil && source.id != nil && os.SameFile(source.id, info)
		if source != nil && !renamed {
			w.logger.Debug("rename source left the tree", "path", source.path)
		}

		if info.IsDir() {
			w.watchNewDir(path, !renamed)
			return
		}
		if info.Mode().IsRegular() {
			w.files.put(path, info)
		}

		if renamed {
			w.handler.OnRenamed(source.path, path)
			return
		}
		w.handler.OnCreated(path)

	case event.Has(fsnotify.Write):
		w.remember(path)
		w.handler.OnChanged(path)

	case event.Has(fsnotify.Chmod):
		if w.config.IgnoreChmod || w.isDir(path) {
			return
		}
		w.handler.OnChanged(path)
	}
}

// handleError forwards backend errors to the handler.
func (w *watcher) handleError(err error) {
	if errors.Is(err, fsnotify.ErrEventOverflow) {
		err = fmt.Errorf("%w: %w", ErrOverflow, err)
	}
	w.handler.OnError(err)
}

// remember records the identity of a regular file.
func (w *watcher) remember(path string) {
	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	w.files.put(path, info)
}

// rememberDir records the identity of a watched directory.
func (w *watcher) rememberDir(dir string) {
	info, err := os.Stat(dir)
	if err != nil {
		return
	}
	w.dirs[dir] = info
}

// forget drops what is known about path and returns its identity, or nil.
// Forgetting a directory also forgets the directories below it.
func (w *watcher) forget(path string) os.FileInfo {
	if info, ok := w.dirs[path]; ok {
		delete(w.dirs, path)
		prefix := path + string(filepath.Separator)
		for d := range w.dirs {
			if strings.HasPrefix(d, prefix) {
				delete(w.dirs, d)
			}
		}
		return info
	}
	return w.files.take(path)
}

// watchNewDir registers a directory that appeared after Start. Files found
// inside were created before the watch existed, so they are reported as
// created unless the whole directory was moved in by a rename.
func (w *watcher) watchNewDir(dir string, reportFiles bool) {
	res, err := scan.Walk(dir, w.logger)
	if err != nil {
		w.handler.OnError(fmt.Errorf("failed to scan new directory %s: %w", dir, err))
		return
	}

	for _, d := range res.Dirs {
		w.addDir(d)
	}

	if !reportFiles {
		return
	}
	for _, f := range res.Files {
		w.handler.OnCreated(f)
	}
}

// addDir adds one directory watch; failures are reported, not fatal.
func (w *watcher) addDir(dir string) {
	if err := w.fsw.Add(dir); err != nil {
		w.logger.Warn("failed to add directory watch", "path", dir, "error", err)
		w.handler.OnError(fmt.Errorf("failed to watch %s: %w", dir, err))
		return
	}
	w.rememberDir(dir)
	w.logger.Debug("added directory watch", "path", dir)
}

func (w *watcher) isDir(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.IsDir()
}
