package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/0xmhha/nfs-watcher/pkg/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler records callbacks for assertions.
type recordingHandler struct {
	mu      sync.Mutex
	created []string
	changed []string
	renamed [][2]string
	errs    []error
}

func (h *recordingHandler) OnCreated(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.created = append(h.created, path)
}

func (h *recordingHandler) OnChanged(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.changed = append(h.changed, path)
}

func (h *recordingHandler) OnRenamed(oldPath, newPath string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.renamed = append(h.renamed, [2]string{oldPath, newPath})
}

func (h *recordingHandler) OnError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, err)
}

func (h *recordingHandler) hasCreated(path string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return contains(h.created, path)
}

func (h *recordingHandler) hasChanged(path string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return contains(h.changed, path)
}

func (h *recordingHandler) renames() [][2]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][2]string(nil), h.renamed...)
}

func (h *recordingHandler) errors() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.errs...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func startWatcher(t *testing.T, root string, h Handler) Watcher {
	t.Helper()

	w, err := New(Config{}, h, logger.Noop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := w.Close(); err != nil {
			t.Logf("Close() error = %v", err)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, w.Start(ctx, root))

	return w
}

const waitFor = 2 * time.Second
const tick = 20 * time.Millisecond

func TestNewNilHandler(t *testing.T) {
	_, err := New(Config{}, nil, logger.Noop())
	assert.Error(t, err)
}

func TestStartInvalidPath(t *testing.T) {
	w, err := New(Config{}, &recordingHandler{}, logger.Noop())
	require.NoError(t, err)
	defer w.Close()

	err = w.Start(context.Background(), filepath.Join(t.TempDir(), "nonexistent"))
	assert.True(t, errors.Is(err, ErrInvalidPath), "Start() error = %v", err)
}

func TestStartAlreadyStarted(t *testing.T) {
	tmpDir := t.TempDir()
	w := startWatcher(t, tmpDir, &recordingHandler{})

	err := w.Start(context.Background(), tmpDir)
	assert.Equal(t, ErrAlreadyStarted, err)
}

func TestStopNotStarted(t *testing.T) {
	w, err := New(Config{}, &recordingHandler{}, logger.Noop())
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, ErrNotStarted, w.Stop())
}

func TestCloseTwice(t *testing.T) {
	w, err := New(Config{}, &recordingHandler{}, logger.Noop())
	require.NoError(t, err)

	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

func TestStartAfterClose(t *testing.T) {
	w, err := New(Config{}, &recordingHandler{}, logger.Noop())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, ErrWatcherClosed, w.Start(context.Background(), t.TempDir()))
	assert.Equal(t, ErrWatcherClosed, w.Stop())
}

func TestFileCreate(t *testing.T) {
	tmpDir := t.TempDir()
	h := &recordingHandler{}
	startWatcher(t, tmpDir, h)

	testFile := filepath.Join(tmpDir, "report.docx")
	require.NoError(t, os.WriteFile(testFile, []byte("test"), 0600))

	assert.Eventually(t, func() bool { return h.hasCreated(testFile) }, waitFor, tick)
}

func TestFileModify(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "report.docx")
	require.NoError(t, os.WriteFile(testFile, []byte("initial"), 0600))

	h := &recordingHandler{}
	startWatcher(t, tmpDir, h)

	require.NoError(t, os.WriteFile(testFile, []byte("modified"), 0600))

	assert.Eventually(t, func() bool { return h.hasChanged(testFile) }, waitFor, tick)
}

func TestFileRenamePaired(t *testing.T) {
	tmpDir := t.TempDir()
	oldPath := filepath.Join(tmpDir, "old.txt")
	newPath := filepath.Join(tmpDir, "new.txt")

	h := &recordingHandler{}
	startWatcher(t, tmpDir, h)

	require.NoError(t, os.WriteFile(oldPath, []byte("x"), 0600))
	require.Eventually(t, func() bool { return h.hasCreated(oldPath) }, waitFor, tick)

	require.NoError(t, os.Rename(oldPath, newPath))

	assert.Eventually(t, func() bool {
		for _, r := range h.renames() {
			if r == [2]string{oldPath, newPath} {
				return true
			}
		}
		return false
	}, waitFor, tick)
	assert.False(t, h.hasCreated(newPath))
}

func TestMoveOutThenCreate(t *testing.T) {
	tmpDir := t.TempDir()
	outside := t.TempDir()
	lockFile := filepath.Join(tmpDir, "~$budget.tmp")
	report := filepath.Join(tmpDir, "report.docx")

	h := &recordingHandler{}
	startWatcher(t, tmpDir, h)

	require.NoError(t, os.WriteFile(lockFile, []byte("lock"), 0600))
	require.Eventually(t, func() bool { return h.hasCreated(lockFile) }, waitFor, tick)

	require.NoError(t, os.Rename(lockFile, filepath.Join(outside, "~$budget.tmp")))
	require.NoError(t, os.WriteFile(report, []byte("q3"), 0600))

	assert.Eventually(t, func() bool { return h.hasCreated(report) }, waitFor, tick)
	assert.Empty(t, h.renames())
}

func TestSymlinkRoot(t *testing.T) {
	realDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(realDir, "docs"), 0700))

	link := filepath.Join(t.TempDir(), "share")
	if err := os.Symlink(realDir, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	h := &recordingHandler{}
	var w Watcher
	require.NotPanics(t, func() { w = startWatcher(t, link, h) })
	assert.Equal(t, 2, w.WatchCount())

	testFile := filepath.Join(link, "docs", "report.docx")
	require.NoError(t, os.WriteFile(testFile, []byte("x"), 0600))

	assert.Eventually(t, func() bool { return h.hasCreated(testFile) }, waitFor, tick)
}

func TestSubdirectoryWatching(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "a", "b")
	require.NoError(t, os.MkdirAll(subDir, 0700))

	h := &recordingHandler{}
	w := startWatcher(t, tmpDir, h)
	assert.Equal(t, 3, w.WatchCount())

	testFile := filepath.Join(subDir, "deep.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("test"), 0600))

	assert.Eventually(t, func() bool { return h.hasCreated(testFile) }, waitFor, tick)
}

func TestNewDirectoryIsWatched(t *testing.T) {
	tmpDir := t.TempDir()
	h := &recordingHandler{}
	w := startWatcher(t, tmpDir, h)

	newDir := filepath.Join(tmpDir, "incoming")
	require.NoError(t, os.Mkdir(newDir, 0700))
	assert.Eventually(t, func() bool { return w.WatchCount() == 2 }, waitFor, tick)

	testFile := filepath.Join(newDir, "late.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("x"), 0600))

	assert.Eventually(t, func() bool { return h.hasCreated(testFile) }, waitFor, tick)
}

func TestStopHaltsCallbacks(t *testing.T) {
	tmpDir := t.TempDir()
	h := &recordingHandler{}
	w := startWatcher(t, tmpDir, h)

	require.NoError(t, w.Stop())

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "after.txt"), []byte("x"), 0600))
	time.Sleep(200 * time.Millisecond)

	assert.False(t, h.hasCreated(filepath.Join(tmpDir, "after.txt")))
}

// The following tests drive handleEvent directly with synthetic events.

func newTestWatcher(t *testing.T, h Handler) *watcher {
	t.Helper()
	w, err := New(Config{RenameWindow: 100 * time.Millisecond}, h, logger.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() }) // nolint:errcheck
	return w.(*watcher)
}

// createAndRename creates a file seen by w, renames it on disk and feeds
// the RENAME event. It returns the old and new paths.
func createAndRename(t *testing.T, w *watcher, dir, from, to string) (string, string) {
	t.Helper()
	oldPath := filepath.Join(dir, from)
	newPath := filepath.Join(dir, to)
	require.NoError(t, os.WriteFile(oldPath, []byte("x"), 0600))
	w.handleEvent(fsnotify.Event{Name: oldPath, Op: fsnotify.Create})
	require.NoError(t, os.Rename(oldPath, newPath))
	w.handleEvent(fsnotify.Event{Name: oldPath, Op: fsnotify.Rename})
	return oldPath, newPath
}

func TestRenamePairedWithAdjacentCreate(t *testing.T) {
	tmpDir := t.TempDir()
	h := &recordingHandler{}
	w := newTestWatcher(t, h)

	oldPath, newPath := createAndRename(t, w, tmpDir, "~$draft.tmp", "final.txt")
	w.handleEvent(fsnotify.Event{Name: newPath, Op: fsnotify.Create})

	assert.Equal(t, [][2]string{{oldPath, newPath}}, h.renames())
	assert.False(t, h.hasCreated(newPath))
}

func TestRenameWithoutCreateExpires(t *testing.T) {
	tmpDir := t.TempDir()
	h := &recordingHandler{}
	w := newTestWatcher(t, h)

	clock := time.Now()
	w.now = func() time.Time { return clock }

	_, newPath := createAndRename(t, w, tmpDir, "a.txt", "b.txt")

	clock = clock.Add(time.Second)
	w.handleEvent(fsnotify.Event{Name: newPath, Op: fsnotify.Create})

	assert.Empty(t, h.renames())
	assert.True(t, h.hasCreated(newPath))
}

func TestRenameNotPairedAcrossOtherEvents(t *testing.T) {
	tmpDir := t.TempDir()
	h := &recordingHandler{}
	w := newTestWatcher(t, h)

	other := filepath.Join(tmpDir, "other.txt")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0600))

	_, newPath := createAndRename(t, w, tmpDir, "a.txt", "b.txt")
	w.handleEvent(fsnotify.Event{Name: other, Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: newPath, Op: fsnotify.Create})

	assert.Empty(t, h.renames())
	assert.True(t, h.hasCreated(newPath))
}

func TestMovedOutSourceNotPairedWithNewFile(t *testing.T) {
	tmpDir := t.TempDir()
	h := &recordingHandler{}
	w := newTestWatcher(t, h)

	// The lock file leaves the tree; only its RENAME is seen.
	lockFile := filepath.Join(tmpDir, "~$budget.tmp")
	require.NoError(t, os.WriteFile(lockFile, []byte("lock"), 0600))
	w.handleEvent(fsnotify.Event{Name: lockFile, Op: fsnotify.Create})
	require.NoError(t, os.Rename(lockFile, filepath.Join(t.TempDir(), "~$budget.tmp")))
	w.handleEvent(fsnotify.Event{Name: lockFile, Op: fsnotify.Rename})

	report := filepath.Join(tmpDir, "report.docx")
	require.NoError(t, os.WriteFile(report, []byte("q3"), 0600))
	w.handleEvent(fsnotify.Event{Name: report, Op: fsnotify.Create})

	assert.Empty(t, h.renames())
	assert.True(t, h.hasCreated(report))
}

func TestUnknownSourceNotPaired(t *testing.T) {
	tmpDir := t.TempDir()
	h := &recordingHandler{}
	w := newTestWatcher(t, h)

	w.handleEvent(fsnotify.Event{Name: filepath.Join(tmpDir, "never-seen.txt"), Op: fsnotify.Rename})

	created := filepath.Join(tmpDir, "fresh.txt")
	require.NoError(t, os.WriteFile(created, []byte("x"), 0600))
	w.handleEvent(fsnotify.Event{Name: created, Op: fsnotify.Create})

	assert.Empty(t, h.renames())
	assert.True(t, h.hasCreated(created))
}

func TestRemoveDropsRenameSource(t *testing.T) {
	tmpDir := t.TempDir()
	h := &recordingHandler{}
	w := newTestWatcher(t, h)

	gone := filepath.Join(tmpDir, "gone.txt")
	w.handleEvent(fsnotify.Event{Name: gone, Op: fsnotify.Rename})
	w.handleEvent(fsnotify.Event{Name: gone, Op: fsnotify.Remove})

	created := filepath.Join(tmpDir, "other.txt")
	require.NoError(t, os.WriteFile(created, []byte("x"), 0600))
	w.handleEvent(fsnotify.Event{Name: created, Op: fsnotify.Create})

	assert.Empty(t, h.renames())
	assert.True(t, h.hasCreated(created))
}

func TestIdentitiesBounded(t *testing.T) {
	file := filepath.Join(t.TempDir(), "x.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))
	info, err := os.Lstat(file)
	require.NoError(t, err)

	c := newIdentities(2)
	c.put("a", info)
	c.put("b", info)
	c.put("a", info)
	c.put("c", info)

	assert.Equal(t, 2, c.size())
	assert.Nil(t, c.take("b"), "oldest entry evicted")
	assert.NotNil(t, c.take("a"))
	assert.Nil(t, c.take("a"))
	assert.NotNil(t, c.take("c"))

	for i := 0; i < 20; i++ {
		c.put(fmt.Sprintf("f%d", i), info)
	}
	assert.Equal(t, 2, c.size())
	assert.LessOrEqual(t, len(c.order), 4)
}

func TestChmodReportedAsChange(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "perm.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))

	h := &recordingHandler{}
	w := newTestWatcher(t, h)
	w.handleEvent(fsnotify.Event{Name: file, Op: fsnotify.Chmod})
	assert.True(t, h.hasChanged(file))

	h2 := &recordingHandler{}
	w2 := newTestWatcher(t, h2)
	w2.config.IgnoreChmod = true
	w2.handleEvent(fsnotify.Event{Name: file, Op: fsnotify.Chmod})
	assert.False(t, h2.hasChanged(file))
}

func TestOverflowWrapped(t *testing.T) {
	h := &recordingHandler{}
	w := newTestWatcher(t, h)

	w.handleError(fsnotify.ErrEventOverflow)
	w.handleError(fmt.Errorf("read: %w", os.ErrPermission))

	errs := h.errors()
	require.Len(t, errs, 2)
	assert.True(t, errors.Is(errs[0], ErrOverflow))
	assert.True(t, errors.Is(errs[0], fsnotify.ErrEventOverflow))
	assert.False(t, errors.Is(errs[1], ErrOverflow))
	assert.True(t, errors.Is(errs[1], os.ErrPermission))
}
