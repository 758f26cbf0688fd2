// Package scan walks a watch root and reports the directories and regular
// files below it.
//
// The watcher uses the directory list to register recursive watches; the
// service uses the file list to seed the pending set at startup.
//
// Example usage:
//
//	res, err := scan.Walk("/mnt/share", logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d dirs, %d files\n", len(res.Dirs), len(res.Files))
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Logger defines the logging interface used by the scan package.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// Result is the outcome of a walk.
type Result struct {
	// Root is the cleaned absolute root that was walked.
	Root string

	// Dirs lists every directory including Root, in walk order.
	Dirs []string

	// Files lists every regular file, in walk order.
	Files []string

	// Skipped counts entries that could not be read.
	Skipped int
}

// Walk scans root recursively.
//
// Entries that cannot be read are logged and skipped; only a missing or
// non-directory root is an error. Symlinks below the root are reported
// neither as files nor as directories and are not followed. A root that is
// itself a symlink is followed, and the results are reported under the
// root as given.
func Walk(root string, log Logger) (Result, error) {
	abs, err := Resolve(root)
	if err != nil {
		return Result{}, err
	}

	target, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return Result{}, fmt.Errorf("failed to resolve %s: %w", abs, err)
	}

	res := Result{Root: abs}

	walkErr := filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		path = rebase(target, abs, path)

		if err != nil {
			log.Warn("error walking path", "path", path, "error", err)
			res.Skipped++
			if d != nil && d.IsDir() && path != abs {
				return filepath.SkipDir
			}
			return nil
		}

		switch {
		case d.IsDir():
			res.Dirs = append(res.Dirs, path)
		case d.Type().IsRegular():
			res.Files = append(res.Files, path)
		}
		return nil
	})
	if walkErr != nil {
		return res, fmt.Errorf("failed to walk %s: %w", abs, walkErr)
	}

	log.Debug("scan complete",
		"root", abs,
		"dirs", len(res.Dirs),
		"files", len(res.Files),
		"skipped", res.Skipped)

	return res, nil
}

// rebase moves path from under target to under root.
func rebase(target, root, path string) string {
	if target == root {
		return path
	}
	rel, err := filepath.Rel(target, path)
	if err != nil {
		return path
	}
	return filepath.Join(root, rel)
}

// Resolve expands a leading ~, makes root absolute and checks that it is an
// existing directory.
func Resolve(root string) (string, error) {
	abs, err := filepath.Abs(ExpandHome(root))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrRootNotFound, abs)
		}
		return "", fmt.Errorf("failed to stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, abs)
	}

	return abs, nil
}

// ExpandHome expands a leading "~" or "~/" to the user's home directory.
// Other forms such as "~bob/x" are returned unchanged.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
