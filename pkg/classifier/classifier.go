// Package classifier decides whether a changed path is noise: office lock
// files, editor swap files, temp files and OS metadata.
//
// Patterns are regular expressions matched case-insensitively against the
// file name only; directory components never take part in the match.
//
// Example usage:
//
//	c, err := classifier.New(classifier.DefaultPatterns())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c.IsIgnored("/mnt/share/docs/~$report.docx") // true
//	c.IsIgnored("/mnt/share/docs/report.docx")   // false
package classifier

import (
	"fmt"
	"regexp"
	"strings"
)

// defaultPatterns recognise office lock files, editor/temp files and OS
// metadata files.
var defaultPatterns = []string{
	`^~\$`,
	`^\.~lock\.`,
	`\.tmp$`,
	`\.temp$`,
	`\.swp$`,
	`\.swx$`,
	`^\.ds_store$`,
	`^thumbs\.db$`,
}

// DefaultPatterns returns a copy of the built-in ignore patterns.
func DefaultPatterns() []string {
	return append([]string(nil), defaultPatterns...)
}

// Classifier matches file names against an immutable list of compiled
// patterns. It is safe for concurrent use.
type Classifier struct {
	sources  []string
	compiled []*regexp.Regexp
}

// New compiles patterns in order.
//
// Blank patterns are skipped. The first pattern that fails to compile aborts
// construction with an error wrapping ErrInvalidPattern.
func New(patterns []string) (*Classifier, error) {
	c := &Classifier{}

	for i, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}

		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %d %q: %v", ErrInvalidPattern, i, p, err)
		}

		c.sources = append(c.sources, p)
		c.compiled = append(c.compiled, re)
	}

	return c, nil
}

// MustNew is like New but panics on an invalid pattern. Intended for
// package-level defaults and tests.
func MustNew(patterns []string) *Classifier {
	c, err := New(patterns)
	if err != nil {
		panic(err)
	}
	return c
}

// IsIgnored reports whether the file name of path matches any pattern.
func (c *Classifier) IsIgnored(path string) bool {
	_, ok := c.Match(path)
	return ok
}

// Match returns the first pattern that matches the file name of path.
func (c *Classifier) Match(path string) (string, bool) {
	name := FileName(path)
	if name == "" {
		return "", false
	}

	for i, re := range c.compiled {
		if re.MatchString(name) {
			return c.sources[i], true
		}
	}

	return "", false
}

// Patterns returns the active (non-blank) patterns in match order.
func (c *Classifier) Patterns() []string {
	return append([]string(nil), c.sources...)
}

// FileName returns the last segment of path. Both '/' and '\' count as
// separators so names coming from SMB shares classify the same way on any
// host OS. Trailing separators are ignored.
func FileName(path string) string {
	trimmed := strings.TrimRight(path, `/\`)
	if i := strings.LastIndexAny(trimmed, `/\`); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
