// Package display provides output formatting for the nfs-watcher CLI.
//
// It renders classifier check results and service status in multiple
// output formats (table, JSON, simple text).
package display

import (
	"io"

	"github.com/0xmhha/nfs-watcher/pkg/service"
)

// Format represents an output format.
type Format string

const (
	// FormatTable displays results in a formatted table.
	FormatTable Format = "table"

	// FormatJSON displays results as JSON.
	FormatJSON Format = "json"

	// FormatSimple displays results in simple text format.
	FormatSimple Format = "simple"
)

// CheckResult is the classification of one path.
type CheckResult struct {
	// Path as given on the command line
	Path string `json:"path"`

	// Name is the final path component that patterns are matched against
	Name string `json:"name"`

	// Ignored reports whether a change to Path would be dropped
	Ignored bool `json:"ignored"`

	// Pattern is the first matching pattern, empty when not ignored
	Pattern string `json:"pattern,omitempty"`
}

// Formatter formats check results and service status.
type Formatter interface {
	// FormatCheck formats classifier results.
	//
	// Parameters:
	//   - w: Output writer
	//   - results: One result per checked path
	//
	// Returns error if formatting fails.
	FormatCheck(w io.Writer, results []CheckResult) error

	// FormatStatus formats a service status snapshot.
	FormatStatus(w io.Writer, status service.Status) error
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatTable.
	Format Format

	// ShowTimestamps enables timestamp display.
	// Default: false.
	ShowTimestamps bool

	// Compact enables compact output (less whitespace).
	// Default: false.
	Compact bool
}

// ParseFormat returns the Format named by s, or an error for unknown names.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTable, FormatJSON, FormatSimple:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", ErrUnknownFormat
	}
}
