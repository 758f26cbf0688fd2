package display

import (
	"fmt"
	"io"

	"github.com/0xmhha/nfs-watcher/pkg/service"
)

// simpleFormatter formats output as simple text.
type simpleFormatter struct {
	config Config
}

// FormatCheck implements Formatter.FormatCheck.
func (f *simpleFormatter) FormatCheck(w io.Writer, results []CheckResult) error {
	for _, r := range results {
		line := fmt.Sprintf("%s: %s", verdict(r), r.Path)
		if r.Ignored {
			line += fmt.Sprintf(" (%s)", r.Pattern)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	return nil
}

// FormatStatus implements Formatter.FormatStatus.
func (f *simpleFormatter) FormatStatus(w io.Writer, st service.Status) error {
	prefix := ""
	if f.config.ShowTimestamps {
		prefix = formatTime(st.Timestamp) + " "
	}

	_, err := fmt.Fprintf(w, "%sPending: %d | Queued: %s | Ignored: %s | Published: %s | Failed: %s | Uptime: %s\n",
		prefix,
		st.Pending,
		formatNumber(st.Capture.Queued),
		formatNumber(st.Capture.Ignored),
		formatNumber(st.Dispatch.Published),
		formatNumber(st.Dispatch.Failed),
		formatDuration(st.Uptime))
	return err
}
