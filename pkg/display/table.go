package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/0xmhha/nfs-watcher/pkg/service"
)

// tableFormatter formats output as tables.
type tableFormatter struct {
	config Config
}

// FormatCheck implements Formatter.FormatCheck.
func (f *tableFormatter) FormatCheck(w io.Writer, results []CheckResult) error {
	if err := writeHeader(w, "Path Classification", f.config.Compact); err != nil {
		return err
	}

	rows := make([][]string, len(results))
	for i, r := range results {
		pattern := r.Pattern
		if pattern == "" {
			pattern = "-"
		}
		rows[i] = []string{r.Path, r.Name, verdict(r), pattern}
	}

	return f.writeTable(w, []string{"Path", "Name", "Result", "Pattern"}, rows)
}

// FormatStatus implements Formatter.FormatStatus.
func (f *tableFormatter) FormatStatus(w io.Writer, st service.Status) error {
	if err := writeHeader(w, "Watcher Status", f.config.Compact); err != nil {
		return err
	}

	state := "stopped"
	if st.Running {
		state = "running"
	}

	rows := [][]string{
		{"Root", st.Root},
		{"State", state},
		{"Uptime", formatDuration(st.Uptime)},
		{"Watched Dirs", fmt.Sprintf("%d", st.Watched)},
		{"Pending", fmt.Sprintf("%d", st.Pending)},
		{"Queued", formatNumber(st.Capture.Queued)},
		{"Coalesced", formatNumber(st.Capture.Coalesced)},
		{"Ignored", formatNumber(st.Capture.Ignored)},
		{"Capture Errors", formatNumber(st.Capture.Errors)},
		{"Overflows", formatNumber(st.Capture.Overflows)},
		{"Cycles", formatNumber(st.Dispatch.Cycles)},
		{"Published", formatNumber(st.Dispatch.Published)},
		{"Failed", formatNumber(st.Dispatch.Failed)},
		{"Requeued", formatNumber(st.Dispatch.Requeued)},
	}

	if f.config.ShowTimestamps {
		rows = append(rows,
			[]string{"Last Cycle", formatTime(st.Dispatch.LastCycle)},
			[]string{"Timestamp", formatTime(st.Timestamp)},
		)
	}

	return f.writeTable(w, []string{"Metric", "Value"}, rows)
}

// writeTable writes a formatted table.
func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}

	// Calculate column widths.
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	if err := f.writeRow(w, header, widths); err != nil {
		return err
	}

	if !f.config.Compact {
		separator := make([]string, len(header))
		for i, width := range widths {
			separator[i] = strings.Repeat("-", width)
		}
		if err := f.writeRow(w, separator, widths); err != nil {
			return err
		}
	}

	for _, row := range rows {
		if err := f.writeRow(w, row, widths); err != nil {
			return err
		}
	}

	if !f.config.Compact {
		_, err := fmt.Fprintln(w)
		return err
	}

	return nil
}

// writeRow writes a single table row.
func (f *tableFormatter) writeRow(w io.Writer, cells []string, widths []int) error {
	gap := "  "
	if f.config.Compact {
		gap = " "
	}

	for i, cell := range cells {
		if i > 0 {
			if _, err := fmt.Fprint(w, gap); err != nil {
				return err
			}
		}

		// The last column is not padded.
		if i == len(cells)-1 {
			if _, err := fmt.Fprint(w, cell); err != nil {
				return err
			}
			continue
		}

		if _, err := fmt.Fprintf(w, "%-*s", widths[i], cell); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}
