package display

import (
	"encoding/json"
	"io"

	"github.com/0xmhha/nfs-watcher/pkg/service"
)

// jsonFormatter formats output as JSON.
type jsonFormatter struct {
	config Config
}

// FormatCheck implements Formatter.FormatCheck.
func (f *jsonFormatter) FormatCheck(w io.Writer, results []CheckResult) error {
	if results == nil {
		results = []CheckResult{}
	}
	return f.encoder(w).Encode(results)
}

// FormatStatus implements Formatter.FormatStatus.
func (f *jsonFormatter) FormatStatus(w io.Writer, status service.Status) error {
	return f.encoder(w).Encode(status)
}

func (f *jsonFormatter) encoder(w io.Writer) *json.Encoder {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder
}
