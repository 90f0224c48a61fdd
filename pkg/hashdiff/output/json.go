package output

import (
	"bytes"
	"encoding/json"
)

// jsonOutput is the document written by JSONFormatter. Durations are
// rendered as strings.
type jsonOutput struct {
	Mode      Mode      `json:"mode"`
	RunID     string    `json:"run_id,omitempty"`
	Root      string    `json:"root"`
	Baseline  string    `json:"baseline"`
	Stats     jsonStats `json:"stats"`
	Changes   any       `json:"changes,omitempty"`
	Reports   []string  `json:"reports,omitempty"`
	Committed bool      `json:"committed"`
	Warnings  []string  `json:"warnings,omitempty"`
}

type jsonStats struct {
	Files       int    `json:"files"`
	FilesHashed int64  `json:"files_hashed"`
	BytesHashed int64  `json:"bytes_hashed"`
	CacheHits   int64  `json:"cache_hits"`
	Skipped     int64  `json:"skipped"`
	Duration    string `json:"duration"`
}

// JSONFormatter formats output as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	out := jsonOutput{
		Mode:     r.Mode,
		RunID:    r.RunID,
		Root:     r.Root,
		Baseline: r.Baseline,
		Stats: jsonStats{
			Files:       r.Stats.Files,
			FilesHashed: r.Stats.FilesHashed,
			BytesHashed: r.Stats.BytesHashed,
			CacheHits:   r.Stats.CacheHits,
			Skipped:     r.Stats.Skipped,
			Duration:    r.Stats.Duration.String(),
		},
		Reports:   r.Reports,
		Committed: r.Committed,
		Warnings:  r.Warnings,
	}
	if r.Mode == ModeCompare {
		out.Changes = r.Changes
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
