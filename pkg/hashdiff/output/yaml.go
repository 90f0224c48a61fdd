package output

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// yamlOutput mirrors jsonOutput.
type yamlOutput struct {
	Mode      Mode      `yaml:"mode"`
	RunID     string    `yaml:"run_id,omitempty"`
	Root      string    `yaml:"root"`
	Baseline  string    `yaml:"baseline"`
	Stats     yamlStats `yaml:"stats"`
	Changes   any       `yaml:"changes,omitempty"`
	Reports   []string  `yaml:"reports,omitempty"`
	Committed bool      `yaml:"committed"`
	Warnings  []string  `yaml:"warnings,omitempty"`
}

type yamlStats struct {
	Files       int    `yaml:"files"`
	FilesHashed int64  `yaml:"files_hashed"`
	BytesHashed int64  `yaml:"bytes_hashed"`
	CacheHits   int64  `yaml:"cache_hits"`
	Skipped     int64  `yaml:"skipped"`
	Duration    string `yaml:"duration"`
}

// YAMLFormatter formats output as YAML.
// It produces the same structure as JSONFormatter.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	out := yamlOutput{
		Mode:     r.Mode,
		RunID:    r.RunID,
		Root:     r.Root,
		Baseline: r.Baseline,
		Stats: yamlStats{
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

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(out); err != nil {
		return err
	}
	return encoder.Close()
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
