package output

import (
	"bytes"
	"fmt"

	"github.com/jamesainslie/hashdiff/pkg/hashdiff/diff"
)

// PlainFormatter writes unstyled text suitable for scripting and piping.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	if r.Mode == ModeBootstrap {
		fmt.Fprintf(w, "Created baseline for %d files in %s\n", r.Stats.Files, r.Root)
		f.writeWarnings(w, r.Warnings)
		return nil
	}

	w.WriteString("COMPARISON COMPLETE\n\n")

	if !r.Changes.HasChanges() {
		w.WriteString("No changes\n")
	}

	for _, kind := range diff.Kinds() {
		paths := r.Changes.Bucket(kind)
		if len(paths) == 0 {
			continue
		}
		w.WriteString(bucketTitle(kind) + "\n")
		for _, p := range paths {
			w.WriteString("\t" + p + "\n")
		}
	}

	if r.Committed {
		fmt.Fprintf(w, "Baseline updated: %s\n", r.Baseline)
	}
	f.writeWarnings(w, r.Warnings)
	return nil
}

func (f *PlainFormatter) writeWarnings(w *bytes.Buffer, warnings []string) {
	for _, warning := range warnings {
		w.WriteString("warning: " + warning + "\n")
	}
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
