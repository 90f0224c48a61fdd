package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/diff"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	if r.Mode == ModeCompare {
		w.WriteString(f.formatChanges(r.Changes))
	}

	if footer := f.formatFooter(r); footer != "" {
		w.WriteString(footer)
		w.WriteString("\n")
	}

	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(r.Warnings))
	}

	return nil
}

// formatHeader builds the header box with run metadata.
func (f *PrettyFormatter) formatHeader(r *Result) string {
	var lines []string

	if r.Mode == ModeBootstrap {
		lines = append(lines, SuccessStyle.Bold(true).Render(
			fmt.Sprintf("Created baseline for %d files in %s", r.Stats.Files, r.Root)))
	} else {
		lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Root:"), ValueStyle.Render(r.Root)))
	}

	lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Baseline:"), ValueStyle.Render(r.Baseline)))

	scanned := fmt.Sprintf("%s files, %s read in %s",
		humanize.Comma(int64(r.Stats.Files)),
		humanize.IBytes(uint64(max(r.Stats.BytesHashed, 0))),
		formatDuration(r.Stats.Duration))
	if r.Stats.CacheHits > 0 {
		scanned += fmt.Sprintf(" (%s from cache)", humanize.Comma(r.Stats.CacheHits))
	}
	lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Scanned:"), ValueStyle.Render(scanned)))

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// formatChanges lists each non-empty category.
func (f *PrettyFormatter) formatChanges(c diff.Classification) string {
	if !c.HasChanges() {
		return SuccessStyle.Render("  No changes") + "\n"
	}

	var sb strings.Builder
	for _, kind := range diff.Kinds() {
		paths := c.Bucket(kind)
		if len(paths) == 0 {
			continue
		}

		style := kindStyle(kind)
		sb.WriteString(style.Bold(true).Render(fmt.Sprintf("%s (%d)", bucketTitle(kind), len(paths))))
		sb.WriteString("\n")
		for _, p := range paths {
			sb.WriteString(fmt.Sprintf("  %s %s\n", style.Render(kindMarker(kind)), PathStyle.Render(p)))
		}
	}

	sb.WriteString(MutedStyle.Render(fmt.Sprintf("  %d unchanged", c.Unchanged)))
	sb.WriteString("\n")
	return sb.String()
}

// formatFooter lists written reports and the baseline update, if any.
func (f *PrettyFormatter) formatFooter(r *Result) string {
	var lines []string

	for _, p := range r.Reports {
		lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Report:"), ValueStyle.Render(p)))
	}

	switch {
	case r.Committed:
		lines = append(lines, SuccessStyle.Render("Baseline updated to the current scan"))
	case r.Mode == ModeCompare && r.Changes.HasChanges():
		lines = append(lines, MutedStyle.Render("Run with --commit to accept these changes"))
	}

	if len(lines) == 0 {
		return ""
	}
	return FooterBox.Render(strings.Join(lines, "\n"))
}

// formatWarnings builds a warning block.
func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder

	sb.WriteString(WarningStyle.Bold(true).Render(fmt.Sprintf("Warnings (%d unreadable):", len(warnings))))
	sb.WriteString("\n")

	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}

	return sb.String()
}

func kindStyle(kind diff.Kind) lipgloss.Style {
	switch kind {
	case diff.KindAdded:
		return SuccessStyle
	case diff.KindRemoved:
		return ErrorStyle
	default:
		return WarningStyle
	}
}

func kindMarker(kind diff.Kind) string {
	switch kind {
	case diff.KindAdded:
		return "+"
	case diff.KindRemoved:
		return "-"
	default:
		return "~"
	}
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := minutes / 60
	minutes %= 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
