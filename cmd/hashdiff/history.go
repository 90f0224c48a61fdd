package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/config"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/manifest"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/scanner"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var historyCmd = &cobra.Command{
	Use:   "history [dir]",
	Short: "View run history",
	Long: `View past bootstrap, compare, commit and reset runs.

Each run is stored as a JSON file under $XDG_DATA_HOME/hashdiff/history.
Pass a directory to only show runs for that root.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of a specific run",
	Long:  `Display a run by its ID or a unique ID prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries older than the retention period.`,
	RunE:  runHistoryClean,
}

var (
	historyLimit int
)

// maxListedChanges caps the paths printed per category by history show.
const maxListedChanges = 50

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// getManifest returns the history store at the configured directory.
func getManifest() (*manifest.Manifest, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	dir := cfg.Manifest.Path
	if dir == "" {
		dir = config.DefaultManifestPath()
	}
	m, err := manifest.New(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize history: %w", err)
	}
	return m, cfg, nil
}

// runHistory lists recent runs.
func runHistory(cmd *cobra.Command, args []string) error {
	m, _, err := getManifest()
	if err != nil {
		return err
	}

	root := ""
	if len(args) > 0 {
		root, err = scanner.ResolveRoot(args[0])
		if err != nil {
			return err
		}
	}

	entries, err := m.List(root, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'hashdiff <dir>' to create a baseline.")
		return nil
	}

	fmt.Printf("\n%-8s  %-19s  %-9s  %-8s  %-17s  %s\n", "ID", "TIME", "OPERATION", "FILES", "+/-/~", "ROOT")
	fmt.Println(strings.Repeat("-", 96))

	for _, entry := range entries {
		changes := "-"
		if entry.Operation == manifest.OpCompare {
			changes = fmt.Sprintf("%d/%d/%d", entry.Summary.Added, entry.Summary.Removed, entry.Summary.Modified)
		}
		fmt.Printf("%-8s  %-19s  %-9s  %-8s  %-17s  %s\n",
			shortID(entry.ID),
			entry.Timestamp.Local().Format("2006-01-02 15:04:05"),
			entry.Operation,
			humanize.Comma(int64(entry.Summary.Files)),
			changes,
			entry.Root,
		)
	}

	fmt.Println(strings.Repeat("-", 96))
	fmt.Printf("\nShowing %d entries. Use --limit to see more.\n", len(entries))
	fmt.Println("Use 'hashdiff history show <id>' for details on a specific entry.")

	return nil
}

// runHistoryShow displays one run. The json and yaml output formats print
// the stored entry as-is.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	m, _, err := getManifest()
	if err != nil {
		return err
	}

	entry, err := m.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	switch viper.GetString("output.format") {
	case "json":
		data, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode entry: %w", err)
		}
		fmt.Println(string(data))
		return nil
	case "yaml":
		data, err := yaml.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to encode entry: %w", err)
		}
		fmt.Print(string(data))
		return nil
	}

	fmt.Println("\nRun Details")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("ID:          %s\n", entry.ID)
	fmt.Printf("Timestamp:   %s\n", entry.Timestamp.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Operation:   %s\n", entry.Operation)
	fmt.Printf("Root:        %s\n", entry.Root)
	fmt.Printf("Baseline:    %s\n", entry.Baseline)
	if entry.Fingerprint != "" {
		fmt.Printf("Fingerprint: %s\n", entry.Fingerprint)
	}
	if entry.Operation != manifest.OpReset {
		fmt.Printf("Files:       %s (%s hashed, %d from cache)\n",
			humanize.Comma(int64(entry.Summary.Files)),
			types.FormatSize(entry.Summary.BytesHashed),
			entry.Summary.CacheHits)
	}

	if entry.Changes != nil {
		printChanges("Added", entry.Changes.Added)
		printChanges("Removed", entry.Changes.Removed)
		printChanges("Modified", entry.Changes.Modified)
		if entry.Summary.Added+entry.Summary.Removed+entry.Summary.Modified == 0 {
			fmt.Println("\nNo changes")
		}
	}

	if len(entry.Reports) > 0 {
		fmt.Println("\nReports:")
		for _, r := range entry.Reports {
			fmt.Printf("  %s\n", r)
		}
	}

	if len(entry.Errors) > 0 {
		fmt.Printf("\nUnreadable (%d):\n", len(entry.Errors))
		for _, e := range entry.Errors {
			fmt.Printf("  %s: %s\n", e.Path, e.Error)
		}
	}

	return nil
}

func printChanges(title string, paths []string) {
	if len(paths) == 0 {
		return
	}
	fmt.Printf("\n%s (%d):\n", title, len(paths))
	limit := min(len(paths), maxListedChanges)
	for _, p := range paths[:limit] {
		fmt.Printf("  %s\n", p)
	}
	if len(paths) > limit {
		fmt.Printf("  ... and %d more\n", len(paths)-limit)
	}
}

// runHistoryClean removes old history entries.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	m, cfg, err := getManifest()
	if err != nil {
		return err
	}

	retentionDays := cfg.Manifest.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", retentionDays)

	removed, err := m.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("Removed %d entries.", removed)
	return nil
}

// shortID returns the leading part of an ID, which history show accepts
// as a prefix.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
