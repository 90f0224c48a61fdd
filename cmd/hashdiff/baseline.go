package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jamesainslie/hashdiff/pkg/hashdiff/baseline"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/report"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/types"
	"github.com/spf13/cobra"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Inspect and manage baselines",
	Long: `Commands for the stored baseline of a directory.

Every scanned directory has its own baseline file under
$XDG_DATA_HOME/hashdiff/roots unless --baseline points elsewhere.`,
}

var baselinePathCmd = &cobra.Command{
	Use:   "path [dir]",
	Short: "Show the baseline and report locations",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBaselinePath,
}

var baselineShowCmd = &cobra.Command{
	Use:   "show [dir]",
	Short: "List the files recorded in the baseline",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBaselineShow,
}

var baselineCommitCmd = &cobra.Command{
	Use:   "commit [dir]",
	Short: "Replace the baseline with the current state",
	Long: `Scan the directory and store the result as its baseline, accepting
every change since the previous one. No reports are written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBaselineCommit,
}

var baselineResetCmd = &cobra.Command{
	Use:   "reset [dir]",
	Short: "Delete the baseline and its reports",
	Long:  `Delete the baseline so the next run creates a new one.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBaselineReset,
}

func init() {
	baselineCmd.AddCommand(baselinePathCmd)
	baselineCmd.AddCommand(baselineShowCmd)
	baselineCmd.AddCommand(baselineCommitCmd)
	baselineCmd.AddCommand(baselineResetCmd)
	rootCmd.AddCommand(baselineCmd)
}

func runBaselinePath(cmd *cobra.Command, args []string) error {
	opts, err := resolveRunOptions(args)
	if err != nil {
		return err
	}

	fmt.Printf("baseline: %s\n", opts.Paths.Baseline)
	fmt.Printf("reports:  %s\n", opts.Paths.OutputDir)

	exists, err := baseline.New(opts.Paths.Baseline).Exists()
	if err == nil && !exists {
		printVerbose("Baseline does not exist yet")
	}
	return nil
}

func runBaselineShow(cmd *cobra.Command, args []string) error {
	opts, err := resolveRunOptions(args)
	if err != nil {
		return err
	}

	rows, err := baseline.New(opts.Paths.Baseline).LoadRows()
	if errors.Is(err, baseline.ErrNotExist) {
		printInfo("No baseline for %s yet. Run 'hashdiff %s' to create one.", opts.Paths.Root, opts.Paths.Root)
		return nil
	}
	if err != nil {
		return err
	}

	for _, row := range rows {
		fmt.Printf("%s  %s  %s\n", row.Timestamp, row.Digests.SHA256, row.Path)
	}
	printInfo("\n%d files in %s", len(rows), opts.Paths.Baseline)
	return nil
}

func runBaselineCommit(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := resolveRunOptions(args)
	if err != nil {
		return err
	}

	res, err := commitBaseline(ctx, opts)
	if err != nil {
		return err
	}

	printInfo("Baseline updated for %d files in %s", res.Snapshot.Len(), res.Root)
	if n := len(res.Errors); n > 0 {
		printInfo("%d unreadable files were left out of the baseline:", n)
		for _, e := range res.Errors {
			printInfo("  %s: %s", e.Path, e.Error)
		}
	}
	return nil
}

// commitBaseline scans opts.Paths.Root and stores the result as its
// baseline, creating it when missing.
func commitBaseline(ctx context.Context, opts runOptions) (*types.ScanResult, error) {
	res, err := scan(ctx, opts)
	if err != nil {
		return nil, err
	}

	store := baseline.New(opts.Paths.Baseline)
	if err := store.Commit(res.Snapshot, opts.Now()); err != nil {
		return nil, err
	}

	if history := openHistory(opts); history != nil {
		if _, err := history.LogCommit(res.Root, store.Path(), res.Snapshot); err != nil {
			logger.Warn("recording history failed", "err", err)
		}
	}
	return res, nil
}

func runBaselineReset(cmd *cobra.Command, args []string) error {
	opts, err := resolveRunOptions(args)
	if err != nil {
		return err
	}

	removed, err := resetBaseline(opts)
	if err != nil {
		return err
	}
	if !removed {
		printInfo("No baseline for %s.", opts.Paths.Root)
		return nil
	}

	printInfo("Baseline removed: %s", opts.Paths.Baseline)
	return nil
}

// resetBaseline deletes the baseline and its reports. It reports false when
// there was no baseline to delete.
func resetBaseline(opts runOptions) (bool, error) {
	store := baseline.New(opts.Paths.Baseline)
	exists, err := store.Exists()
	if err != nil || !exists {
		return false, err
	}
	if err := store.Remove(); err != nil {
		return false, err
	}
	if err := report.New(opts.Paths.OutputDir).Clear(); err != nil {
		return true, err
	}

	if history := openHistory(opts); history != nil {
		if _, err := history.LogReset(opts.Paths.Root, store.Path()); err != nil {
			logger.Warn("recording history failed", "err", err)
		}
	}
	return true, nil
}
