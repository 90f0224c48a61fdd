package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/jamesainslie/hashdiff/pkg/hashdiff/baseline"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/cache"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/config"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/diff"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/logging"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/manifest"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/output"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/report"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/scanner"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/tuner"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var logger = logging.Get("hashdiff")

// runOptions is everything a run needs, resolved from config and flags.
type runOptions struct {
	Paths   config.Paths
	Exclude []string
	Workers int

	// UseCache enables the digest cache at Paths.Cache.
	UseCache bool

	// Commit replaces the baseline with the current scan after comparing.
	Commit bool

	// History enables run history at Paths.Manifest.
	History bool

	// LogPath is the log file, excluded from scans along with its backups.
	LogPath string

	// Now stamps baseline and report rows.
	Now func() time.Time
}

// runHashdiff is the root command handler.
func runHashdiff(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := resolveRunOptions(args)
	if err != nil {
		return err
	}

	formatter, err := output.Get(viper.GetString("output.format"))
	if err != nil {
		return err
	}

	result, runErr := run(ctx, opts)
	if result != nil && !getQuiet() {
		var buf bytes.Buffer
		if err := formatter.Format(&buf, result); err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Print(buf.String())
	}

	if errors.Is(runErr, context.Canceled) {
		return errors.New("interrupted, baseline and reports left unchanged")
	}
	return runErr
}

// resolveRunOptions builds runOptions for the directory in args.
func resolveRunOptions(args []string) (runOptions, error) {
	cfg, err := loadConfig()
	if err != nil {
		return runOptions{}, err
	}

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	dir, err = config.ExpandPath(dir)
	if err != nil {
		return runOptions{}, fmt.Errorf("failed to expand path: %w", err)
	}

	root, err := scanner.ResolveRoot(dir)
	if err != nil {
		return runOptions{}, err
	}

	paths, err := cfg.ResolvePaths(root)
	if err != nil {
		return runOptions{}, err
	}

	logPath := cfg.Logging.Path
	if logPath == "" {
		logPath = config.DefaultLogPath()
	}

	printVerbose("Baseline: %s", paths.Baseline)
	printVerbose("Reports:  %s", paths.OutputDir)

	return runOptions{
		Paths:    paths,
		Exclude:  cfg.Exclude,
		Workers:  cfg.Workers,
		UseCache: cfg.Cache.Enabled,
		Commit:   cfg.Baseline.AutoCommit,
		History:  cfg.Manifest.Enabled,
		LogPath:  logPath,
		Now:      time.Now,
	}, nil
}

// run creates the baseline on the first run for a directory and compares
// against it on every later run. Report write failures are returned after
// every category has been attempted, together with the result.
func run(ctx context.Context, opts runOptions) (*output.Result, error) {
	root, err := scanner.ResolveRoot(opts.Paths.Root)
	if err != nil {
		return nil, err
	}
	opts.Paths.Root = root

	store := baseline.New(opts.Paths.Baseline)
	exists, err := store.Exists()
	if err != nil {
		return nil, err
	}

	history := openHistory(opts)

	if !exists {
		return bootstrap(ctx, opts, store, history)
	}
	return compare(ctx, opts, store, history)
}

func bootstrap(ctx context.Context, opts runOptions, store *baseline.Store, history *manifest.Manifest) (*output.Result, error) {
	res, err := scan(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := store.Initialize(res.Snapshot, opts.Now()); err != nil {
		return nil, err
	}

	result := output.NewResult(output.ModeBootstrap, store.Path(), res)
	if history != nil {
		if entry, err := history.LogBootstrap(store.Path(), res); err != nil {
			logger.Warn("recording history failed", "err", err)
		} else {
			result.RunID = entry.ID
		}
	}
	return result, nil
}

func compare(ctx context.Context, opts runOptions, store *baseline.Store, history *manifest.Manifest) (*output.Result, error) {
	// A corrupt baseline is fatal, so check it before the expensive scan.
	base, err := store.Load()
	if err != nil {
		return nil, err
	}

	res, err := scan(ctx, opts)
	if err != nil {
		return nil, err
	}

	now := opts.Now()
	cls := diff.Compare(base, res.Snapshot)

	// A category whose stale report cannot be removed fails on its own;
	// the other categories are still written.
	writer := report.New(opts.Paths.OutputDir)
	clearErr := writer.Clear()
	writeErr := errors.Join(clearErr, writer.WriteAll(cls, base, res.Snapshot, now))

	result := output.NewResult(output.ModeCompare, store.Path(), res)
	result.Changes = cls
	result.Reports = writer.Existing()

	if history != nil {
		if entry, err := history.LogCompare(store.Path(), res, cls, result.Reports); err != nil {
			logger.Warn("recording history failed", "err", err)
		} else {
			result.RunID = entry.ID
		}
	}

	if opts.Commit {
		if err := store.Commit(res.Snapshot, now); err != nil {
			return result, errors.Join(writeErr, err)
		}
		result.Committed = true
		if history != nil {
			if _, err := history.LogCommit(res.Root, store.Path(), res.Snapshot); err != nil {
				logger.Warn("recording history failed", "err", err)
			}
		}
	}

	logger.Info("comparison complete",
		"root", res.Root,
		"added", len(cls.Added),
		"removed", len(cls.Removed),
		"modified", len(cls.Modified),
		"unchanged", cls.Unchanged,
		"unreadable", len(res.Errors))

	return result, writeErr
}

// scan snapshots opts.Paths.Root. hashdiff's own files are always excluded
// so state kept inside the scanned tree never reports itself as changed.
func scan(ctx context.Context, opts runOptions) (*types.ScanResult, error) {
	exclude := append(append([]string{}, opts.Exclude...), stateExclusions(opts)...)

	tuned := tunedConfig(opts.Workers)
	scanOpts := scanner.Options{
		Root:      opts.Paths.Root,
		Exclude:   exclude,
		Workers:   tuned.HashWorkers,
		QueueSize: tuned.QueueSize,
	}

	if opts.UseCache {
		c, err := cache.Open(opts.Paths.Cache)
		if err != nil {
			// The cache only saves time; scan without it.
			logger.Warn("digest cache unavailable", "path", opts.Paths.Cache, "err", err)
		} else {
			defer c.Close()
			scanOpts.Cache = c
		}
	}

	printVerbose("Scanning %s with %d workers", scanOpts.Root, scanOpts.Workers)
	res, err := scanner.New(scanOpts).Scan(ctx)
	if err != nil {
		return nil, err
	}

	for _, e := range res.Errors {
		printVerbose("unreadable: %s: %s", e.Path, e.Error)
	}
	printVerbose("Hashed %d files (%s) in %s, %d from cache",
		res.FilesHashed, res.HumanBytes(), res.Elapsed.Round(time.Millisecond), res.CacheHits)

	return res, nil
}

// stateExclusions lists the files and directories hashdiff writes itself:
// the baseline and its temp files, the reports, the history and cache
// directories, and the log file with its rotated copies.
func stateExclusions(opts runOptions) []string {
	var paths []string
	if opts.Paths.Baseline != "" {
		dir, base := filepath.Split(opts.Paths.Baseline)
		paths = append(paths, opts.Paths.Baseline, filepath.Join(dir, "."+base+".*.tmp"))
	}
	if opts.Paths.OutputDir != "" {
		writer := report.New(opts.Paths.OutputDir)
		for _, kind := range diff.Kinds() {
			paths = append(paths, writer.Path(kind))
		}
	}
	for _, dir := range []string{opts.Paths.Manifest, opts.Paths.Cache} {
		if dir != "" {
			paths = append(paths, dir)
		}
	}
	if opts.LogPath != "" {
		ext := filepath.Ext(opts.LogPath)
		stem := strings.TrimSuffix(opts.LogPath, ext)
		paths = append(paths, opts.LogPath, stem+".*"+ext)
	}
	return paths
}

// tunedConfig sizes the hash worker pool for this machine.
func tunedConfig(workers int) tuner.OptimalConfig {
	resources, err := tuner.Detect()
	if err != nil {
		printVerbose("Failed to detect system resources, using defaults: %v", err)
		resources = tuner.Fallback(runtime.NumCPU())
	}
	return tuner.CalculateWithOverrides(resources, workers)
}

// openHistory returns nil when history is disabled or unusable.
func openHistory(opts runOptions) *manifest.Manifest {
	if !opts.History {
		return nil
	}
	m, err := manifest.New(opts.Paths.Manifest)
	if err != nil {
		logger.Warn("history disabled", "err", err)
		return nil
	}
	return m
}
