package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jamesainslie/hashdiff/pkg/hashdiff/cache"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/config"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/scanner"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/types"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the digest cache",
	Long: `Commands for managing the digest cache.

With --use-cache, files whose size and modification time match the previous
scan reuse their recorded digests instead of being read again. Cache data is
stored under $XDG_DATA_HOME/hashdiff/cache.`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [dir]",
	Short: "Clear cached digests",
	Long:  `Removes cached digests for one directory, or for every directory when none is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheClear,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats [dir]",
	Short: "Show cache statistics",
	Long:  `Displays the cache location and size, and the number of cached files for a directory.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheStats,
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show cache location",
	Long:  `Prints the path to the cache directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := cachePath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}

// cachePath returns the configured cache directory.
func cachePath() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.Cache.Path != "" {
		return cfg.Cache.Path, nil
	}
	return config.DefaultCachePath(), nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	path, err := cachePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		fmt.Println("Cache is already empty.")
		return nil
	}

	c, err := cache.Open(path)
	if err != nil {
		return err
	}
	defer c.Close()

	if len(args) == 0 {
		if err := c.ClearAll(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Println("Cache cleared.")
		return nil
	}

	root, err := scanner.ResolveRoot(args[0])
	if err != nil {
		return err
	}
	if err := c.Clear(root); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Printf("Cache cleared for %s.\n", root)
	return nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	path, err := cachePath()
	if err != nil {
		return err
	}

	fmt.Printf("Cache location: %s\n", path)

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		fmt.Println("Cache: empty (no cache directory)")
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to stat cache: %w", err)
	}

	var size int64
	err = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to calculate cache size: %w", err)
	}
	fmt.Printf("Cache size: %s\n", types.FormatSize(size))

	if len(args) == 0 {
		return nil
	}

	root, err := scanner.ResolveRoot(args[0])
	if err != nil {
		return err
	}

	c, err := cache.Open(path)
	if err != nil {
		return err
	}
	defer c.Close()

	n, err := c.Count(root)
	if err != nil {
		return fmt.Errorf("failed to count cache entries: %w", err)
	}
	fmt.Printf("Cached files for %s: %d\n", root, n)
	return nil
}
