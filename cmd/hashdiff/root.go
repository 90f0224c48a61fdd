package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jamesainslie/hashdiff/pkg/hashdiff/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "hashdiff <dir>",
		Short: "Detect added, removed and modified files against a baseline",
		Long: `hashdiff records the MD5, SHA1 and SHA256 digests of every file under a
directory. The first run stores them as a baseline; later runs report which
files were added, removed or modified since, and write added.csv,
removed.csv and modified.csv for every category that has entries.

A renamed file is reported as removed under its old path and added under its
new one.

Examples:
  hashdiff /srv/data              # Create the baseline, or compare against it
  hashdiff --commit /srv/data     # Compare, then accept the current state
  hashdiff -o json /srv/data      # Machine-readable output
  hashdiff baseline show /srv/data
  hashdiff history                # Past runs`,
		Args:              cobra.ExactArgs(1),
		RunE:              runHashdiff,
		PersistentPreRunE: initializeLogging,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/hashdiff/config.yaml)")
	rootCmd.PersistentFlags().String("baseline", "", "baseline file (default: per-directory file under $XDG_DATA_HOME/hashdiff)")
	rootCmd.PersistentFlags().String("output-dir", "", "directory for added/removed/modified reports")
	rootCmd.PersistentFlags().Bool("use-cache", false, "reuse digests of files whose size and mtime are unchanged")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "override hash worker count (0=auto)")
	rootCmd.PersistentFlags().StringSliceP("exclude", "e", nil, "exclude patterns (can be specified multiple times)")
	rootCmd.PersistentFlags().StringP("format", "o", "", "output format: pretty, plain, json, yaml")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	rootCmd.Flags().Bool("commit", false, "replace the baseline with the current scan after comparing")

	// Bind flags to viper
	_ = viper.BindPFlag("baseline.path", rootCmd.PersistentFlags().Lookup("baseline"))
	_ = viper.BindPFlag("output.dir", rootCmd.PersistentFlags().Lookup("output-dir"))
	_ = viper.BindPFlag("cache.enabled", rootCmd.PersistentFlags().Lookup("use-cache"))
	_ = viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	_ = viper.BindPFlag("exclude", rootCmd.PersistentFlags().Lookup("exclude"))
	_ = viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("baseline.auto_commit", rootCmd.Flags().Lookup("commit"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	config.Configure(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			printError("reading config: %v", err)
		}
	}
}

// loadConfig decodes the merged flag, environment, file and default settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError("%v", err)
	}
	return err
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
