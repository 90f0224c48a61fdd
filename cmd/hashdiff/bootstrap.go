package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/config"
	"github.com/jamesainslie/hashdiff/pkg/hashdiff/logging"
	"github.com/spf13/cobra"
)

// initializeLogging is the root PersistentPreRunE hook. It creates the XDG
// directories and configures file logging from the loaded config.
func initializeLogging(_ *cobra.Command, _ []string) error {
	for _, dir := range []string{config.ConfigDir(), config.DataDir(), config.StateDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	consoleLevel := ""
	if getVerbose() && !getQuiet() {
		consoleLevel = "debug"
	}

	logPath := cfg.Logging.Path
	if logPath == "" {
		logPath = config.DefaultLogPath()
	}

	if err := logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Path:         logPath,
		Rotation:     parseRotationConfig(cfg.Logging.Rotation),
		Components:   cfg.Logging.Components,
		ConsoleLevel: consoleLevel,
	}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	return nil
}

// parseRotationConfig converts the config's rotation settings. An empty or
// unparsable max_size falls back to the default.
func parseRotationConfig(cfg config.RotationConfig) logging.RotationConfig {
	rc := logging.DefaultRotationConfig()
	rc.MaxBackups = cfg.MaxBackups

	if cfg.MaxSize == "" {
		return rc
	}
	size, err := humanize.ParseBytes(cfg.MaxSize)
	if err != nil || size == 0 {
		return rc
	}
	rc.MaxSize = int64(size)
	return rc
}
