package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"github.com/zeebo/xxh3"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// Config represents the application configuration.
type Config struct {
	Baseline struct {
		// Path overrides the per-root baseline location.
		Path       string `mapstructure:"path"`
		AutoCommit bool   `mapstructure:"auto_commit"`
	} `mapstructure:"baseline"`
	Output struct {
		// Dir overrides where added/removed/modified reports are written.
		Dir    string `mapstructure:"dir"`
		Format string `mapstructure:"format"`
	} `mapstructure:"output"`
	Exclude []string `mapstructure:"exclude"`
	Workers int      `mapstructure:"workers"`
	Cache   struct {
		Enabled bool   `mapstructure:"enabled"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"cache"`
	Manifest struct {
		Enabled       bool   `mapstructure:"enabled"`
		Path          string `mapstructure:"path"`
		RetentionDays int    `mapstructure:"retention_days"`
	} `mapstructure:"manifest"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Paths are the resolved on-disk locations for one scan root.
type Paths struct {
	Root      string
	Baseline  string
	OutputDir string
	Cache     string
	Manifest  string
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("baseline.path", "")
	v.SetDefault("baseline.auto_commit", false)
	v.SetDefault("output.dir", "")
	v.SetDefault("output.format", DefaultOutputFormat)
	v.SetDefault("exclude", DefaultExclusions)
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", "")
	v.SetDefault("manifest.enabled", true)
	v.SetDefault("manifest.path", "")
	v.SetDefault("manifest.retention_days", DefaultRetentionDays)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.components", map[string]string{
		"scanner":  "info",
		"baseline": "info",
		"report":   "info",
	})
}

// Configure applies the search paths and environment binding to v.
func Configure(v *viper.Viper) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(ConfigDir())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
}

// Load loads configuration from the config file and environment variables.
// Config file location: $XDG_CONFIG_HOME/hashdiff/config.yaml.
// Environment variables are prefixed with HASHDIFF_ (e.g. HASHDIFF_WORKERS).
func Load() (*Config, error) {
	v := viper.New()
	Configure(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper decodes the configuration held by v and expands ~ in paths.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.Baseline.Path, &cfg.Output.Dir, &cfg.Cache.Path, &cfg.Manifest.Path, &cfg.Logging.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	return &cfg, nil
}

// ResolvePaths returns where the baseline, reports, cache and history live
// for root. Explicit settings win; otherwise each root gets its own
// directory under the data dir so independent roots never share a baseline.
// Reports default to an output directory next to the baseline.
func (c *Config) ResolvePaths(root string) (Paths, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Paths{}, fmt.Errorf("resolving %s: %w", root, err)
	}

	p := Paths{
		Root:      abs,
		Baseline:  c.Baseline.Path,
		OutputDir: c.Output.Dir,
		Cache:     c.Cache.Path,
		Manifest:  c.Manifest.Path,
	}

	if p.Baseline == "" {
		p.Baseline = filepath.Join(RootDir(abs), BaselineFileName)
	}
	if p.OutputDir == "" {
		p.OutputDir = filepath.Join(filepath.Dir(p.Baseline), OutputDirName)
	}
	if p.Cache == "" {
		p.Cache = DefaultCachePath()
	}
	if p.Manifest == "" {
		p.Manifest = DefaultManifestPath()
	}

	return p, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// RootKey returns a stable directory name for an absolute root path:
// a readable base name plus a 64-bit xxh3 hash of the full path.
func RootKey(absRoot string) string {
	name := unsafeChars.ReplaceAllString(filepath.Base(absRoot), "_")
	if name == "" || name == "_" || name == "." {
		name = "root"
	}
	return fmt.Sprintf("%s-%016x", name, xxh3.HashString(absRoot))
}

// RootDir returns the per-root data directory.
func RootDir(absRoot string) string {
	return filepath.Join(DataDir(), "roots", RootKey(absRoot))
}

// ConfigDir returns $XDG_CONFIG_HOME/hashdiff.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ConfigFile returns the default config file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns $XDG_DATA_HOME/hashdiff for baselines, cache and history.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// StateDir returns $XDG_STATE_HOME/hashdiff for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// DefaultCachePath returns the digest cache directory.
func DefaultCachePath() string {
	return filepath.Join(DataDir(), "cache")
}

// DefaultManifestPath returns the run history directory.
func DefaultManifestPath() string {
	return filepath.Join(DataDir(), "history")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), AppName+".log")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left untouched.
func WriteDefault() (string, error) {
	path := ConfigFile()

	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(ConfigDir(), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return path, nil
}

const defaultConfigYAML = `# hashdiff configuration

baseline:
  # Baseline file. Empty keeps one baseline per scanned root under
  # $XDG_DATA_HOME/hashdiff/roots/.
  path: ""
  # Replace the baseline with the current scan after every comparison.
  auto_commit: false

output:
  # Directory for added.csv, removed.csv and modified.csv.
  # Empty uses an output directory next to the baseline.
  dir: ""
  # Console format: pretty, plain, json, yaml
  format: pretty

# Paths or glob patterns to skip
exclude:
  - /proc
  - /sys
  - /dev

# Hash workers (0 = auto)
workers: 0

# Reuse digests of files whose size and mtime are unchanged.
cache:
  enabled: false
  path: ""

# Run history
manifest:
  enabled: true
  path: ""
  retention_days: 90

logging:
  # debug, info, warn, error
  level: info
  # Empty means $XDG_STATE_HOME/hashdiff/hashdiff.log
  path: ""
  rotation:
    max_size: 10MB
    max_backups: 5
  components:
    scanner: info
    baseline: info
    report: info
`
