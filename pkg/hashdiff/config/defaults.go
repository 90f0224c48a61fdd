// Package config provides configuration management for hashdiff.
package config

// Default configuration values for hashdiff.
const (
	// AppName names the config, data and state directories.
	AppName = "hashdiff"

	// EnvPrefix prefixes environment variable overrides.
	EnvPrefix = "HASHDIFF"

	// DefaultOutputFormat is the console formatter used when none is set.
	DefaultOutputFormat = "pretty"

	// DefaultRetentionDays is the number of days run history is kept.
	DefaultRetentionDays = 90

	// DefaultWorkers of 0 lets the tuner pick the hash worker count.
	DefaultWorkers = 0

	// BaselineFileName is the baseline file inside a per-root directory.
	BaselineFileName = "baseline.csv"

	// OutputDirName is the report directory created next to the baseline.
	OutputDirName = "output"
)

// DefaultExclusions are pseudo filesystems never worth hashing.
var DefaultExclusions = []string{
	"/proc",
	"/sys",
	"/dev",
}
