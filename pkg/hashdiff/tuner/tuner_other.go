//go:build !darwin && !linux

package tuner

import "runtime"

// Detect uses runtime.NumCPU and falls back to default memory figures.
func Detect() (SystemResources, error) {
	return Fallback(runtime.NumCPU()), nil
}
