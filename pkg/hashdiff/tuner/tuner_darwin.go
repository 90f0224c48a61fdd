//go:build darwin

package tuner

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Detect detects CPU cores and memory using sysctl. Available memory is
// estimated as half of total since macOS does not expose it cheaply.
func Detect() (SystemResources, error) {
	memsize, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return Fallback(runtime.NumCPU()), fmt.Errorf("sysctl hw.memsize: %w", err)
	}

	total := int64(memsize)
	return SystemResources{
		CPUCores:     runtime.NumCPU(),
		TotalRAM:     total,
		AvailableRAM: total / 2,
	}, nil
}
