//go:build linux

package tuner

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Detect detects CPU cores and memory using sysinfo(2).
func Detect() (SystemResources, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return Fallback(runtime.NumCPU()), fmt.Errorf("sysinfo: %w", err)
	}

	unit := int64(info.Unit)
	if unit == 0 {
		unit = 1
	}

	total := int64(info.Totalram) * unit
	available := (int64(info.Freeram) + int64(info.Bufferram)) * unit

	return SystemResources{
		CPUCores:     runtime.NumCPU(),
		TotalRAM:     total,
		AvailableRAM: min(available, total),
	}, nil
}
